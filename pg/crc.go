package pg

import "hash/crc32"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Crc32c computes the Castagnoli crc postgres uses for all of its checksums
// (pg_crc32c; the polynomial of the sse4.2/armv8 hardware instruction)
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/port/pg_crc32c.h#L1-L33
func Crc32c(b []byte) uint32 {
	return crc32.Update(0, crc32cTable, b)
}

// Crc32cUpdate extends crc with more bytes, like COMP_CRC32C without the
// initial/final bit inversions being visible to the caller
func Crc32cUpdate(crc uint32, b []byte) uint32 {
	return crc32.Update(crc, crc32cTable, b)
}

/*
Package pg defines the parts of the PostgreSQL on-disk format that basebackup
has to reproduce byte-exactly: the control file, the checkpoint record, wal
page/record framing and relation data file naming.

The struct layouts follow PostgreSQL 14 compiled for a 64-bit platform
(MAXIMUM_ALIGNOF 8), little-endian, with the default 8KB block size and 16MB
wal segment size. The encoders write the C struct padding explicitly so the
output matches what the server itself would have written.
*/
package pg

import "github.com/poojanilangekar/zenith/common"

const (
	// BlockSize is BLCKSZ: the page size shared by relations and slru files
	// see https://github.com/postgres/postgres/blob/ca3b37487be333a1d241dab1bbdd17a211a88f43/src/include/pg_config.h.in#L27-L34
	BlockSize = 8192

	// WalSegmentSize is the default --with-wal-segsize (16MB)
	WalSegmentSize = 16 * 1024 * 1024

	// XLogBlockSize is XLOG_BLCKSZ: the page size within wal segments
	XLogBlockSize = 8192

	// SlruPagesPerSegment is SLRU_PAGES_PER_SEGMENT
	// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/slru.h#L33-L35
	SlruPagesPerSegment = 32

	// SlruSegmentSize is the byte size of one full slru segment file (pg_xact, pg_multixact)
	SlruSegmentSize = BlockSize * SlruPagesPerSegment

	// FileNodeMapSize is the fixed size of pg_filenode.map
	// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/backend/utils/cache/relmapper.c#L87-L98
	FileNodeMapSize = 512
)

// tablespace oids from pg_tablespace.dat
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/catalog/pg_tablespace.dat
const (
	DefaultTablespaceOid common.Oid = 1663
	GlobalTablespaceOid  common.Oid = 1664
)

const (
	// XLogPageMagic is XLOG_PAGE_MAGIC of postgres 14
	// see https://github.com/postgres/postgres/blob/REL_14_STABLE/src/include/access/xlog_internal.h#L34
	XLogPageMagic uint16 = 0xD10D

	// XlpLongHeader marks a page with the long header (first page of a segment)
	XlpLongHeader uint16 = 0x0002

	// XLogCheckpointShutdown is the xl_info value of a shutdown checkpoint record
	XLogCheckpointShutdown uint8 = 0x00

	// RmXlogID is the resource manager id of the xlog rmgr
	RmXlogID uint8 = 0

	// XlrBlockIDDataShort introduces the short inline data block of a wal record
	// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlogrecord.h#L223-L233
	XlrBlockIDDataShort uint8 = 255

	// SizeOfXLogRecordDataHeaderShort is 1 byte block id + 1 byte length
	SizeOfXLogRecordDataHeaderShort = 2
)

// BootstrapTimelineID is the postgres timeline claimed by every synthesized
// wal segment. zenith keeps the whole history on a single postgres timeline,
// so this never varies; multi-timeline output is unimplemented.
const BootstrapTimelineID uint32 = 1

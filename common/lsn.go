package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// Lsn is log sequence number: 64-bit position in the write-ahead log.
// postgres displays it as two 32-bit halves separated with slash like `16/B374D848`
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlogdefs.h#L17-L22
type Lsn uint64

// InvalidLsn is lsn 0. this indicates the position is unknown/not set yet
const InvalidLsn Lsn = 0

// String formats lsn the way postgres does (pg_lsn type)
func (lsn Lsn) String() string {
	return fmt.Sprintf("%X/%X", uint32(lsn>>32), uint32(lsn))
}

// ParseLsn parses the postgres representation like `16/B374D848`
func ParseLsn(s string) (Lsn, error) {
	var hi, lo uint32
	if _, err := fmt.Sscanf(s, "%X/%X", &hi, &lo); err != nil {
		return InvalidLsn, errors.Wrap(err, "fmt.Sscanf failed")
	}
	return Lsn(uint64(hi)<<32 | uint64(lo)), nil
}

// SegmentNumber returns the number of the wal segment which contains the lsn
// see XLByteToSeg in https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlog_internal.h#L116-L118
func (lsn Lsn) SegmentNumber(segSize uint64) uint64 {
	return uint64(lsn) / segSize
}

// SegmentOffset returns the offset of the lsn within its wal segment
// see XLogSegmentOffset in https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlog_internal.h#L122-L123
func (lsn Lsn) SegmentOffset(segSize uint64) uint64 {
	return uint64(lsn) & (segSize - 1)
}

package pg

import (
	"encoding/binary"
	"fmt"

	"github.com/poojanilangekar/zenith/common"
)

const (
	// SizeOfXLogShortPHD is sizeof(XLogPageHeaderData), maxaligned
	SizeOfXLogShortPHD = 24

	// SizeOfXLogLongPHD is sizeof(XLogLongPageHeaderData), maxaligned.
	// the first page of every wal segment carries the long header
	SizeOfXLogLongPHD = 40

	// SizeOfXLogRecord is sizeof(XLogRecord)
	SizeOfXLogRecord = 24

	// XLogRecordCrcOffset is offsetof(XLogRecord, xl_crc)
	XLogRecordCrcOffset = 20
)

// XLogPageHeaderData is the header at the start of every wal page
// see https://github.com/postgres/postgres/blob/REL_14_STABLE/src/include/access/xlog_internal.h#L38-L75
type XLogPageHeaderData struct {
	Magic    uint16
	Info     uint16
	TimeLine uint32
	PageAddr common.Lsn
	RemLen   uint32
}

// XLogLongPageHeaderData extends the page header on the first page of a
// segment with fields which identify the wal file independently of pg_control
type XLogLongPageHeaderData struct {
	Std        XLogPageHeaderData
	SysID      uint64
	SegSize    uint32
	XLogBlcksz uint32
}

// Encode encodes the long page header, including the 4 padding bytes the
// compiler inserts before xlp_sysid
func (h XLogLongPageHeaderData) Encode() []byte {
	b := make([]byte, SizeOfXLogLongPHD)
	binary.LittleEndian.PutUint16(b[0:], h.Std.Magic)
	binary.LittleEndian.PutUint16(b[2:], h.Std.Info)
	binary.LittleEndian.PutUint32(b[4:], h.Std.TimeLine)
	binary.LittleEndian.PutUint64(b[8:], uint64(h.Std.PageAddr))
	binary.LittleEndian.PutUint32(b[16:], h.Std.RemLen)
	binary.LittleEndian.PutUint64(b[24:], h.SysID)
	binary.LittleEndian.PutUint32(b[32:], h.SegSize)
	binary.LittleEndian.PutUint32(b[36:], h.XLogBlcksz)
	return b
}

// XLogRecord is the fixed header of every wal record
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlogrecord.h#L26-L46
type XLogRecord struct {
	TotLen uint32
	Xid    common.TransactionID
	Prev   common.Lsn
	Info   uint8
	RmID   uint8
	Crc    uint32
}

// Encode encodes the record header. xl_crc sits at XLogRecordCrcOffset,
// after 2 padding bytes following xl_rmid
func (r XLogRecord) Encode() []byte {
	b := make([]byte, SizeOfXLogRecord)
	binary.LittleEndian.PutUint32(b[0:], r.TotLen)
	binary.LittleEndian.PutUint32(b[4:], uint32(r.Xid))
	binary.LittleEndian.PutUint64(b[8:], uint64(r.Prev))
	b[16] = r.Info
	b[17] = r.RmID
	binary.LittleEndian.PutUint32(b[XLogRecordCrcOffset:], r.Crc)
	return b
}

// XLogSegmentsPerXLogID returns how many segments share one xlogid
// (the high 32 bits of an lsn)
func XLogSegmentsPerXLogID(segSize uint64) uint64 {
	return 0x100000000 / segSize
}

// XLogFileName returns the wal segment file name: timeline, then the segment
// number split into xlogid and the segment within that xlogid
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/xlog_internal.h#L155-L160
func XLogFileName(tli uint32, segno uint64, segSize uint64) string {
	return fmt.Sprintf("%08X%08X%08X",
		tli,
		segno/XLogSegmentsPerXLogID(segSize),
		segno%XLogSegmentsPerXLogID(segSize),
	)
}

// XLogSegNoOffsetToRecPtr converts a segment number and an offset within the
// segment into an lsn
func XLogSegNoOffsetToRecPtr(segno uint64, offset uint32, segSize uint64) common.Lsn {
	return common.Lsn(segno*segSize + uint64(offset))
}

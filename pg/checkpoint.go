package pg

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/common"
)

// SizeOfCheckPoint is sizeof(CheckPoint) on a 64-bit platform
const SizeOfCheckPoint = 88

// CheckPoint mirrors the CheckPoint struct written into wal checkpoint
// records and embedded in the control file
// see https://github.com/postgres/postgres/blob/REL_14_STABLE/src/include/catalog/pg_control.h#L35-L65
type CheckPoint struct {
	Redo              common.Lsn
	ThisTimeLineID    uint32
	PrevTimeLineID    uint32
	FullPageWrites    bool
	NextXid           uint64 // FullTransactionId: epoch in the high 32 bits
	NextOid           common.Oid
	NextMulti         uint32
	NextMultiOffset   uint32
	OldestXid         common.TransactionID
	OldestXidDB       common.Oid
	OldestMulti       uint32
	OldestMultiDB     common.Oid
	Time              int64
	OldestCommitTsXid common.TransactionID
	NewestCommitTsXid common.TransactionID
	OldestActiveXid   common.TransactionID
}

// field offsets within the C struct. the compiler inserts padding after
// fullPageWrites (to align the 8-byte nextXid), after oldestMultiDB (to
// align the 8-byte time) and at the tail (struct alignment is 8)
const (
	ckptRedoOffset            = 0
	ckptThisTimeLineIDOffset  = 8
	ckptPrevTimeLineIDOffset  = 12
	ckptFullPageWritesOffset  = 16
	ckptNextXidOffset         = 24
	ckptNextOidOffset         = 32
	ckptNextMultiOffset       = 36
	ckptNextMultiOffsetOffset = 40
	ckptOldestXidOffset       = 44
	ckptOldestXidDBOffset     = 48
	ckptOldestMultiOffset     = 52
	ckptOldestMultiDBOffset   = 56
	ckptTimeOffset            = 64
	ckptOldestCommitTsOffset  = 72
	ckptNewestCommitTsOffset  = 76
	ckptOldestActiveXidOffset = 80
)

// DecodeCheckPoint decodes the wire/disk representation of a checkpoint
func DecodeCheckPoint(b []byte) (CheckPoint, error) {
	var ckpt CheckPoint
	if len(b) != SizeOfCheckPoint {
		return ckpt, errors.Errorf("checkpoint image must be %d bytes: got %d", SizeOfCheckPoint, len(b))
	}
	ckpt.Redo = common.Lsn(binary.LittleEndian.Uint64(b[ckptRedoOffset:]))
	ckpt.ThisTimeLineID = binary.LittleEndian.Uint32(b[ckptThisTimeLineIDOffset:])
	ckpt.PrevTimeLineID = binary.LittleEndian.Uint32(b[ckptPrevTimeLineIDOffset:])
	ckpt.FullPageWrites = b[ckptFullPageWritesOffset] != 0
	ckpt.NextXid = binary.LittleEndian.Uint64(b[ckptNextXidOffset:])
	ckpt.NextOid = common.Oid(binary.LittleEndian.Uint32(b[ckptNextOidOffset:]))
	ckpt.NextMulti = binary.LittleEndian.Uint32(b[ckptNextMultiOffset:])
	ckpt.NextMultiOffset = binary.LittleEndian.Uint32(b[ckptNextMultiOffsetOffset:])
	ckpt.OldestXid = common.TransactionID(binary.LittleEndian.Uint32(b[ckptOldestXidOffset:]))
	ckpt.OldestXidDB = common.Oid(binary.LittleEndian.Uint32(b[ckptOldestXidDBOffset:]))
	ckpt.OldestMulti = binary.LittleEndian.Uint32(b[ckptOldestMultiOffset:])
	ckpt.OldestMultiDB = common.Oid(binary.LittleEndian.Uint32(b[ckptOldestMultiDBOffset:]))
	ckpt.Time = int64(binary.LittleEndian.Uint64(b[ckptTimeOffset:]))
	ckpt.OldestCommitTsXid = common.TransactionID(binary.LittleEndian.Uint32(b[ckptOldestCommitTsOffset:]))
	ckpt.NewestCommitTsXid = common.TransactionID(binary.LittleEndian.Uint32(b[ckptNewestCommitTsOffset:]))
	ckpt.OldestActiveXid = common.TransactionID(binary.LittleEndian.Uint32(b[ckptOldestActiveXidOffset:]))
	return ckpt, nil
}

// Encode encodes the checkpoint into its disk representation, padding included
func (ckpt CheckPoint) Encode() []byte {
	b := make([]byte, SizeOfCheckPoint)
	binary.LittleEndian.PutUint64(b[ckptRedoOffset:], uint64(ckpt.Redo))
	binary.LittleEndian.PutUint32(b[ckptThisTimeLineIDOffset:], ckpt.ThisTimeLineID)
	binary.LittleEndian.PutUint32(b[ckptPrevTimeLineIDOffset:], ckpt.PrevTimeLineID)
	if ckpt.FullPageWrites {
		b[ckptFullPageWritesOffset] = 1
	}
	binary.LittleEndian.PutUint64(b[ckptNextXidOffset:], ckpt.NextXid)
	binary.LittleEndian.PutUint32(b[ckptNextOidOffset:], uint32(ckpt.NextOid))
	binary.LittleEndian.PutUint32(b[ckptNextMultiOffset:], ckpt.NextMulti)
	binary.LittleEndian.PutUint32(b[ckptNextMultiOffsetOffset:], ckpt.NextMultiOffset)
	binary.LittleEndian.PutUint32(b[ckptOldestXidOffset:], uint32(ckpt.OldestXid))
	binary.LittleEndian.PutUint32(b[ckptOldestXidDBOffset:], uint32(ckpt.OldestXidDB))
	binary.LittleEndian.PutUint32(b[ckptOldestMultiOffset:], ckpt.OldestMulti)
	binary.LittleEndian.PutUint32(b[ckptOldestMultiDBOffset:], uint32(ckpt.OldestMultiDB))
	binary.LittleEndian.PutUint64(b[ckptTimeOffset:], uint64(ckpt.Time))
	binary.LittleEndian.PutUint32(b[ckptOldestCommitTsOffset:], uint32(ckpt.OldestCommitTsXid))
	binary.LittleEndian.PutUint32(b[ckptNewestCommitTsOffset:], uint32(ckpt.NewestCommitTsXid))
	binary.LittleEndian.PutUint32(b[ckptOldestActiveXidOffset:], uint32(ckpt.OldestActiveXid))
	return b
}

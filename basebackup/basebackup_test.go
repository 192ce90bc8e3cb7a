package basebackup

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poojanilangekar/zenith/common"
	"github.com/poojanilangekar/zenith/pg"
	"github.com/poojanilangekar/zenith/repository"
)

func TestSend(t *testing.T) {
	repoDir := t.TempDir()
	snapshotLsn := common.Lsn(0x1000000)
	snappath := testingNewSnapshot(t, repoDir, snapshotLsn)

	testingWriteFile(t, snappath, "PG_VERSION", "14\n")
	testingWriteFile(t, snappath, "postgresql.conf", "shared_buffers=1MB\n")
	testingWriteFile(t, snappath, "global/1262", "shared relation bytes")
	testingWriteFile(t, snappath, "base/1/PG_VERSION", "14\n")
	testingWriteFile(t, snappath, "base/1/1249", "relation bytes")
	testingWriteFile(t, snappath, "base/1/pg_filenode.map", "stale relmap")
	testingWriteFile(t, snappath, "base/13008/16384.1", "relation segment bytes")
	testingWriteFile(t, snappath, "pg_xact/0000", "stale clog segment")
	testingWriteFile(t, snappath, "pg_tblspc/16400/16401", "tablespace bytes")
	require.Nil(t, os.Symlink("PG_VERSION", filepath.Join(snappath, "version_link")))

	ckpt := testingCheckPoint()
	tl := repository.TestingNewTimeline()
	tl.Put(repository.ClogPage{Blknum: 0}, testingPageImage(0xC1))
	tl.Put(repository.MultiXactOffsetsPage{Blknum: 0}, testingPageImage(0xC2))
	tl.Put(repository.MultiXactMembersPage{Blknum: 3}, testingPageImage(0xC3))
	tl.Put(repository.FileNodeMap{Db: repository.DatabaseTag{SpcNode: pg.GlobalTablespaceOid}},
		bytes.Repeat([]byte{0x5A}, pg.FileNodeMapSize))
	tl.Put(repository.FileNodeMap{Db: repository.DatabaseTag{SpcNode: pg.DefaultTablespaceOid, DbNode: 13008}},
		bytes.Repeat([]byte{0x5B}, pg.FileNodeMapSize))
	tl.Put(repository.TwoPhase{Xid: 0x2E9}, []byte("twophase state"))
	tl.Put(repository.Checkpoint{}, ckpt.Encode())
	tl.Put(repository.ControlFile{}, testingControlFileImage(ckpt))

	// inside wal segment 26: the synthesized redo point lands in segment 27
	lsn := common.Lsn(26*pg.WalSegmentSize + 0x2048)

	var buf bytes.Buffer
	bb := New(&buf, repoDir, testingTimelineID, tl, lsn, snapshotLsn, nil)
	require.Nil(t, bb.Send())

	entries := testingReadTarball(t, &buf)

	// ordinary files appear verbatim, shared catalogs included
	assert.Equal(t, []byte("14\n"), entries["PG_VERSION"].data)
	assert.Equal(t, []byte("shared relation bytes"), entries["global/1262"].data)
	assert.Equal(t, []byte("14\n"), entries["base/1/PG_VERSION"].data)
	assert.Contains(t, entries, "postgresql.conf")

	// directories are mirrored
	assert.Contains(t, entries, "base/")
	assert.Contains(t, entries, "base/1/")
	assert.Contains(t, entries, "pg_xact/")

	// relation data files, the stale relmap, the symlink and the
	// unsupported tablespace are not copied
	assert.NotContains(t, entries, "base/1/1249")
	assert.NotContains(t, entries, "base/13008/16384.1")
	assert.NotContains(t, entries, "version_link")
	assert.NotContains(t, entries, "pg_tblspc/16400/16401")
	assert.NotContains(t, entries, "base/1/pg_filenode.map")

	// slru segments come from the repository, not the snapshot
	clog := entries["pg_xact/0000"]
	require.Equal(t, int64(pg.SlruSegmentSize), clog.hdr.Size)
	assert.Equal(t, testingPageImage(0xC1), clog.data[:pg.BlockSize])
	assert.Equal(t, testingPageImage(0xC2), entries["pg_multixact/offsets/0000"].data[:pg.BlockSize])
	assert.Equal(t, testingPageImage(0xC3), entries["pg_multixact/members/0000"].data[3*pg.BlockSize:4*pg.BlockSize])

	// relation mapper files and prepared transaction state
	assert.Equal(t, bytes.Repeat([]byte{0x5A}, pg.FileNodeMapSize), entries["global/pg_filenode.map"].data)
	assert.Equal(t, bytes.Repeat([]byte{0x5B}, pg.FileNodeMapSize), entries["base/13008/pg_filenode.map"].data)
	assert.Equal(t, []byte("14\n"), entries["base/13008/PG_VERSION"].data)
	assert.Contains(t, entries, "pg_twophase/000002E9")

	// the control file points at the start of data in segment 27
	newLsn := pg.XLogSegNoOffsetToRecPtr(27, pg.SizeOfXLogLongPHD, pg.WalSegmentSize)
	controlFile, err := pg.DecodeControlFile(entries["global/pg_control"].data)
	require.Nil(t, err)
	assert.Equal(t, newLsn, controlFile.CheckPoint)
	assert.Equal(t, newLsn, controlFile.CheckPointCopy.Redo)
	assert.Equal(t, common.InvalidTransactionID, controlFile.CheckPointCopy.OldestActiveXid)
	// the rest of the checkpoint carries over
	assert.Equal(t, ckpt.NextXid, controlFile.CheckPointCopy.NextXid)
	assert.Equal(t, ckpt.OldestXid, controlFile.CheckPointCopy.OldestXid)

	// exactly one wal segment, named for postgres timeline 1 and segment 27
	wal, ok := entries["pg_wal/00000001000000000000001B"]
	require.True(t, ok)
	verifyWalSegment(t, wal.data, newLsn, controlFile.SystemIdentifier)
}

// verifyWalSegment checks the synthesized segment the way the engine's wal
// reader would: long header fields, record framing and the record crc
func verifyWalSegment(t *testing.T, seg []byte, redo common.Lsn, sysid uint64) {
	require.Len(t, seg, pg.WalSegmentSize)

	// long page header
	assert.Equal(t, pg.XLogPageMagic, binary.LittleEndian.Uint16(seg[0:]))
	assert.Equal(t, pg.XlpLongHeader, binary.LittleEndian.Uint16(seg[2:]))
	assert.Equal(t, pg.BootstrapTimelineID, binary.LittleEndian.Uint32(seg[4:]))
	assert.Equal(t, uint64(redo)-pg.SizeOfXLogLongPHD, binary.LittleEndian.Uint64(seg[8:]))
	assert.Equal(t, sysid, binary.LittleEndian.Uint64(seg[24:]))
	assert.Equal(t, uint32(pg.WalSegmentSize), binary.LittleEndian.Uint32(seg[32:]))

	// shutdown checkpoint record right after the header
	rec := seg[pg.SizeOfXLogLongPHD:]
	totLen := binary.LittleEndian.Uint32(rec[0:])
	require.Equal(t, uint32(pg.SizeOfXLogRecord+pg.SizeOfXLogRecordDataHeaderShort+pg.SizeOfCheckPoint), totLen)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(rec[4:]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(rec[8:]))
	assert.Equal(t, pg.XLogCheckpointShutdown, rec[16])
	assert.Equal(t, pg.RmXlogID, rec[17])

	dataHdr := rec[pg.SizeOfXLogRecord : pg.SizeOfXLogRecord+pg.SizeOfXLogRecordDataHeaderShort]
	assert.Equal(t, []byte{pg.XlrBlockIDDataShort, pg.SizeOfCheckPoint}, dataHdr)

	payload := rec[pg.SizeOfXLogRecord+pg.SizeOfXLogRecordDataHeaderShort : totLen]
	ckpt, err := pg.DecodeCheckPoint(payload)
	require.Nil(t, err)
	assert.Equal(t, redo, ckpt.Redo)
	assert.Equal(t, common.InvalidTransactionID, ckpt.OldestActiveXid)

	// crc over data header, payload, then the record header before the crc
	crc := pg.Crc32c(dataHdr)
	crc = pg.Crc32cUpdate(crc, payload)
	crc = pg.Crc32cUpdate(crc, rec[:pg.XLogRecordCrcOffset])
	assert.Equal(t, crc, binary.LittleEndian.Uint32(rec[pg.XLogRecordCrcOffset:]))

	// everything past the record is zero padding
	assert.Equal(t, make([]byte, 1024), seg[int(pg.SizeOfXLogLongPHD+totLen):int(pg.SizeOfXLogLongPHD+totLen)+1024])
}

func TestSendEmptyRepository(t *testing.T) {
	repoDir := t.TempDir()
	snapshotLsn := common.Lsn(0x1000000)
	testingNewSnapshot(t, repoDir, snapshotLsn)

	ckpt := testingCheckPoint()
	tl := repository.TestingNewTimeline()
	tl.Put(repository.Checkpoint{}, ckpt.Encode())
	tl.Put(repository.ControlFile{}, testingControlFileImage(ckpt))

	lsn := common.Lsn(3 * pg.WalSegmentSize)
	var buf bytes.Buffer
	bb := New(&buf, repoDir, testingTimelineID, tl, lsn, snapshotLsn, nil)
	require.Nil(t, bb.Send())

	// even with nothing to copy and no non-relation objects the archive
	// holds the control file and one wal segment
	entries := testingReadTarball(t, &buf)
	require.Len(t, entries, 2)
	assert.Contains(t, entries, "global/pg_control")
	assert.Contains(t, entries, "pg_wal/000000010000000000000004")
}

func TestSendTwiceFails(t *testing.T) {
	repoDir := t.TempDir()
	snapshotLsn := common.Lsn(0x1000000)
	testingNewSnapshot(t, repoDir, snapshotLsn)

	ckpt := testingCheckPoint()
	tl := repository.TestingNewTimeline()
	tl.Put(repository.Checkpoint{}, ckpt.Encode())
	tl.Put(repository.ControlFile{}, testingControlFileImage(ckpt))

	var buf bytes.Buffer
	bb := New(&buf, repoDir, testingTimelineID, tl, common.Lsn(0), snapshotLsn, nil)
	require.Nil(t, bb.Send())
	assert.ErrorContains(t, bb.Send(), "already been sent")
}

func TestSendRejectsUserTablespaceObject(t *testing.T) {
	repoDir := t.TempDir()
	snapshotLsn := common.Lsn(0x1000000)
	testingNewSnapshot(t, repoDir, snapshotLsn)

	tl := repository.TestingNewTimeline()
	tl.Put(repository.FileNodeMap{Db: repository.DatabaseTag{SpcNode: 16400, DbNode: 5}},
		bytes.Repeat([]byte{0x5A}, pg.FileNodeMapSize))

	var buf bytes.Buffer
	bb := New(&buf, repoDir, testingTimelineID, tl, common.Lsn(0), snapshotLsn, nil)
	assert.ErrorContains(t, bb.Send(), "tablespaces are not supported")
}

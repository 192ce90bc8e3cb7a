package basebackup

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/common"
	"github.com/poojanilangekar/zenith/pg"
	"github.com/poojanilangekar/zenith/repository"
)

// addControlFile synthesizes the pg_control file and one wal segment which
// make the archive look like a cleanly shut down cluster: the redo pointer
// is moved to the start of the segment after the one containing the target
// lsn, and that segment holds a single shutdown checkpoint record. this is
// the same trick pg_resetwal plays to restart a cluster at a chosen position
func (bb *Basebackup) addControlFile() error {
	// the checkpoint and control file are kept by the repository at their
	// most recent version only, addressed by sentinel tags rather than the
	// target lsn
	checkpointBytes, err := bb.timeline.GetPageAtLsnNowait(repository.Checkpoint{}, common.InvalidLsn)
	if err != nil {
		return errors.Wrap(err, "fetching checkpoint failed")
	}
	controlFileBytes, err := bb.timeline.GetPageAtLsnNowait(repository.ControlFile{}, common.InvalidLsn)
	if err != nil {
		return errors.Wrap(err, "fetching control file failed")
	}
	controlFile, err := pg.DecodeControlFile(controlFileBytes)
	if err != nil {
		return errors.Wrap(err, "DecodeControlFile failed")
	}
	checkpoint, err := pg.DecodeCheckPoint(checkpointBytes)
	if err != nil {
		return errors.Wrap(err, "DecodeCheckPoint failed")
	}

	newSegno := bb.lsn.SegmentNumber(pg.WalSegmentSize) + 1
	newLsn := pg.XLogSegNoOffsetToRecPtr(newSegno, pg.SizeOfXLogLongPHD, pg.WalSegmentSize)
	checkpoint.Redo = newLsn
	// the snapshot has no running transactions; horizon tracking restarts
	checkpoint.OldestActiveXid = common.InvalidTransactionID

	controlFile.CheckPoint = newLsn
	controlFile.CheckPointCopy = checkpoint

	encoded := pg.EncodeControlFile(controlFile)
	if err := bb.ar.WriteHeader(newTarHeader("global/pg_control", int64(len(encoded)))); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := bb.ar.Write(encoded); err != nil {
		return errors.Wrap(err, "tar.Writer.Write failed")
	}

	return bb.addWalSegment(newSegno, controlFile)
}

// addWalSegment writes the synthesized wal segment: a long page header
// followed by one shutdown checkpoint record, zero padded to the full
// segment size
func (bb *Basebackup) addWalSegment(segno uint64, controlFile pg.ControlFileData) error {
	seg := make([]byte, pg.WalSegmentSize)

	hdr := pg.XLogLongPageHeaderData{
		Std: pg.XLogPageHeaderData{
			Magic:    pg.XLogPageMagic,
			Info:     pg.XlpLongHeader,
			TimeLine: pg.BootstrapTimelineID,
			PageAddr: controlFile.CheckPointCopy.Redo - pg.SizeOfXLogLongPHD,
			RemLen:   0,
		},
		SysID:      controlFile.SystemIdentifier,
		SegSize:    pg.WalSegmentSize,
		XLogBlcksz: pg.XLogBlockSize,
	}
	n := copy(seg, hdr.Encode())

	rec := pg.XLogRecord{
		TotLen: pg.SizeOfXLogRecord + pg.SizeOfXLogRecordDataHeaderShort + pg.SizeOfCheckPoint,
		Xid:    common.InvalidTransactionID,
		Prev:   common.InvalidLsn,
		Info:   pg.XLogCheckpointShutdown,
		RmID:   pg.RmXlogID,
	}
	recBytes := rec.Encode()
	dataHdr := []byte{pg.XlrBlockIDDataShort, pg.SizeOfCheckPoint}
	payload := controlFile.CheckPointCopy.Encode()

	// the record crc covers the data in its on-disk order (block data
	// headers, then payload) and finally the record header up to the crc
	// field itself
	crc := pg.Crc32c(dataHdr)
	crc = pg.Crc32cUpdate(crc, payload)
	crc = pg.Crc32cUpdate(crc, recBytes[:pg.XLogRecordCrcOffset])

	n += copy(seg[n:], recBytes[:pg.XLogRecordCrcOffset])
	binary.LittleEndian.PutUint32(seg[n:], crc)
	n += 4
	n += copy(seg[n:], dataHdr)
	copy(seg[n:], payload)
	// the remainder of the segment stays zero

	name := "pg_wal/" + pg.XLogFileName(pg.BootstrapTimelineID, segno, pg.WalSegmentSize)
	if err := bb.ar.WriteHeader(newTarHeader(name, pg.WalSegmentSize)); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := bb.ar.Write(seg); err != nil {
		return errors.Wrap(err, "tar.Writer.Write failed")
	}
	return nil
}

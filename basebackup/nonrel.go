package basebackup

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/poojanilangekar/zenith/common"
	"github.com/poojanilangekar/zenith/pg"
	"github.com/poojanilangekar/zenith/repository"
)

// sendNonRelObjects drains the repository's ordered non-relation object list
// at the target lsn, exactly once, dispatching each tag to its encoder
func (bb *Basebackup) sendNonRelObjects() error {
	tags, err := bb.timeline.ListNonRels(bb.lsn)
	if err != nil {
		return errors.Wrap(err, "ListNonRels failed")
	}
	for _, tag := range tags {
		switch t := tag.(type) {
		case repository.ClogPage:
			err = bb.addSlruSegment("pg_xact", tag, t.Blknum)
		case repository.MultiXactMembersPage:
			err = bb.addSlruSegment("pg_multixact/members", tag, t.Blknum)
		case repository.MultiXactOffsetsPage:
			err = bb.addSlruSegment("pg_multixact/offsets", tag, t.Blknum)
		case repository.FileNodeMap:
			err = bb.addRelmapFile(tag, t.Db)
		case repository.TwoPhase:
			err = bb.addTwoPhaseFile(tag, t.Xid)
		default:
			bb.logger.Warn("ignoring unrecognized object tag", zap.Any("tag", tag))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// addRelmapFile writes one database's pg_filenode.map. for a database in the
// default tablespace the PG_VERSION marker is copied from the snapshot's
// template database alongside it, so the database directory is complete
func (bb *Basebackup) addRelmapFile(tag repository.ObjectTag, db repository.DatabaseTag) error {
	img, err := bb.timeline.GetPageAtLsnNowait(tag, bb.lsn)
	if err != nil {
		return errors.Wrap(err, "GetPageAtLsnNowait failed")
	}
	bb.logger.Info("adding relmap file",
		zap.Uint32("spcnode", uint32(db.SpcNode)),
		zap.Uint32("dbnode", uint32(db.DbNode)),
	)

	var path string
	if db.SpcNode == pg.GlobalTablespaceOid {
		path = "global/pg_filenode.map"
	} else {
		if db.SpcNode != pg.DefaultTablespaceOid {
			return errors.Errorf("user defined tablespaces are not supported: tablespace %d", db.SpcNode)
		}
		src := filepath.Join(bb.snappath, "base", "1", "PG_VERSION")
		dst := fmt.Sprintf("base/%d/PG_VERSION", db.DbNode)
		if err := bb.appendFile(src, dst); err != nil {
			return err
		}
		path = fmt.Sprintf("base/%d/pg_filenode.map", db.DbNode)
	}

	if len(img) != pg.FileNodeMapSize {
		return errors.Errorf("filenode map image must be %d bytes: got %d", pg.FileNodeMapSize, len(img))
	}
	if err := bb.ar.WriteHeader(newTarHeader(path, int64(len(img)))); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := bb.ar.Write(img); err != nil {
		return errors.Wrap(err, "tar.Writer.Write failed")
	}
	return nil
}

// addTwoPhaseFile writes the state of one prepared transaction the way the
// twophase checkpointer does on disk: the raw state followed by a
// little-endian crc32c of it
func (bb *Basebackup) addTwoPhaseFile(tag repository.ObjectTag, xid common.TransactionID) error {
	img, err := bb.timeline.GetPageAtLsnNowait(tag, bb.lsn)
	if err != nil {
		return errors.Wrap(err, "GetPageAtLsnNowait failed")
	}

	buf := make([]byte, len(img)+4)
	copy(buf, img)
	binary.LittleEndian.PutUint32(buf[len(img):], pg.Crc32c(img))

	path := fmt.Sprintf("pg_twophase/%08X", uint32(xid))
	if err := bb.ar.WriteHeader(newTarHeader(path, int64(len(buf)))); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := bb.ar.Write(buf); err != nil {
		return errors.Wrap(err, "tar.Writer.Write failed")
	}
	return nil
}

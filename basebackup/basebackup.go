/*
Package basebackup generates a tarball with all the files a compute node
needs to bootstrap: the non-relation files copied from a snapshot directory,
slru segments / relation mapper files / prepared transaction state
re-materialized from the page repository at the requested lsn, and a
synthesized pg_control plus one wal segment which together make the cluster
look like it was shut down cleanly just past that lsn.

The whole archive is produced in one linear pass so memory stays bounded:
only one slru segment buffer and one wal segment buffer are resident at a
time. Any error aborts the run; a partially written archive is invalid and
the caller must discard it.
*/
package basebackup

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/poojanilangekar/zenith/common"
	"github.com/poojanilangekar/zenith/pg"
	"github.com/poojanilangekar/zenith/repository"
)

// Basebackup builds one archive. It is not reusable: Send can run once
type Basebackup struct {
	ar       *tar.Writer
	timeline repository.Timeline
	lsn      common.Lsn
	snappath string
	logger   *zap.Logger

	// the resident slru segment. slruPath == "" means nothing is buffered
	slruBuf   [pg.SlruSegmentSize]byte
	slruSegno uint32
	slruPath  string

	sent bool
}

// New prepares a basebackup of the given timeline as of lsn. The snapshot
// directory walked for verbatim files is the one the checkpoint process
// wrote for snapshotLsn under repoDir. A nil logger disables logging
func New(
	w io.Writer,
	repoDir string,
	timelineID common.TimelineID,
	timeline repository.Timeline,
	lsn common.Lsn,
	snapshotLsn common.Lsn,
	logger *zap.Logger,
) *Basebackup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Basebackup{
		ar:       tar.NewWriter(w),
		timeline: timeline,
		lsn:      lsn,
		snappath: filepath.Join(
			repoDir, "timelines", timelineID.String(),
			"snapshots", fmt.Sprintf("%016X", uint64(snapshotLsn)),
		),
		logger:    logger,
		slruSegno: ^uint32(0),
	}
}

// Send streams the whole archive: snapshot files first, then the
// non-relation objects from the repository, then the synthesized pg_control
// and wal segment, then the end-of-archive marker. The first error aborts
// everything already written
func (bb *Basebackup) Send() error {
	if bb.sent {
		return errors.New("basebackup has already been sent")
	}
	bb.sent = true

	if err := bb.sendSnapshotFiles(); err != nil {
		return err
	}
	if err := bb.sendNonRelObjects(); err != nil {
		return err
	}
	if err := bb.finishSlruSegment(); err != nil {
		return err
	}
	if err := bb.addControlFile(); err != nil {
		return err
	}
	if err := bb.ar.Close(); err != nil {
		return errors.Wrap(err, "tar.Writer.Close failed")
	}
	bb.logger.Debug("all tarred up")
	return nil
}

// sendSnapshotFiles walks the snapshot directory and copies every file that
// is not reconstructed from the repository elsewhere
func (bb *Basebackup) sendSnapshotFiles() error {
	bb.logger.Debug("sending tarball of snapshot", zap.String("snappath", bb.snappath))

	return filepath.WalkDir(bb.snappath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, "walking snapshot dir failed")
		}
		rel, err := filepath.Rel(bb.snappath, path)
		if err != nil {
			return errors.Wrap(err, "filepath.Rel failed")
		}
		if rel == "." {
			return nil
		}
		relpath := filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			return bb.appendDir(path, relpath)
		case d.Type()&fs.ModeSymlink != 0:
			bb.logger.Error("ignoring symlink in snapshot dir", zap.String("path", path))
			return nil
		case d.Type().IsRegular():
			return bb.sendSnapshotFile(path, relpath, d.Name())
		default:
			bb.logger.Error("ignoring unknown file type", zap.String("path", path))
			return nil
		}
	})
}

// sendSnapshotFile decides whether one regular snapshot file is copied
// verbatim into the archive
func (bb *Basebackup) sendSnapshotFile(path, relpath, name string) error {
	// shared catalogs are exempt from the relation file check
	if strings.HasPrefix(relpath, "global/") {
		return bb.appendFile(path, relpath)
	}

	switch err := parseRelFilePath(relpath); {
	case err == nil:
		// relation data files are reconstructed from the repository,
		// not copied from the snapshot
		return nil
	case errors.Is(err, errTablespaceNotSupported):
		bb.logger.Error("ignoring file in unsupported tablespace", zap.String("path", relpath))
		return nil
	default:
		// pg_filenode.map, pg_control, pg_xact and pg_multixact are
		// regenerated from the repository too
		if name == "pg_filenode.map" || name == "pg_control" ||
			strings.HasPrefix(relpath, "pg_xact/") ||
			strings.HasPrefix(relpath, "pg_multixact/") {
			return nil
		}
		return bb.appendFile(path, relpath)
	}
}

// appendDir mirrors one snapshot directory into the archive, keeping its
// permissions and modification time
func (bb *Basebackup) appendDir(path, relpath string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "os.Stat failed")
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return errors.Wrap(err, "tar.FileInfoHeader failed")
	}
	hdr.Name = relpath + "/"
	hdr.Format = tar.FormatGNU
	if err := bb.ar.WriteHeader(hdr); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	return nil
}

// appendFile copies one file verbatim into the archive under dst,
// keeping the source permissions and modification time
func (bb *Basebackup) appendFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "os.Open failed")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "f.Stat failed")
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return errors.Wrap(err, "tar.FileInfoHeader failed")
	}
	hdr.Name = dst
	hdr.Format = tar.FormatGNU
	if err := bb.ar.WriteHeader(hdr); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := io.Copy(bb.ar, f); err != nil {
		return errors.Wrap(err, "io.Copy failed")
	}
	return nil
}

package basebackup

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/pg"
	"github.com/poojanilangekar/zenith/repository"
)

// addSlruSegment accumulates one slru page (clog or multixact) into the
// resident segment buffer, flushing the previous segment when the page
// belongs to a different (category, segment) pair. The repository lists the
// pages of one segment contiguously, so a single resident segment is enough
func (bb *Basebackup) addSlruSegment(path string, tag repository.ObjectTag, page uint32) error {
	img, err := bb.timeline.GetPageAtLsnNowait(tag, bb.lsn)
	if err != nil {
		return errors.Wrap(err, "GetPageAtLsnNowait failed")
	}
	// zero length image indicates a truncated segment: just skip it
	if len(img) == 0 {
		return nil
	}
	if len(img) != pg.BlockSize {
		return errors.Errorf("slru page image must be %d bytes: got %d", pg.BlockSize, len(img))
	}

	segno := page / pg.SlruPagesPerSegment
	if bb.slruPath != "" && (bb.slruSegno != segno || bb.slruPath != path) {
		if err := bb.flushSlruSegment(); err != nil {
			return err
		}
	}
	bb.slruSegno = segno
	bb.slruPath = path

	off := int(page%pg.SlruPagesPerSegment) * pg.BlockSize
	copy(bb.slruBuf[off:off+pg.BlockSize], img)
	return nil
}

// finishSlruSegment flushes the still-buffered segment, if any. called once
// after the last addSlruSegment and before the archive is finalized
func (bb *Basebackup) finishSlruSegment() error {
	if bb.slruPath == "" {
		return nil
	}
	return bb.flushSlruSegment()
}

// flushSlruSegment writes the resident segment as one archive entry at its
// full fixed size; pages never written stay zero. the buffer is cleared for
// the next segment
func (bb *Basebackup) flushSlruSegment() error {
	segname := fmt.Sprintf("%s/%04X", bb.slruPath, bb.slruSegno)
	if err := bb.ar.WriteHeader(newTarHeader(segname, pg.SlruSegmentSize)); err != nil {
		return errors.Wrap(err, "tar.Writer.WriteHeader failed")
	}
	if _, err := bb.ar.Write(bb.slruBuf[:]); err != nil {
		return errors.Wrap(err, "tar.Writer.Write failed")
	}
	bb.slruBuf = [pg.SlruSegmentSize]byte{}
	return nil
}

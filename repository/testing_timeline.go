package repository

import (
	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/common"
)

// TestingTimeline is an in-memory Timeline for tests. objects are listed in
// insertion order, so a test controls the iteration order the same way the
// real repository's ordering contract does
type TestingTimeline struct {
	order  []ObjectTag
	images map[ObjectTag][]byte
}

// TestingNewTimeline returns an empty in-memory timeline
func TestingNewTimeline() *TestingTimeline {
	return &TestingTimeline{
		images: make(map[ObjectTag][]byte),
	}
}

// Put registers the image under the tag. Checkpoint and ControlFile are
// fetched through sentinel tags and never appear in the non-relation listing
func (tl *TestingTimeline) Put(tag ObjectTag, img []byte) {
	switch tag.(type) {
	case Checkpoint, ControlFile:
	default:
		if _, ok := tl.images[tag]; !ok {
			tl.order = append(tl.order, tag)
		}
	}
	tl.images[tag] = img
}

// ListNonRels implements Timeline
func (tl *TestingTimeline) ListNonRels(lsn common.Lsn) ([]ObjectTag, error) {
	return tl.order, nil
}

// GetPageAtLsnNowait implements Timeline
func (tl *TestingTimeline) GetPageAtLsnNowait(tag ObjectTag, lsn common.Lsn) ([]byte, error) {
	img, ok := tl.images[tag]
	if !ok {
		return nil, errors.Errorf("object %+v not found", tag)
	}
	return img, nil
}

package common

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// TimelineID identifies one zenith timeline: 16 random bytes displayed as hex.
// this is not the postgres TimeLineID (which is uint32); the synthesized wal
// always claims postgres timeline 1
type TimelineID [16]byte

// String returns the 32-character lowercase hex representation
func (tid TimelineID) String() string {
	return hex.EncodeToString(tid[:])
}

// ParseTimelineID parses the 32-character hex representation
func ParseTimelineID(s string) (TimelineID, error) {
	var tid TimelineID
	b, err := hex.DecodeString(s)
	if err != nil {
		return tid, errors.Wrap(err, "hex.DecodeString failed")
	}
	if len(b) != len(tid) {
		return tid, errors.Errorf("timeline id must be %d bytes: got %d", len(tid), len(b))
	}
	copy(tid[:], b)
	return tid, nil
}

package basebackup

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poojanilangekar/zenith/common"
	"github.com/poojanilangekar/zenith/pg"
)

// testingTimelineID is an arbitrary but stable zenith timeline id
var testingTimelineID = common.TimelineID{
	0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
	0x99, 0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
}

// testingNewSnapshot creates the snapshot directory the walk expects under
// repoDir and returns its path
func testingNewSnapshot(t *testing.T, repoDir string, snapshotLsn common.Lsn) string {
	snappath := filepath.Join(
		repoDir, "timelines", testingTimelineID.String(),
		"snapshots", fmt.Sprintf("%016X", uint64(snapshotLsn)),
	)
	require.Nil(t, os.MkdirAll(snappath, 0700))
	return snappath
}

// testingWriteFile writes one file into the snapshot tree, creating parents
func testingWriteFile(t *testing.T, snappath, relpath, content string) {
	path := filepath.Join(snappath, filepath.FromSlash(relpath))
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.Nil(t, os.WriteFile(path, []byte(content), 0600))
}

// testingPageImage returns one full page filled with the byte
func testingPageImage(fill byte) []byte {
	img := make([]byte, pg.BlockSize)
	for i := range img {
		img[i] = fill
	}
	return img
}

// testingCheckPoint returns a checkpoint like the one the repository keeps
// from the last genuine shutdown
func testingCheckPoint() pg.CheckPoint {
	return pg.CheckPoint{
		Redo:            common.Lsn(0x16960E8),
		ThisTimeLineID:  1,
		PrevTimeLineID:  1,
		FullPageWrites:  true,
		NextXid:         735,
		NextOid:         24576,
		NextMulti:       1,
		OldestXid:       726,
		OldestXidDB:     1,
		OldestMulti:     1,
		OldestMultiDB:   1,
		Time:            1630000000,
		OldestActiveXid: 733,
	}
}

// testingControlFileImage returns an encoded pg_control image holding the
// checkpoint copy
func testingControlFileImage(ckpt pg.CheckPoint) []byte {
	return pg.EncodeControlFile(pg.ControlFileData{
		SystemIdentifier: 0x6FF42B5040D912AB,
		PgControlVersion: 1300,
		CatalogVersionNo: 202107181,
		State:            pg.DBStateShutdowned,
		Time:             1630000000,
		CheckPoint:       ckpt.Redo,
		CheckPointCopy:   ckpt,
		MaxConnections:   100,
		MaxAlign:         8,
		Blcksz:           pg.BlockSize,
		RelsegSize:       131072,
		XlogBlcksz:       pg.XLogBlockSize,
		XlogSegSize:      pg.WalSegmentSize,
		NameDataLen:      64,
		IndexMaxKeys:     32,
		Float8ByVal:      true,
	})
}

type tarEntry struct {
	hdr  *tar.Header
	data []byte
}

// testingReadTarball reads every archive entry back, keyed by name
func testingReadTarball(t *testing.T, r io.Reader) map[string]tarEntry {
	entries := make(map[string]tarEntry)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.Nil(t, err)
		data, err := io.ReadAll(tr)
		require.Nil(t, err)
		entries[hdr.Name] = tarEntry{hdr: hdr, data: data}
	}
	return entries
}

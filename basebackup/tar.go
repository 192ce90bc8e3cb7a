package basebackup

import (
	"archive/tar"
	"time"
)

// newTarHeader builds the header of one generated archive entry: gnu format
// (not restricted to the old ustar limits), owner read/write, mtime set to
// the archive build time. archive/tar fills in the header checksum on write
// and rejects paths which do not fit the format
func newTarHeader(path string, size int64) *tar.Header {
	return &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     path,
		Size:     size,
		Mode:     0600,
		ModTime:  time.Now(),
		Format:   tar.FormatGNU,
	}
}

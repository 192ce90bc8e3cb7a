package basebackup

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/pg"
)

// errTablespaceNotSupported marks paths under pg_tblspc. non-default
// tablespaces are rejected rather than half supported
var errTablespaceNotSupported = errors.New("tablespaces are not supported")

// parseRelFilePath checks whether path, relative to the data directory root,
// names a relation data file in a supported location.
//
// relation data files live in one of:
//
//	global/                shared relations
//	base/<db oid>/         regular relations, default tablespace
//	pg_tblspc/<oid>/...    non-default tablespace (unsupported)
//
// and the file itself is named <relnode>[_<fork>][.<segno>]
func parseRelFilePath(path string) error {
	switch {
	case strings.HasPrefix(path, "global/"):
		_, _, _, err := pg.ParseRelFilename(strings.TrimPrefix(path, "global/"))
		return err

	case strings.HasPrefix(path, "base/"):
		parts := strings.Split(strings.TrimPrefix(path, "base/"), "/")
		if len(parts) != 2 {
			return pg.ErrInvalidFileName
		}
		if _, err := strconv.ParseUint(parts[0], 10, 32); err != nil {
			return pg.ErrInvalidFileName
		}
		_, _, _, err := pg.ParseRelFilename(parts[1])
		return err

	case strings.HasPrefix(path, "pg_tblspc/"):
		return errTablespaceNotSupported

	default:
		return pg.ErrInvalidFileName
	}
}

// isRelFilePath reports whether the path names an ordinary relation data file
func isRelFilePath(path string) bool {
	return parseRelFilePath(path) == nil
}

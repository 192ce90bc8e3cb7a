package pg

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/common"
)

// ForkNumber identifies one fork of a relation: the main data, the free
// space map, the visibility map or the unlogged-init fork
// see https://github.com/postgres/postgres/blob/a448e49bcbe40fb72e1ed85af910dd216d45bad8/src/include/common/relpath.h#L39-L60
type ForkNumber int

const (
	ForkNumberMain ForkNumber = iota
	ForkNumberFSM
	ForkNumberVM
	ForkNumberInit
)

// forkFileSuffix maps the non-main forks to their file name suffix.
// the main fork has no suffix
var forkFileSuffix = map[string]ForkNumber{
	"fsm":  ForkNumberFSM,
	"vm":   ForkNumberVM,
	"init": ForkNumberInit,
}

// ErrInvalidFileName means the name does not follow the relation data file
// naming scheme
var ErrInvalidFileName = errors.New("invalid relation data file name")

// ParseRelFilename parses a relation data file name of the form
// <relnode>[_<fork>][.<segno>], like `1249`, `1249_fsm` or `16384.3`
// see https://github.com/postgres/postgres/blob/a448e49bcbe40fb72e1ed85af910dd216d45bad8/src/common/relpath.c#L141-L178
func ParseRelFilename(name string) (common.Oid, ForkNumber, uint32, error) {
	var segno uint32
	fork := ForkNumberMain

	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		n, err := strconv.ParseUint(name[dot+1:], 10, 32)
		if err != nil {
			return 0, 0, 0, ErrInvalidFileName
		}
		segno = uint32(n)
		name = name[:dot]
	}
	if sep := strings.IndexByte(name, '_'); sep >= 0 {
		f, ok := forkFileSuffix[name[sep+1:]]
		if !ok {
			return 0, 0, 0, ErrInvalidFileName
		}
		fork = f
		name = name[:sep]
	}
	relnode, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, 0, 0, ErrInvalidFileName
	}
	return common.Oid(relnode), fork, segno, nil
}

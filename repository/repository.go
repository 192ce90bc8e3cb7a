/*
Package repository defines the capability through which basebackup reads page
images out of the page repository: a Timeline hands back the image of any
addressed object as of a given lsn, and lists the non-relation objects which
exist at that lsn.

The repository side (how pages are stored, indexed and materialized) lives
behind this interface; basebackup only needs stable reads at one lsn for the
duration of one call.
*/
package repository

import "github.com/poojanilangekar/zenith/common"

// Timeline is the read capability over one timeline of the page repository
type Timeline interface {
	// ListNonRels returns the tags of all non-relation objects present at
	// the lsn. pages of one slru segment arrive contiguously and categories
	// arrive grouped; basebackup's segment accumulator relies on this
	ListNonRels(lsn common.Lsn) ([]ObjectTag, error)

	// GetPageAtLsnNowait returns the image of the object as of the lsn.
	// it never waits for background materialization: if the image is not
	// resident the call fails
	GetPageAtLsnNowait(tag ObjectTag, lsn common.Lsn) ([]byte, error)
}

// DatabaseTag identifies a database: the tablespace it lives in and its oid
type DatabaseTag struct {
	SpcNode common.Oid
	DbNode  common.Oid
}

// ObjectTag addresses one non-relation object in the repository.
// the variants are comparable structs so tags can key a map
type ObjectTag interface {
	isObjectTag()
}

// ClogPage is one page of the commit log (pg_xact)
type ClogPage struct {
	Blknum uint32
}

// MultiXactMembersPage is one page of pg_multixact/members
type MultiXactMembersPage struct {
	Blknum uint32
}

// MultiXactOffsetsPage is one page of pg_multixact/offsets
type MultiXactOffsetsPage struct {
	Blknum uint32
}

// FileNodeMap is the relation mapper file (pg_filenode.map) of one database
type FileNodeMap struct {
	Db DatabaseTag
}

// TwoPhase is the state blob of one prepared transaction
type TwoPhase struct {
	Xid common.TransactionID
}

// Checkpoint is the most recent checkpoint record. it is addressed without
// an lsn: the repository keeps only the latest
type Checkpoint struct{}

// ControlFile is the most recent pg_control image, addressed like Checkpoint
type ControlFile struct{}

func (ClogPage) isObjectTag()             {}
func (MultiXactMembersPage) isObjectTag() {}
func (MultiXactOffsetsPage) isObjectTag() {}
func (FileNodeMap) isObjectTag()          {}
func (TwoPhase) isObjectTag()             {}
func (Checkpoint) isObjectTag()           {}
func (ControlFile) isObjectTag()          {}

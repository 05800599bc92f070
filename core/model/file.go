package model

import "github.com/google/uuid"

// File is one row of the files table, describing a logical file or
// directory. Version is the optimistic concurrency token for content
// updates; IsDeleted is a soft delete flag and never removes history.
type File struct {
	ID          int64     `db:"id"`
	Owner       uuid.UUID `db:"owner"`
	WorkspaceID uuid.UUID `db:"workspace_id"`
	ParentDirID int64     `db:"parent_dir_id"`
	Filename    string    `db:"filename"`
	IsDir       bool      `db:"is_dir"`
	IsDeleted   bool      `db:"is_deleted"`
	Size        int64     `db:"size"`
	Version     int64     `db:"version"`
}

// FileVersion is one row of the file_versions table: the append-only record
// of the ordered block list backing a file at a given version. Rows are
// never mutated or deleted.
type FileVersion struct {
	FileID       int64    `db:"file_id"`
	Version      int64    `db:"version"`
	BlockNames   []string `db:"block_names"`
	BlockDigests []string `db:"block_digests"`
}

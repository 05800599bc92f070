package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pyropy/cloudstore/core/model"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileExists      = errors.New("file already exists")
	ErrVersionConflict = errors.New("file version conflict")
)

// Ledger is the durable, transactional record of files and the append-only
// history of block lists per version. Content updates use the version
// column as an optimistic concurrency token: the conditional bump succeeds
// iff the version the writer observed is still current.
type Ledger struct {
	db *sqlx.DB
}

const fileColumns = "id, owner, workspace_id, parent_dir_id, filename, is_dir, is_deleted, size, version"

func New(db *sqlx.DB) *Ledger {
	return &Ledger{
		db: db,
	}
}

// Open connects to postgres at dsn.
func Open(dsn string) (*Ledger, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}

	return New(db), nil
}

// CheckOwner returns the file iff it exists, is owned by owner and is not
// soft deleted.
func (l *Ledger) CheckOwner(ctx context.Context, owner uuid.UUID, fileID int64) (*model.File, error) {
	var file model.File
	err := l.db.GetContext(ctx, &file,
		"SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false",
		fileID, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return &file, nil
}

// CreateFile inserts the file at version 1 together with its first version
// row, in one transaction. Fails with ErrFileExists if a live sibling with
// the same (parent dir, owner, filename) already exists.
func (l *Ledger) CreateFile(ctx context.Context, file model.File, blockNames, blockDigests []string) (*model.File, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	err = checkSibling(ctx, tx, file)
	if err != nil {
		return nil, err
	}

	file.IsDir = false
	file.IsDeleted = false
	file.Version = 1

	err = insertFile(ctx, tx, file)
	if err != nil {
		return nil, err
	}

	err = insertVersion(ctx, tx, file.ID, file.Version, blockNames, blockDigests)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return &file, nil
}

// CreateDir inserts a directory row. Directories carry no content, so no
// version row is written.
func (l *Ledger) CreateDir(ctx context.Context, dir model.File) (*model.File, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	err = checkSibling(ctx, tx, dir)
	if err != nil {
		return nil, err
	}

	dir.IsDir = true
	dir.IsDeleted = false
	dir.Size = 0
	dir.Version = 1

	err = insertFile(ctx, tx, dir)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return &dir, nil
}

// UpdateContent replaces the file's content with the given block list,
// advancing the version by exactly one. The row is re-read under an
// exclusive lock and the bump is conditional on the stored version still
// matching expectedVersion; a writer that lost the race gets
// ErrVersionConflict and must re-fetch and retry.
func (l *Ledger) UpdateContent(ctx context.Context, owner uuid.UUID, fileID, expectedVersion int64, blockNames, blockDigests []string, size int64) (*model.File, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var file model.File
	err = tx.GetContext(ctx, &file,
		"SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE",
		fileID, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	if file.Version != expectedVersion {
		return nil, fmt.Errorf("%w: have version %d, expected %d", ErrVersionConflict, file.Version, expectedVersion)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE files SET version = version + 1, size = $1 WHERE id = $2 AND version = $3",
		size, fileID, expectedVersion)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrVersionConflict
	}

	err = insertVersion(ctx, tx, fileID, expectedVersion+1, blockNames, blockDigests)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	file.Version = expectedVersion + 1
	file.Size = size

	return &file, nil
}

// Rename updates the filename only. Names are metadata, not content, so no
// new version is created.
func (l *Ledger) Rename(ctx context.Context, owner uuid.UUID, fileID int64, newName string) (*model.File, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var file model.File
	err = tx.GetContext(ctx, &file,
		"SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE",
		fileID, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, "UPDATE files SET filename = $1 WHERE id = $2", newName, fileID)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	file.Filename = newName

	return &file, nil
}

// SoftDelete marks the file deleted. Version history and blocks are never
// touched; the row just disappears from ownership and listing lookups.
func (l *Ledger) SoftDelete(ctx context.Context, owner uuid.UUID, fileID int64) error {
	res, err := l.db.ExecContext(ctx,
		"UPDATE files SET is_deleted = true WHERE id = $1 AND owner = $2 AND is_deleted = false",
		fileID, owner)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFileNotFound
	}

	return nil
}

// ListDir returns the live children of the directory.
func (l *Ledger) ListDir(ctx context.Context, owner uuid.UUID, parentDirID int64) ([]model.File, error) {
	files := []model.File{}
	err := l.db.SelectContext(ctx, &files,
		"SELECT "+fileColumns+" FROM files WHERE parent_dir_id = $1 AND owner = $2 AND is_deleted = false ORDER BY filename",
		parentDirID, owner)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// GetVersion returns the block list recorded for one version of a file.
func (l *Ledger) GetVersion(ctx context.Context, fileID, version int64) (*model.FileVersion, error) {
	fv := model.FileVersion{
		FileID:  fileID,
		Version: version,
	}

	row := l.db.QueryRowxContext(ctx,
		"SELECT block_names, block_digests FROM file_versions WHERE file_id = $1 AND version = $2",
		fileID, version)

	err := row.Scan(pq.Array(&fv.BlockNames), pq.Array(&fv.BlockDigests))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return &fv, nil
}

func checkSibling(ctx context.Context, tx *sqlx.Tx, file model.File) error {
	var existingID int64
	err := tx.GetContext(ctx, &existingID,
		"SELECT id FROM files WHERE parent_dir_id = $1 AND owner = $2 AND filename = $3 AND is_deleted = false",
		file.ParentDirID, file.Owner, file.Filename)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrFileExists, file.Filename)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	return nil
}

func insertFile(ctx context.Context, tx *sqlx.Tx, file model.File) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO files (id, owner, workspace_id, parent_dir_id, filename, is_dir, is_deleted, size, version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		file.ID, file.Owner, file.WorkspaceID, file.ParentDirID, file.Filename, file.IsDir, file.IsDeleted, file.Size, file.Version)

	return err
}

func insertVersion(ctx context.Context, tx *sqlx.Tx, fileID, version int64, blockNames, blockDigests []string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO file_versions (file_id, version, block_names, block_digests) VALUES ($1, $2, $3, $4)",
		fileID, version, pq.Array(blockNames), pq.Array(blockDigests))

	return err
}

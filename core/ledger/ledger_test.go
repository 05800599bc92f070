package ledger

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pyropy/cloudstore/core/model"
)

func newTestLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func fileRow(file model.File) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner", "workspace_id", "parent_dir_id", "filename", "is_dir", "is_deleted", "size", "version"}).
		AddRow(file.ID, file.Owner.String(), file.WorkspaceID.String(), file.ParentDirID, file.Filename, file.IsDir, file.IsDeleted, file.Size, file.Version)
}

func TestCheckOwner(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	file := model.File{ID: 7, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 10, Version: 1}

	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false").
		WithArgs(int64(7), owner).
		WillReturnRows(fileRow(file))

	got, err := l.CheckOwner(ctx, owner, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ID)
	require.Equal(t, owner, got.Owner)
	require.Equal(t, "a.txt", got.Filename)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOwnerNotFound(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false").
		WithArgs(int64(7), owner).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := l.CheckOwner(ctx, owner, 7)
	require.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFile(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()
	workspace := uuid.New()

	file := model.File{ID: 42, Owner: owner, WorkspaceID: workspace, ParentDirID: 1, Filename: "a.txt", Size: 10}
	names := []string{"block-0"}
	digests := []string{"digest-0"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM files WHERE parent_dir_id = $1 AND owner = $2 AND filename = $3 AND is_deleted = false").
		WithArgs(int64(1), owner, "a.txt").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO files (id, owner, workspace_id, parent_dir_id, filename, is_dir, is_deleted, size, version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)").
		WithArgs(int64(42), owner, workspace, int64(1), "a.txt", false, false, int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO file_versions (file_id, version, block_names, block_digests) VALUES ($1, $2, $3, $4)").
		WithArgs(int64(42), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := l.CreateFile(ctx, file, names, digests)
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)
	require.False(t, created.IsDir)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFileSiblingExists(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	file := model.File{ID: 42, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 10}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM files WHERE parent_dir_id = $1 AND owner = $2 AND filename = $3 AND is_deleted = false").
		WithArgs(int64(1), owner, "a.txt").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))
	mock.ExpectRollback()

	_, err := l.CreateFile(ctx, file, []string{"block-0"}, []string{"digest-0"})
	require.ErrorIs(t, err, ErrFileExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDir(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()
	workspace := uuid.New()

	dir := model.File{ID: 43, Owner: owner, WorkspaceID: workspace, ParentDirID: 1, Filename: "docs"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM files WHERE parent_dir_id = $1 AND owner = $2 AND filename = $3 AND is_deleted = false").
		WithArgs(int64(1), owner, "docs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO files (id, owner, workspace_id, parent_dir_id, filename, is_dir, is_deleted, size, version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)").
		WithArgs(int64(43), owner, workspace, int64(1), "docs", true, false, int64(0), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := l.CreateDir(ctx, dir)
	require.NoError(t, err)
	require.True(t, created.IsDir)
	require.Equal(t, int64(0), created.Size)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContent(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	file := model.File{ID: 7, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 10, Version: 1}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE").
		WithArgs(int64(7), owner).
		WillReturnRows(fileRow(file))
	mock.ExpectExec("UPDATE files SET version = version + 1, size = $1 WHERE id = $2 AND version = $3").
		WithArgs(int64(20), int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO file_versions (file_id, version, block_names, block_digests) VALUES ($1, $2, $3, $4)").
		WithArgs(int64(7), int64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := l.UpdateContent(ctx, owner, 7, 1, []string{"block-1"}, []string{"digest-1"}, 20)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, int64(20), updated.Size)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContentStaleVersion(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	// another writer already advanced the file to version 2
	file := model.File{ID: 7, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 20, Version: 2}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE").
		WithArgs(int64(7), owner).
		WillReturnRows(fileRow(file))
	mock.ExpectRollback()

	_, err := l.UpdateContent(ctx, owner, 7, 1, []string{"block-1"}, []string{"digest-1"}, 30)
	require.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContentLostRace(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	file := model.File{ID: 7, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 10, Version: 1}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE").
		WithArgs(int64(7), owner).
		WillReturnRows(fileRow(file))
	mock.ExpectExec("UPDATE files SET version = version + 1, size = $1 WHERE id = $2 AND version = $3").
		WithArgs(int64(20), int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := l.UpdateContent(ctx, owner, 7, 1, []string{"block-1"}, []string{"digest-1"}, 20)
	require.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	file := model.File{ID: 7, Owner: owner, WorkspaceID: uuid.New(), ParentDirID: 1, Filename: "a.txt", Size: 10, Version: 3}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE id = $1 AND owner = $2 AND is_deleted = false FOR UPDATE").
		WithArgs(int64(7), owner).
		WillReturnRows(fileRow(file))
	mock.ExpectExec("UPDATE files SET filename = $1 WHERE id = $2").
		WithArgs("b.txt", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	renamed, err := l.Rename(ctx, owner, 7, "b.txt")
	require.NoError(t, err)
	require.Equal(t, "b.txt", renamed.Filename)
	// renaming must not advance the version
	require.Equal(t, int64(3), renamed.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	mock.ExpectExec("UPDATE files SET is_deleted = true WHERE id = $1 AND owner = $2 AND is_deleted = false").
		WithArgs(int64(7), owner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := l.SoftDelete(ctx, owner, 7)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()

	mock.ExpectExec("UPDATE files SET is_deleted = true WHERE id = $1 AND owner = $2 AND is_deleted = false").
		WithArgs(int64(7), owner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := l.SoftDelete(ctx, owner, 7)
	require.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDir(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)
	owner := uuid.New()
	workspace := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "owner", "workspace_id", "parent_dir_id", "filename", "is_dir", "is_deleted", "size", "version"}).
		AddRow(int64(2), owner.String(), workspace.String(), int64(1), "a.txt", false, false, int64(10), int64(1)).
		AddRow(int64(3), owner.String(), workspace.String(), int64(1), "docs", true, false, int64(0), int64(1))

	mock.ExpectQuery("SELECT "+fileColumns+" FROM files WHERE parent_dir_id = $1 AND owner = $2 AND is_deleted = false ORDER BY filename").
		WithArgs(int64(1), owner).
		WillReturnRows(rows)

	files, err := l.ListDir(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.txt", files[0].Filename)
	require.True(t, files[1].IsDir)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersion(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{"block_names", "block_digests"}).
		AddRow("{block-0,block-1}", "{digest-0,digest-1}")

	mock.ExpectQuery("SELECT block_names, block_digests FROM file_versions WHERE file_id = $1 AND version = $2").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(rows)

	fv, err := l.GetVersion(ctx, 7, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"block-0", "block-1"}, fv.BlockNames)
	require.Equal(t, []string{"digest-0", "digest-1"}, fv.BlockDigests)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersionNotFound(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT block_names, block_digests FROM file_versions WHERE file_id = $1 AND version = $2").
		WithArgs(int64(7), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"block_names", "block_digests"}))

	_, err := l.GetVersion(ctx, 7, 9)
	require.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

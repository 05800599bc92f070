package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pyropy/cloudstore/core/blockstore"
	"github.com/pyropy/cloudstore/core/chunker"
	"github.com/pyropy/cloudstore/core/model"
	"github.com/pyropy/cloudstore/lib/digest"
	"github.com/pyropy/cloudstore/lib/snowflake"
)

var (
	ErrNotADirectory  = errors.New("target parent is not a directory")
	ErrIsADirectory   = errors.New("target is a directory")
	ErrBlockCorrupted = errors.New("block digest mismatch")
)

// Ledger is the durable file record collaborator Cloud drives. Implemented
// by the postgres backed ledger package.
type Ledger interface {
	CheckOwner(ctx context.Context, owner uuid.UUID, fileID int64) (*model.File, error)
	CreateFile(ctx context.Context, file model.File, blockNames, blockDigests []string) (*model.File, error)
	CreateDir(ctx context.Context, dir model.File) (*model.File, error)
	UpdateContent(ctx context.Context, owner uuid.UUID, fileID, expectedVersion int64, blockNames, blockDigests []string, size int64) (*model.File, error)
	Rename(ctx context.Context, owner uuid.UUID, fileID int64, newName string) (*model.File, error)
	SoftDelete(ctx context.Context, owner uuid.UUID, fileID int64) error
	ListDir(ctx context.Context, owner uuid.UUID, parentDirID int64) ([]model.File, error)
	GetVersion(ctx context.Context, fileID, version int64) (*model.FileVersion, error)
}

// Cloud composes the chunker, block store, ledger and id allocator into the
// whole-buffer file operations: single-shot upload, fetch, content update,
// directory and metadata management.
type Cloud struct {
	log          *zap.SugaredLogger
	blocks       blockstore.Store
	ledger       Ledger
	ids          *snowflake.Snowflake
	blockMaxSize int
}

func New(log *zap.SugaredLogger, blocks blockstore.Store, ledger Ledger, ids *snowflake.Snowflake, blockMaxSize int) *Cloud {
	if blockMaxSize <= 0 {
		blockMaxSize = chunker.DefaultBlockMaxSize
	}

	return &Cloud{
		log:          log,
		blocks:       blocks,
		ledger:       ledger,
		ids:          ids,
		blockMaxSize: blockMaxSize,
	}
}

// CreateFile stores data as a new file under parentDirID in one shot: cut
// into blocks, persist the blocks, then record the file at version 1.
func (c *Cloud) CreateFile(ctx context.Context, owner, workspaceID uuid.UUID, parentDirID int64, filename string, data []byte) (*model.File, error) {
	err := c.checkParentDir(ctx, owner, parentDirID)
	if err != nil {
		return nil, err
	}

	blocks, digests := chunker.Cut(data, c.blockMaxSize)
	err = c.blocks.WriteBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	id, err := c.ids.NextID()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(blocks))
	for _, block := range blocks {
		names = append(names, block.Name)
	}

	file := model.File{
		ID:          id,
		Owner:       owner,
		WorkspaceID: workspaceID,
		ParentDirID: parentDirID,
		Filename:    filename,
		Size:        int64(len(data)),
		Version:     1,
	}

	return c.ledger.CreateFile(ctx, file, names, digests)
}

// CreateDir records a new directory under parentDirID. Directories have no
// content and no version history.
func (c *Cloud) CreateDir(ctx context.Context, owner, workspaceID uuid.UUID, parentDirID int64, name string) (*model.File, error) {
	err := c.checkParentDir(ctx, owner, parentDirID)
	if err != nil {
		return nil, err
	}

	id, err := c.ids.NextID()
	if err != nil {
		return nil, err
	}

	dir := model.File{
		ID:          id,
		Owner:       owner,
		WorkspaceID: workspaceID,
		ParentDirID: parentDirID,
		Filename:    name,
		IsDir:       true,
	}

	return c.ledger.CreateDir(ctx, dir)
}

// GetFile reconstructs the current version of the file: reads its blocks in
// ledger order, verifies every block against the digest recorded at write
// time and merges them back into the original bytes.
func (c *Cloud) GetFile(ctx context.Context, owner uuid.UUID, fileID int64) (*model.File, []byte, error) {
	file, err := c.ledger.CheckOwner(ctx, owner, fileID)
	if err != nil {
		return nil, nil, err
	}

	if file.IsDir {
		return nil, nil, ErrIsADirectory
	}

	version, err := c.ledger.GetVersion(ctx, file.ID, file.Version)
	if err != nil {
		return nil, nil, err
	}

	blocks, err := c.blocks.ReadBlocks(ctx, version.BlockNames)
	if err != nil {
		return nil, nil, err
	}

	for i, block := range blocks {
		if digest.SHA256Hex(block.Data) != version.BlockDigests[i] {
			return nil, nil, fmt.Errorf("%w: block %s of file %d", ErrBlockCorrupted, block.Name, file.ID)
		}
	}

	return file, chunker.Merge(blocks), nil
}

// UpdateContent replaces the file's content, advancing its version by one.
// expectedVersion is the version the caller last observed; a concurrent
// writer that advanced it first causes a version conflict and the caller
// must re-fetch and retry.
func (c *Cloud) UpdateContent(ctx context.Context, owner uuid.UUID, fileID, expectedVersion int64, data []byte) (*model.File, error) {
	file, err := c.ledger.CheckOwner(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	if file.IsDir {
		return nil, ErrIsADirectory
	}

	blocks, digests := chunker.Cut(data, c.blockMaxSize)
	err = c.blocks.WriteBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(blocks))
	for _, block := range blocks {
		names = append(names, block.Name)
	}

	return c.ledger.UpdateContent(ctx, owner, fileID, expectedVersion, names, digests, int64(len(data)))
}

// Stat returns the file descriptor iff owned by owner and not deleted.
func (c *Cloud) Stat(ctx context.Context, owner uuid.UUID, fileID int64) (*model.File, error) {
	return c.ledger.CheckOwner(ctx, owner, fileID)
}

// ListDir lists the live children of a directory owned by owner.
func (c *Cloud) ListDir(ctx context.Context, owner uuid.UUID, dirID int64) ([]model.File, error) {
	dir, err := c.ledger.CheckOwner(ctx, owner, dirID)
	if err != nil {
		return nil, err
	}

	if !dir.IsDir {
		return nil, ErrNotADirectory
	}

	return c.ledger.ListDir(ctx, owner, dirID)
}

// Rename changes the filename only; content and version are untouched.
func (c *Cloud) Rename(ctx context.Context, owner uuid.UUID, fileID int64, newName string) (*model.File, error) {
	return c.ledger.Rename(ctx, owner, fileID, newName)
}

// Delete soft deletes the file. Blocks and version history stay in place.
func (c *Cloud) Delete(ctx context.Context, owner uuid.UUID, fileID int64) error {
	return c.ledger.SoftDelete(ctx, owner, fileID)
}

func (c *Cloud) checkParentDir(ctx context.Context, owner uuid.UUID, parentDirID int64) error {
	parent, err := c.ledger.CheckOwner(ctx, owner, parentDirID)
	if err != nil {
		return err
	}

	if !parent.IsDir {
		return ErrNotADirectory
	}

	return nil
}

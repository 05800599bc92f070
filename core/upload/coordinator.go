package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pyropy/cloudstore/core/blockstore"
	"github.com/pyropy/cloudstore/core/chunker"
	"github.com/pyropy/cloudstore/core/model"
	"github.com/pyropy/cloudstore/lib/digest"
	"github.com/pyropy/cloudstore/lib/snowflake"
)

var (
	ErrIntegrityMismatch  = errors.New("chunk integrity mismatch")
	ErrChunkCountMismatch = errors.New("chunk count mismatch")
	ErrNotSessionOwner    = errors.New("not the session owner")
	ErrNotADirectory      = errors.New("target parent is not a directory")
)

// Ledger is the slice of the file version ledger the coordinator needs:
// ownership checks when opening a session and the transactional file
// creation on finalize.
type Ledger interface {
	CheckOwner(ctx context.Context, owner uuid.UUID, fileID int64) (*model.File, error)
	CreateFile(ctx context.Context, file model.File, blockNames, blockDigests []string) (*model.File, error)
}

// Coordinator arbitrates resumable uploads: it owns the transient session
// state, verifies chunk integrity before anything touches the block store
// and hands the accumulated block list to the ledger on finalize.
type Coordinator struct {
	log      *zap.SugaredLogger
	sessions *SessionStore
	blocks   blockstore.Store
	ledger   Ledger
	ids      *snowflake.Snowflake
}

func NewCoordinator(log *zap.SugaredLogger, sessions *SessionStore, blocks blockstore.Store, ledger Ledger, ids *snowflake.Snowflake) *Coordinator {
	return &Coordinator{
		log:      log,
		sessions: sessions,
		blocks:   blocks,
		ledger:   ledger,
		ids:      ids,
	}
}

// OpenSession validates that owner may write under parentDirID and records
// a new session with a bounded expiry.
func (c *Coordinator) OpenSession(ctx context.Context, owner, workspaceID uuid.UUID, parentDirID int64, filename string) (*model.UploadSession, error) {
	parent, err := c.ledger.CheckOwner(ctx, owner, parentDirID)
	if err != nil {
		return nil, err
	}

	if !parent.IsDir {
		return nil, ErrNotADirectory
	}

	session := model.NewUploadSession(owner, workspaceID, parentDirID, filename)
	err = c.sessions.PutSession(ctx, session)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// SubmitChunk verifies the chunk against the digest and size the client
// claims, stores it as a single block and records a receipt keyed by
// (session, index). Resubmitting an index overwrites the prior receipt;
// racing submissions of the same index are last-writer-wins. A chunk that
// fails verification never reaches the block store.
func (c *Coordinator) SubmitChunk(ctx context.Context, sessionID string, owner uuid.UUID, index int, expectedDigest string, expectedSize int64, data []byte) (*model.ChunkReceipt, error) {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Owner != owner {
		return nil, ErrNotSessionOwner
	}

	if int64(len(data)) != expectedSize {
		return nil, fmt.Errorf("%w: size %d, expected %d", ErrIntegrityMismatch, len(data), expectedSize)
	}

	actualDigest := digest.SHA256Hex(data)
	if actualDigest != expectedDigest {
		return nil, fmt.Errorf("%w: digest %s, expected %s", ErrIntegrityMismatch, actualDigest, expectedDigest)
	}

	block := model.NewBlock(chunker.NewBlockName(), data)
	err = c.blocks.WriteBlocks(ctx, []model.Block{block})
	if err != nil {
		return nil, err
	}

	receipt := model.ChunkReceipt{
		SessionID: sessionID,
		Index:     index,
		BlockName: block.Name,
		Digest:    actualDigest,
		Size:      expectedSize,
	}

	err = c.sessions.PutReceipt(ctx, receipt)
	if err != nil {
		return nil, err
	}

	return &receipt, nil
}

// Finalize commits the session. The receipt count must equal totalChunks;
// on any failure the session is left intact so the client can retry or let
// it expire. On success the ordered block list becomes version 1 of a new
// file and the session is discarded.
func (c *Coordinator) Finalize(ctx context.Context, sessionID string, owner uuid.UUID, totalChunks int) (*model.File, error) {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Owner != owner {
		return nil, ErrNotSessionOwner
	}

	receipts, err := c.sessions.ListReceipts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if len(receipts) != totalChunks {
		return nil, fmt.Errorf("%w: have %d receipts, expected %d", ErrChunkCountMismatch, len(receipts), totalChunks)
	}

	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Index < receipts[j].Index
	})

	var size int64
	blockNames := make([]string, 0, len(receipts))
	blockDigests := make([]string, 0, len(receipts))
	for _, receipt := range receipts {
		size += receipt.Size
		blockNames = append(blockNames, receipt.BlockName)
		blockDigests = append(blockDigests, receipt.Digest)
	}

	id, err := c.ids.NextID()
	if err != nil {
		return nil, err
	}

	file := model.File{
		ID:          id,
		Owner:       session.Owner,
		WorkspaceID: session.WorkspaceID,
		ParentDirID: session.ParentDirID,
		Filename:    session.Filename,
		Size:        size,
		Version:     1,
	}

	created, err := c.ledger.CreateFile(ctx, file, blockNames, blockDigests)
	if err != nil {
		return nil, err
	}

	err = c.sessions.DeleteSession(ctx, sessionID)
	if err != nil {
		// the file is committed; a stale session only lingers until
		// its TTL runs out
		c.log.Errorw("finalize", "error", "session cleanup failed", "sessionID", sessionID, "err", err)
	}

	return created, nil
}

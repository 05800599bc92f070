package model

import (
	"time"

	"github.com/google/uuid"
)

// UploadSession is the transient record of an in-progress resumable upload.
// It lives only in the session store, never in the ledger.
type UploadSession struct {
	ID          string    `json:"id"`
	Owner       uuid.UUID `json:"owner"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ParentDirID int64     `json:"parent_dir_id"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChunkReceipt records one successfully stored chunk of a session. Keyed by
// (session id, chunk index), so resubmitting an index overwrites the prior
// receipt instead of double counting.
type ChunkReceipt struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	BlockName string `json:"block_name"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

func NewUploadSession(owner, workspaceID uuid.UUID, parentDirID int64, filename string) UploadSession {
	return UploadSession{
		ID:          uuid.New().String(),
		Owner:       owner,
		WorkspaceID: workspaceID,
		ParentDirID: parentDirID,
		Filename:    filename,
		CreatedAt:   time.Now().UTC(),
	}
}

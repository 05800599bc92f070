package cloudstore

import "github.com/google/uuid"

// FileInfo is the file descriptor returned by every file operation.
type FileInfo struct {
	ID          int64
	Filename    string
	IsDir       bool
	ParentDirID int64
	Size        int64
	Version     int64
}

type CreateFileArgs struct {
	Owner       uuid.UUID
	WorkspaceID uuid.UUID
	ParentDirID int64
	Filename    string
	Data        []byte
}

type CreateFileReply struct {
	File FileInfo
}

type CreateDirArgs struct {
	Owner       uuid.UUID
	WorkspaceID uuid.UUID
	ParentDirID int64
	Name        string
}

type CreateDirReply struct {
	File FileInfo
}

type GetFileArgs struct {
	Owner  uuid.UUID
	FileID int64
}

type GetFileReply struct {
	File FileInfo
	Data []byte
}

type StatArgs struct {
	Owner  uuid.UUID
	FileID int64
}

type StatReply struct {
	File FileInfo
}

type ListDirArgs struct {
	Owner uuid.UUID
	DirID int64
}

type ListDirReply struct {
	Files []FileInfo
}

type UpdateContentArgs struct {
	Owner           uuid.UUID
	FileID          int64
	ExpectedVersion int64
	Data            []byte
}

type UpdateContentReply struct {
	File FileInfo
}

type RenameArgs struct {
	Owner   uuid.UUID
	FileID  int64
	NewName string
}

type RenameReply struct {
	File FileInfo
}

type DeleteArgs struct {
	Owner  uuid.UUID
	FileID int64
}

type DeleteReply struct {
}

type OpenSessionArgs struct {
	Owner       uuid.UUID
	WorkspaceID uuid.UUID
	ParentDirID int64
	Filename    string
}

type OpenSessionReply struct {
	SessionID string
}

type SubmitChunkArgs struct {
	Owner     uuid.UUID
	SessionID string
	Index     int
	Digest    string
	Size      int64
	Data      []byte
}

type SubmitChunkReply struct {
	BlockName string
}

type FinalizeArgs struct {
	Owner       uuid.UUID
	SessionID   string
	TotalChunks int
}

type FinalizeReply struct {
	File FileInfo
}

package main

import (
	"context"

	"github.com/pyropy/cloudstore/core/cloud"
	"github.com/pyropy/cloudstore/core/model"
	"github.com/pyropy/cloudstore/core/upload"
	rpc "github.com/pyropy/cloudstore/rpc/cloudstore"
)

type API struct {
	cloud   *cloud.Cloud
	uploads *upload.Coordinator
}

func NewAPI(c *cloud.Cloud, uploads *upload.Coordinator) *API {
	return &API{
		cloud:   c,
		uploads: uploads,
	}
}

func fileInfo(file *model.File) rpc.FileInfo {
	return rpc.FileInfo{
		ID:          file.ID,
		Filename:    file.Filename,
		IsDir:       file.IsDir,
		ParentDirID: file.ParentDirID,
		Size:        file.Size,
		Version:     file.Version,
	}
}

// CreateFile stores a whole buffer as a new file in one shot.
func (a *API) CreateFile(args *rpc.CreateFileArgs, reply *rpc.CreateFileReply) error {
	log.Infow("rpc", "event", "API.CreateFile", "owner", args.Owner, "filename", args.Filename, "size", len(args.Data))

	file, err := a.cloud.CreateFile(context.Background(), args.Owner, args.WorkspaceID, args.ParentDirID, args.Filename, args.Data)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	return nil
}

// CreateDir ...
func (a *API) CreateDir(args *rpc.CreateDirArgs, reply *rpc.CreateDirReply) error {
	log.Infow("rpc", "event", "API.CreateDir", "owner", args.Owner, "name", args.Name)

	dir, err := a.cloud.CreateDir(context.Background(), args.Owner, args.WorkspaceID, args.ParentDirID, args.Name)
	if err != nil {
		return err
	}

	reply.File = fileInfo(dir)
	return nil
}

// GetFile reconstructs and returns the current content of a file.
func (a *API) GetFile(args *rpc.GetFileArgs, reply *rpc.GetFileReply) error {
	log.Infow("rpc", "event", "API.GetFile", "owner", args.Owner, "fileID", args.FileID)

	file, data, err := a.cloud.GetFile(context.Background(), args.Owner, args.FileID)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	reply.Data = data
	return nil
}

// Stat ...
func (a *API) Stat(args *rpc.StatArgs, reply *rpc.StatReply) error {
	log.Infow("rpc", "event", "API.Stat", "owner", args.Owner, "fileID", args.FileID)

	file, err := a.cloud.Stat(context.Background(), args.Owner, args.FileID)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	return nil
}

// ListDir ...
func (a *API) ListDir(args *rpc.ListDirArgs, reply *rpc.ListDirReply) error {
	log.Infow("rpc", "event", "API.ListDir", "owner", args.Owner, "dirID", args.DirID)

	files, err := a.cloud.ListDir(context.Background(), args.Owner, args.DirID)
	if err != nil {
		return err
	}

	reply.Files = make([]rpc.FileInfo, 0, len(files))
	for i := range files {
		reply.Files = append(reply.Files, fileInfo(&files[i]))
	}
	return nil
}

// UpdateContent replaces a file's content, guarded by the version the
// caller last observed.
func (a *API) UpdateContent(args *rpc.UpdateContentArgs, reply *rpc.UpdateContentReply) error {
	log.Infow("rpc", "event", "API.UpdateContent", "owner", args.Owner, "fileID", args.FileID, "expectedVersion", args.ExpectedVersion)

	file, err := a.cloud.UpdateContent(context.Background(), args.Owner, args.FileID, args.ExpectedVersion, args.Data)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	return nil
}

// Rename ...
func (a *API) Rename(args *rpc.RenameArgs, reply *rpc.RenameReply) error {
	log.Infow("rpc", "event", "API.Rename", "owner", args.Owner, "fileID", args.FileID, "newName", args.NewName)

	file, err := a.cloud.Rename(context.Background(), args.Owner, args.FileID, args.NewName)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	return nil
}

// Delete ...
func (a *API) Delete(args *rpc.DeleteArgs, _ *rpc.DeleteReply) error {
	log.Infow("rpc", "event", "API.Delete", "owner", args.Owner, "fileID", args.FileID)

	return a.cloud.Delete(context.Background(), args.Owner, args.FileID)
}

// OpenSession starts a resumable upload targeting a directory.
func (a *API) OpenSession(args *rpc.OpenSessionArgs, reply *rpc.OpenSessionReply) error {
	log.Infow("rpc", "event", "API.OpenSession", "owner", args.Owner, "filename", args.Filename)

	session, err := a.uploads.OpenSession(context.Background(), args.Owner, args.WorkspaceID, args.ParentDirID, args.Filename)
	if err != nil {
		return err
	}

	reply.SessionID = session.ID
	return nil
}

// SubmitChunk verifies and stores one chunk of a resumable upload.
func (a *API) SubmitChunk(args *rpc.SubmitChunkArgs, reply *rpc.SubmitChunkReply) error {
	log.Infow("rpc", "event", "API.SubmitChunk", "sessionID", args.SessionID, "index", args.Index, "size", args.Size)

	receipt, err := a.uploads.SubmitChunk(context.Background(), args.SessionID, args.Owner, args.Index, args.Digest, args.Size, args.Data)
	if err != nil {
		return err
	}

	reply.BlockName = receipt.BlockName
	return nil
}

// Finalize commits a resumable upload into a new file.
func (a *API) Finalize(args *rpc.FinalizeArgs, reply *rpc.FinalizeReply) error {
	log.Infow("rpc", "event", "API.Finalize", "sessionID", args.SessionID, "totalChunks", args.TotalChunks)

	file, err := a.uploads.Finalize(context.Background(), args.SessionID, args.Owner, args.TotalChunks)
	if err != nil {
		return err
	}

	reply.File = fileInfo(file)
	return nil
}

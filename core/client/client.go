package client

import (
	"net/rpc"

	"github.com/google/uuid"

	"github.com/pyropy/cloudstore/core/chunker"
	"github.com/pyropy/cloudstore/lib/digest"
	cloudRPC "github.com/pyropy/cloudstore/rpc/cloudstore"
)

// Client talks to the cloudstore rpc API on behalf of one owner inside one
// workspace.
type Client struct {
	*FileInfoStore

	RpcClient   *rpc.Client
	Owner       uuid.UUID
	WorkspaceID uuid.UUID
}

func NewClient(addr, dsPath string, owner, workspaceID uuid.UUID) (*Client, error) {
	rpcClient, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}

	fileInfoStore, err := NewFileInfoStore(dsPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		RpcClient:     rpcClient,
		FileInfoStore: fileInfoStore,
		Owner:         owner,
		WorkspaceID:   workspaceID,
	}, nil
}

func (c *Client) CreateFile(parentDirID int64, filename string, data []byte) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.CreateFileReply
	args := &cloudRPC.CreateFileArgs{
		Owner:       c.Owner,
		WorkspaceID: c.WorkspaceID,
		ParentDirID: parentDirID,
		Filename:    filename,
		Data:        data,
	}

	err := c.RpcClient.Call("API.CreateFile", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

func (c *Client) CreateDir(parentDirID int64, name string) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.CreateDirReply
	args := &cloudRPC.CreateDirArgs{
		Owner:       c.Owner,
		WorkspaceID: c.WorkspaceID,
		ParentDirID: parentDirID,
		Name:        name,
	}

	err := c.RpcClient.Call("API.CreateDir", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

func (c *Client) GetFile(fileID int64) (*cloudRPC.FileInfo, []byte, error) {
	var reply cloudRPC.GetFileReply
	args := &cloudRPC.GetFileArgs{Owner: c.Owner, FileID: fileID}

	err := c.RpcClient.Call("API.GetFile", args, &reply)
	if err != nil {
		return nil, nil, err
	}

	return &reply.File, reply.Data, nil
}

func (c *Client) Stat(fileID int64) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.StatReply
	args := &cloudRPC.StatArgs{Owner: c.Owner, FileID: fileID}

	err := c.RpcClient.Call("API.Stat", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

func (c *Client) ListDir(dirID int64) ([]cloudRPC.FileInfo, error) {
	var reply cloudRPC.ListDirReply
	args := &cloudRPC.ListDirArgs{Owner: c.Owner, DirID: dirID}

	err := c.RpcClient.Call("API.ListDir", args, &reply)
	if err != nil {
		return nil, err
	}

	return reply.Files, nil
}

func (c *Client) UpdateContent(fileID, expectedVersion int64, data []byte) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.UpdateContentReply
	args := &cloudRPC.UpdateContentArgs{
		Owner:           c.Owner,
		FileID:          fileID,
		ExpectedVersion: expectedVersion,
		Data:            data,
	}

	err := c.RpcClient.Call("API.UpdateContent", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

func (c *Client) Rename(fileID int64, newName string) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.RenameReply
	args := &cloudRPC.RenameArgs{Owner: c.Owner, FileID: fileID, NewName: newName}

	err := c.RpcClient.Call("API.Rename", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

func (c *Client) Delete(fileID int64) error {
	var reply cloudRPC.DeleteReply
	args := &cloudRPC.DeleteArgs{Owner: c.Owner, FileID: fileID}

	return c.RpcClient.Call("API.Delete", args, &reply)
}

func (c *Client) OpenSession(parentDirID int64, filename string) (string, error) {
	var reply cloudRPC.OpenSessionReply
	args := &cloudRPC.OpenSessionArgs{
		Owner:       c.Owner,
		WorkspaceID: c.WorkspaceID,
		ParentDirID: parentDirID,
		Filename:    filename,
	}

	err := c.RpcClient.Call("API.OpenSession", args, &reply)
	if err != nil {
		return "", err
	}

	return reply.SessionID, nil
}

func (c *Client) SubmitChunk(sessionID string, index int, data []byte) error {
	var reply cloudRPC.SubmitChunkReply
	args := &cloudRPC.SubmitChunkArgs{
		Owner:     c.Owner,
		SessionID: sessionID,
		Index:     index,
		Digest:    digest.SHA256Hex(data),
		Size:      int64(len(data)),
		Data:      data,
	}

	return c.RpcClient.Call("API.SubmitChunk", args, &reply)
}

func (c *Client) Finalize(sessionID string, totalChunks int) (*cloudRPC.FileInfo, error) {
	var reply cloudRPC.FinalizeReply
	args := &cloudRPC.FinalizeArgs{
		Owner:       c.Owner,
		SessionID:   sessionID,
		TotalChunks: totalChunks,
	}

	err := c.RpcClient.Call("API.Finalize", args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply.File, nil
}

// UploadChunked streams data through a resumable upload session, one chunk
// per block of at most chunkSize bytes.
func (c *Client) UploadChunked(parentDirID int64, filename string, data []byte, chunkSize int) (*cloudRPC.FileInfo, error) {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultBlockMaxSize
	}

	sessionID, err := c.OpenSession(parentDirID, filename)
	if err != nil {
		return nil, err
	}

	index := 0
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}

		err = c.SubmitChunk(sessionID, index, data[offset:end])
		if err != nil {
			return nil, err
		}
		index++
	}

	return c.Finalize(sessionID, index)
}

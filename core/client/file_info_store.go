package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"

	rpc "github.com/pyropy/cloudstore/rpc/cloudstore"
)

// FileInfoStore keeps a local record of files the client has created, so
// listing and content updates can be driven without asking the server for
// ids.
type FileInfoStore struct {
	Files *dslvl.Datastore
}

func NewFileInfoStore(dsPath string) (*FileInfoStore, error) {
	p := fmt.Sprintf("%s/files", dsPath)
	store, err := dslvl.NewDatastore(p, nil)
	if err != nil {
		return nil, err
	}

	return &FileInfoStore{
		Files: store,
	}, nil
}

func (f *FileInfoStore) Get(ctx context.Context, id int64) (*rpc.FileInfo, error) {
	b, err := f.Files.Get(ctx, fileKey(id))
	if err != nil {
		return nil, err
	}

	var file rpc.FileInfo
	err = json.Unmarshal(b, &file)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (f *FileInfoStore) Add(ctx context.Context, file rpc.FileInfo) error {
	b, err := json.Marshal(file)
	if err != nil {
		return err
	}

	return f.Files.Put(ctx, fileKey(file.ID), b)
}

func (f *FileInfoStore) Delete(ctx context.Context, id int64) error {
	return f.Files.Delete(ctx, fileKey(id))
}

func (f *FileInfoStore) All(ctx context.Context) ([]*rpc.FileInfo, error) {
	q := dsq.Query{}
	files := make([]*rpc.FileInfo, 0)

	res, err := f.Files.Query(ctx, q)
	if err != nil {
		return files, err
	}

	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}

		var file rpc.FileInfo
		err = json.Unmarshal(r.Value, &file)
		if err != nil {
			return files, err
		}
		files = append(files, &file)
	}

	return files, err
}

func fileKey(id int64) ds.Key {
	return ds.NewKey("/" + strconv.FormatInt(id, 10))
}

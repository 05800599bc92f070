package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pyropy/cloudstore/core/model"
)

// S3Store stores blocks in an S3 compatible object store, one object per
// block, keyed with the same two level fan-out the filesystem backend uses.
type S3Store struct {
	client *minio.Client
	bucket string
}

func NewS3Store(endpoint, bucket, accessKey, secretKey string, secure bool) (*S3Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *S3Store) WriteBlocks(ctx context.Context, blocks []model.Block) error {
	for _, block := range blocks {
		key, err := objectKey(block.Name)
		if err != nil {
			return err
		}

		reader := bytes.NewReader(block.Data)
		_, err = s.client.PutObject(ctx, s.bucket, key, reader, int64(len(block.Data)), minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("put block %s: %w", block.Name, err)
		}
	}

	return nil
}

func (s *S3Store) ReadBlocks(ctx context.Context, names []string) ([]model.Block, error) {
	blocks := make([]model.Block, 0, len(names))
	for _, name := range names {
		key, err := objectKey(name)
		if err != nil {
			return nil, err
		}

		object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get block %s: %w", name, err)
		}

		data, err := io.ReadAll(object)
		object.Close()
		if err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, name)
			}
			return nil, fmt.Errorf("read block %s: %w", name, err)
		}

		blocks = append(blocks, model.NewBlock(name, data))
	}

	return blocks, nil
}

func objectKey(name string) (string, error) {
	if len(name) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlockName, name)
	}

	// object keys always use forward slashes regardless of host OS
	return path.Join(name[0:1], name[1:2], name), nil
}

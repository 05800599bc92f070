package blockstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pyropy/cloudstore/core/model"
)

// FSStore stores blocks as files under rootDir, fanned out over two levels
// of subdirectories derived from the block name.
type FSStore struct {
	rootDir string
}

func NewFSStore(rootDir string) *FSStore {
	return &FSStore{
		rootDir: rootDir,
	}
}

func (s *FSStore) WriteBlocks(ctx context.Context, blocks []model.Block) error {
	for _, block := range blocks {
		relPath, err := BlockPath(block.Name)
		if err != nil {
			return err
		}

		path := filepath.Join(s.rootDir, relPath)
		err = os.MkdirAll(filepath.Dir(path), 0750)
		if err != nil {
			return fmt.Errorf("create block dir: %w", err)
		}

		err = os.WriteFile(path, block.Data, 0640)
		if err != nil {
			return fmt.Errorf("write block %s: %w", block.Name, err)
		}
	}

	return nil
}

func (s *FSStore) ReadBlocks(ctx context.Context, names []string) ([]model.Block, error) {
	blocks := make([]model.Block, 0, len(names))
	for _, name := range names {
		relPath, err := BlockPath(name)
		if err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(s.rootDir, relPath))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, name)
			}
			return nil, fmt.Errorf("read block %s: %w", name, err)
		}

		blocks = append(blocks, model.NewBlock(name, data))
	}

	return blocks, nil
}

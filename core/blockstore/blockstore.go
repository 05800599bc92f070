package blockstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pyropy/cloudstore/core/model"
)

var (
	ErrBlockNotFound    = errors.New("block not found")
	ErrInvalidBlockName = errors.New("invalid block name")
)

// Store persists and retrieves named immutable blocks. Writes are
// all-or-nothing from the caller's perspective: when WriteBlocks fails, no
// guarantee is made about blocks already written in that batch and the
// caller must not assume a rollback. Overwriting an existing name is
// undefined behaviour; blocks are written once and never updated.
type Store interface {
	WriteBlocks(ctx context.Context, blocks []model.Block) error
	ReadBlocks(ctx context.Context, names []string) ([]model.Block, error)
}

// BlockPath derives the physical location of a block from its name using a
// two level fan-out, <first char>/<second char>/<name>, bounding the number
// of entries per directory.
func BlockPath(name string) (string, error) {
	if len(name) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlockName, name)
	}

	return filepath.Join(name[0:1], name[1:2], name), nil
}

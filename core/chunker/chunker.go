package chunker

import (
	"github.com/google/uuid"
	"github.com/pyropy/cloudstore/core/model"
	"github.com/pyropy/cloudstore/lib/digest"
)

// DefaultBlockMaxSize bounds the size of a single block.
const DefaultBlockMaxSize = 4 * 1024 * 1024

// Cut splits data into ordered blocks of at most maxBlockSize bytes, the
// last block possibly smaller. Each block gets a fresh time ordered v7 uuid
// as its name and a sha256 digest of its bytes. Names are not derived from
// content, so cutting the same data twice yields distinct block sets.
func Cut(data []byte, maxBlockSize int) ([]model.Block, []string) {
	if maxBlockSize <= 0 {
		maxBlockSize = DefaultBlockMaxSize
	}

	blocks := make([]model.Block, 0, len(data)/maxBlockSize+1)
	digests := make([]string, 0, cap(blocks))

	for index := 0; index < len(data); index += maxBlockSize {
		end := index + maxBlockSize
		if end > len(data) {
			end = len(data)
		}

		block := model.NewBlock(NewBlockName(), data[index:end])
		blocks = append(blocks, block)
		digests = append(digests, digest.SHA256Hex(block.Data))
	}

	return blocks, digests
}

// Merge concatenates blocks in order, reconstructing the original bytes cut
// into them.
func Merge(blocks []model.Block) []byte {
	size := 0
	for _, block := range blocks {
		size += len(block.Data)
	}

	data := make([]byte, 0, size)
	for _, block := range blocks {
		data = append(data, block.Data...)
	}

	return data
}

// NewBlockName returns a fresh unique block name.
func NewBlockName() string {
	return uuid.Must(uuid.NewV7()).String()
}

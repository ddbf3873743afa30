// Package store implements the grid storage layer: byte-addressable
// reads of elevation tile payloads from the local filesystem or an
// HTTP endpoint. Payload validation is the grid decoder's job; the
// store only moves bytes.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
)

// FileStore reads tile payloads from dir/{resolution}/{name}.elev,
// falling back to a zstd-compressed .elev.zst alongside it. Elevation
// packs ship compressed; unpacked files take precedence so local
// overrides are easy.
type FileStore struct {
	dir     string
	decoder *zstd.Decoder
}

// NewFileStore opens a tile directory.
func NewFileStore(dir string) (*FileStore, error) {
	// DecodeAll on a stateless decoder is safe for concurrent readers.
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &FileStore{dir: dir, decoder: dec}, nil
}

// ReadTile returns the raw payload for a tile at a resolution.
func (s *FileStore) ReadTile(ctx context.Context, name string, resolution int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := filepath.Join(s.dir, strconv.Itoa(resolution), name+".elev")

	if data, err := os.ReadFile(base); err == nil {
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", base, err)
	}

	compressed, err := os.ReadFile(base + ".zst")
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", base+".zst", err)
	}
	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", base+".zst", err)
	}
	return data, nil
}

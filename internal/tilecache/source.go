// Package tilecache implements the bounded in-memory tile cache with
// singleflight miss coalescing and an optional on-disk scratch layer
// (C3).
package tilecache

import (
	"context"
	"fmt"
	"os"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/tileio"
)

// Source loads the raw bytes of a tile and reports the source file's
// modification time, used to validate the on-disk scratch cache.
type Source interface {
	Load(ctx context.Context, level graphid.Level, tileID uint32) (data []byte, mtimeUnix int64, err error)
}

// FileSource loads tiles from the hierarchical on-disk layout
// internal/tileio builds, per spec.md §6.1.
type FileSource struct {
	Root string
}

// NewFileSource builds a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Root: dir}
}

// Load reads the tile file from disk, returning routerr.TileMissingError
// if neither the plain nor the gzip-compressed path exists.
func (s *FileSource) Load(_ context.Context, level graphid.Level, tileID uint32) ([]byte, int64, error) {
	p, err := tileio.Resolve(s.Root, level, tileID)
	if err != nil {
		return nil, 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, 0, fmt.Errorf("stat tile %s: %w", p, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, 0, fmt.Errorf("read tile %s: %w", p, err)
	}
	return data, info.ModTime().Unix(), nil
}

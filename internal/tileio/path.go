// Package tileio builds and resolves the on-disk paths of tile files,
// per spec.md §6.1's hierarchical layout. Decompression itself is
// handled transparently by internal/tile's gzip-magic sniffing, so
// this package's only job is path construction and the plain/.gz
// existence probe.
package tileio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
)

// RelPath returns a tile's path relative to the tile store root.
// Level 2 (local) tiles nest three digit-split, zero-padded
// directory components (AAA/BBB/CCC.gph); levels 0 and 1 nest two
// (AAA/BBB.gph), keeping any one directory's fanout bounded to 1000
// entries regardless of how many tiles a level has.
func RelPath(level graphid.Level, tileID uint32) string {
	levelDir := fmt.Sprintf("%d", level)
	if level == graphid.LevelLocal {
		a := tileID / 1_000_000
		b := (tileID / 1000) % 1000
		c := tileID % 1000
		return filepath.Join(levelDir, fmt.Sprintf("%03d", a), fmt.Sprintf("%03d", b), fmt.Sprintf("%03d.gph", c))
	}
	a := tileID / 1000
	b := tileID % 1000
	return filepath.Join(levelDir, fmt.Sprintf("%03d", a), fmt.Sprintf("%03d.gph", b))
}

// Resolve finds the on-disk file for (level, tileID) under root,
// probing the plain path and its gzip-compressed ".gz" sibling.
// Returns routerr.TileMissingError if neither exists.
func Resolve(root string, level graphid.Level, tileID uint32) (string, error) {
	rel := RelPath(level, tileID)
	plain := filepath.Join(root, rel)
	if _, err := os.Stat(plain); err == nil {
		return plain, nil
	}
	gz := plain + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz, nil
	}
	return "", routerr.NewTileMissing(level, tileID)
}

package tilecache

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
)

// scratch is the on-disk pre-parsed tile cache, a generalization of
// MVTBackupMBTiles's in-memory-SQLite-with-snapshot pattern: a
// single-file SQLite database keyed by (level, tile_id), storing a
// gob-serialized Tile snapshot valid as long as source_mtime matches
// the tile file's current modification time.
type scratch struct {
	db *dbx.DB
	mu sync.Mutex
}

// openScratch opens (and initializes, if absent) the scratch database
// at path. An empty path disables the scratch layer.
func openScratch(path string) (*scratch, error) {
	if path == "" {
		return nil, nil
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scratch db: %w", err)
	}
	db := dbx.NewFromDB(sqlDB, "sqlite")

	if _, err := db.NewQuery(`
		CREATE TABLE IF NOT EXISTS tiles (
			level INTEGER NOT NULL,
			tile_id INTEGER NOT NULL,
			source_mtime INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (level, tile_id)
		)
	`).Execute(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init scratch schema: %w", err)
	}

	log.Printf("tilecache: scratch db opened at %s", path)
	return &scratch{db: db}, nil
}

// get returns the cached payload if present and its mtime still
// matches sourceMtime.
func (s *scratch) get(level graphid.Level, tileID uint32, sourceMtime int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row struct {
		SourceMtime int64  `db:"source_mtime"`
		Payload     []byte `db:"payload"`
	}
	err := s.db.NewQuery(`
		SELECT source_mtime, payload FROM tiles WHERE level = {:level} AND tile_id = {:tile_id}
	`).Bind(dbx.Params{"level": int(level), "tile_id": int(tileID)}).One(&row)
	if err != nil {
		return nil, false
	}
	if row.SourceMtime != sourceMtime {
		return nil, false
	}
	return row.Payload, true
}

// put stores a parsed-tile snapshot, replacing any stale entry.
func (s *scratch) put(level graphid.Level, tileID uint32, sourceMtime int64, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.NewQuery(`
		INSERT OR REPLACE INTO tiles (level, tile_id, source_mtime, payload)
		VALUES ({:level}, {:tile_id}, {:mtime}, {:payload})
	`).Bind(dbx.Params{
		"level":   int(level),
		"tile_id": int(tileID),
		"mtime":   sourceMtime,
		"payload": payload,
	}).Execute()
	if err != nil {
		log.Printf("tilecache: scratch write failed for level=%d tile_id=%d: %v", level, tileID, err)
	}
}

func (s *scratch) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

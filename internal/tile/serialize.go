package tile

import (
	"bytes"
	"encoding/gob"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
)

// snapshot is the gob-friendly mirror of Tile, used only by the C3
// on-disk scratch cache to skip re-parsing across process restarts.
type snapshot struct {
	ID          uint64
	BaseLat     float64
	BaseLon     float64
	Nodes       []Node
	Edges       []DirectedEdge
	Transitions []Transition
	EdgeInfoBlob []byte
	TextBlob    []byte
	EdgeInfos   []edgeInfoLocation
}

// Serialize produces a pre-parsed representation of t suitable for the
// on-disk scratch cache: loading it back skips the binary decode, only
// rebuilding the in-memory spatial index. The cache still reads the
// source tile file first, to obtain the modification time that
// validates the snapshot.
func Serialize(t *Tile) ([]byte, error) {
	s := snapshot{
		ID:           uint64(t.ID),
		BaseLat:      t.BaseLat,
		BaseLon:      t.BaseLon,
		Nodes:        t.Nodes,
		Edges:        t.Edges,
		Transitions:  t.Transitions,
		EdgeInfoBlob: t.edgeInfoBlob,
		TextBlob:     t.textBlob,
		EdgeInfos:    t.edgeInfos,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize reverses Serialize, rebuilding the spatial index.
func Deserialize(data []byte) (*Tile, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, err
	}

	t := &Tile{
		ID:           graphid.ID(s.ID),
		BaseLat:      s.BaseLat,
		BaseLon:      s.BaseLon,
		Nodes:        s.Nodes,
		Edges:        s.Edges,
		Transitions:  s.Transitions,
		edgeInfoBlob: s.EdgeInfoBlob,
		textBlob:     s.TextBlob,
		edgeInfos:    s.EdgeInfos,
		spatialIndex: make(map[bucketKey][]uint32, len(s.Nodes)),
	}
	for i, n := range t.Nodes {
		key := bucketFor(n.Lat, n.Lon)
		t.spatialIndex[key] = append(t.spatialIndex[key], uint32(i))
	}
	return t, nil
}

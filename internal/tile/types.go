package tile

import "github.com/smatkovi/valhalla-bike-router/internal/graphid"

// UseCategory is the semantic classification of an edge.
type UseCategory uint8

const (
	UseRoad UseCategory = iota
	UseRamp
	UseTrack
	UseLivingStreet
	UseCycleway
	UseFootway
	UsePath
	UseSteps
	UseFerry
	UseMountainBike
	UseOther
)

// Node is an immutable point owning a contiguous run of outgoing edges
// and a contiguous run of transitions.
type Node struct {
	Lat, Lon       float64
	FirstEdgeIndex uint32
	EdgeCount      uint8
	FirstTransIdx  uint32
	HasUp          bool
	HasDown        bool
}

// DirectedEdge is one direction of a physical way.
type DirectedEdge struct {
	EndNode        graphid.ID
	OppIndex       uint8
	EdgeInfoOffset uint32

	PostedSpeed    uint8
	Use            UseCategory
	Classification uint8
	Surface        uint8
	CycleLane      uint8
	LaneCount      uint8
	Grade          uint8 // 0-15, 7 = flat

	Shoulder    bool
	BikeNetwork bool
	UseSidepath bool
	Dismount    bool
	TruckRoute  bool

	ForwardAccess uint16
	ReverseAccess uint16
	LengthMeters  uint32

	// Usable is false when the edge failed integrity checks at parse
	// time (end_node.tile_id out of range for its level) — the edge
	// is retained for opp_index bookkeeping but never expanded.
	Usable bool
}

// BikeTraversable reports whether the edge permits bicycle travel in
// either direction: (forward_access | reverse_access) & bicycle_bit.
func (e *DirectedEdge) BikeTraversable() bool {
	return e.Usable && (e.ForwardAccess|e.ReverseAccess)&BicycleAccessBit != 0
}

// ForwardBikeTraversable reports whether the edge may be entered from
// its start node by bicycle.
func (e *DirectedEdge) ForwardBikeTraversable() bool {
	return e.Usable && e.ForwardAccess&BicycleAccessBit != 0
}

// ReverseBikeTraversable reports whether the edge's opposing direction
// (entering from its end node) permits bicycle travel.
func (e *DirectedEdge) ReverseBikeTraversable() bool {
	return e.Usable && e.ReverseAccess&BicycleAccessBit != 0
}

// Transition is a zero-cost link to the same location at an adjacent level.
type Transition struct {
	EndNode graphid.ID
	Up      bool // true = up (coarser), false = down (finer)
}

// EdgeInfo holds the per-edge out-of-line data: names and shape.
type EdgeInfo struct {
	NameRefs  []uint32 // offsets into the tile's text blob
	ShapeData []byte   // raw encoded shape bytes, decoded lazily via shape.Decode
}

// Tile is an immutable, self-contained parsed tile.
type Tile struct {
	ID       graphid.ID
	BaseLat  float64
	BaseLon  float64

	Nodes       []Node
	Edges       []DirectedEdge
	Transitions []Transition

	edgeInfoBlob []byte
	textBlob     []byte
	edgeInfos    []edgeInfoLocation // parallel to Edges, lazily decoded on demand

	// spatialIndex buckets node indices by floor(lat*100), floor(lon*100)
	// for sub-kilometre nearest-node queries.
	spatialIndex map[bucketKey][]uint32
}

type bucketKey struct {
	latBucket, lonBucket int32
}

type edgeInfoLocation struct {
	offset uint32
	valid  bool
}

func bucketFor(lat, lon float64) bucketKey {
	return bucketKey{
		latBucket: int32(floor(lat * 100)),
		lonBucket: int32(floor(lon * 100)),
	}
}

func floor(v float64) float64 {
	i := int64(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return float64(i)
}

// NodeCount returns the number of nodes in the tile.
func (t *Tile) NodeCount() int { return len(t.Nodes) }

// EdgeCount returns the number of directed edges in the tile.
func (t *Tile) EdgeCount() int { return len(t.Edges) }

// NodeCoords returns the (lat, lon) of a node by local index.
func (t *Tile) NodeCoords(localID uint32) (float64, float64, bool) {
	if int(localID) >= len(t.Nodes) {
		return 0, 0, false
	}
	n := t.Nodes[localID]
	return n.Lat, n.Lon, true
}

// OutgoingEdges returns the slice of directed edges owned by a node.
func (t *Tile) OutgoingEdges(localID uint32) []DirectedEdge {
	if int(localID) >= len(t.Nodes) {
		return nil
	}
	n := t.Nodes[localID]
	start := int(n.FirstEdgeIndex)
	end := start + int(n.EdgeCount)
	if start < 0 || end > len(t.Edges) || start > end {
		return nil
	}
	return t.Edges[start:end]
}

// OutgoingEdgeGlobalIndex returns the global edge-array index for the
// k-th outgoing edge of a node.
func (t *Tile) OutgoingEdgeGlobalIndex(localID uint32, k uint8) (int, bool) {
	if int(localID) >= len(t.Nodes) {
		return 0, false
	}
	n := t.Nodes[localID]
	if k >= n.EdgeCount {
		return 0, false
	}
	return int(n.FirstEdgeIndex) + int(k), true
}

// NodeTransitions returns the transitions owned by a node. Up to two.
func (t *Tile) NodeTransitions(localID uint32) []Transition {
	if int(localID) >= len(t.Nodes) {
		return nil
	}
	n := t.Nodes[localID]
	if !n.HasUp && !n.HasDown {
		return nil
	}
	start := int(n.FirstTransIdx)
	count := 0
	if n.HasUp {
		count++
	}
	if n.HasDown {
		count++
	}
	end := start + count
	if start < 0 || end > len(t.Transitions) || start > end {
		return nil
	}
	return t.Transitions[start:end]
}

// EdgeInfo decodes the out-of-line info (names, shape) for the edge at
// global index idx. Pure function of the parsed tile's retained byte
// ranges — no file-system access after Decode returned.
func (t *Tile) EdgeInfo(idx int) (EdgeInfo, bool) {
	if idx < 0 || idx >= len(t.edgeInfos) {
		return EdgeInfo{}, false
	}
	loc := t.edgeInfos[idx]
	if !loc.valid {
		return EdgeInfo{}, false
	}
	return decodeEdgeInfoAt(t.edgeInfoBlob, loc.offset)
}

// TextAt reads the NUL-terminated string at a text-blob offset.
func (t *Tile) TextAt(offset uint32) string {
	if int(offset) >= len(t.textBlob) {
		return ""
	}
	end := int(offset)
	for end < len(t.textBlob) && t.textBlob[end] != 0 {
		end++
	}
	return string(t.textBlob[offset:end])
}

// NearestNodesInBucket returns candidate node indices near (lat, lon),
// searching the spatial-bucket neighbourhood (the bucket itself plus
// its 8 neighbours).
func (t *Tile) NearestNodesInBucket(lat, lon float64) []uint32 {
	center := bucketFor(lat, lon)
	var candidates []uint32
	for dLat := int32(-1); dLat <= 1; dLat++ {
		for dLon := int32(-1); dLon <= 1; dLon++ {
			key := bucketKey{latBucket: center.latBucket + dLat, lonBucket: center.lonBucket + dLon}
			candidates = append(candidates, t.spatialIndex[key]...)
		}
	}
	return candidates
}

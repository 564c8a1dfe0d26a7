// Package navigator implements the graph navigator (C4): nearest-node
// location, neighbour and transition iteration, and cross-tile/
// cross-level resolution, all mediated through the tile cache.
package navigator

import (
	"context"
	"fmt"
	"math"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

// TileGetter is the subset of tilecache.Cache the navigator depends
// on, kept as an interface so tests can substitute a fake.
type TileGetter interface {
	Get(ctx context.Context, level graphid.Level, tileID uint32) (*tile.Tile, error)
}

// State identifies a node anywhere in the tile hierarchy.
type State struct {
	Level  graphid.Level
	TileID uint32
	NodeID uint32
}

func (s State) String() string {
	return fmt.Sprintf("%d/%d/%d", s.Level, s.TileID, s.NodeID)
}

// stateOf derives a State from a node's GraphId.
func stateOf(id graphid.ID) State {
	return State{Level: id.Level(), TileID: id.TileID(), NodeID: id.LocalID()}
}

// Edge pairs a traversable directed edge's attributes with the state
// it leads to.
type Edge struct {
	Attrs tile.DirectedEdge
	To    State

	// EdgeTileLevel/EdgeTileID/Index locate Attrs within its owning
	// tile, letting callers fetch its EdgeInfo (shape, names) on
	// demand — e.g. for C6's optional shape densification.
	EdgeTileLevel graphid.Level
	EdgeTileID    uint32
	Index         int
}

// Transition pairs a level transition with the state it leads to.
type Transition struct {
	To State
	Up bool
}

// linearScanThreshold is the candidate-count cutoff below which
// locate falls back to a full linear scan of the tile, per spec.md
// §4.4.
const linearScanThreshold = 2000

// Navigator is the C4 graph navigator, backed by a tile cache.
type Navigator struct {
	cache TileGetter
}

// New builds a Navigator over cache.
func New(cache TileGetter) *Navigator {
	return &Navigator{cache: cache}
}

// Locate finds the nearest node to (lat, lon) at the given level,
// searching the spatial-bucket neighbourhood with Haversine distance
// and falling back to a full linear scan when the bucket
// neighbourhood yields fewer than linearScanThreshold candidates.
func (n *Navigator) Locate(ctx context.Context, lat, lon float64, level graphid.Level) (State, error) {
	tileID := graphid.TileID(level, lat, lon)
	t, err := n.cache.Get(ctx, level, tileID)
	if err != nil {
		return State{}, err
	}

	candidates := t.NearestNodesInBucket(lat, lon)
	if len(candidates) < linearScanThreshold {
		full := make([]uint32, t.NodeCount())
		for i := range full {
			full[i] = uint32(i)
		}
		candidates = full
	}
	if len(candidates) == 0 {
		return State{}, routerr.NewNoNodeNearby(lat, lon, 0)
	}

	best := candidates[0]
	bestDist := math.Inf(1)
	for _, idx := range candidates {
		nlat, nlon, ok := t.NodeCoords(idx)
		if !ok {
			continue
		}
		d := haversineMeters(lat, lon, nlat, nlon)
		if d < bestDist {
			bestDist = d
			best = idx
		}
	}

	return State{Level: level, TileID: tileID, NodeID: best}, nil
}

// Neighbours returns the bike-traversable outgoing edges of state,
// each resolved to its endpoint state. A neighbour whose tile differs
// from state's (possibly on another level, across a tile seam) is
// loaded through the cache before being returned.
func (n *Navigator) Neighbours(ctx context.Context, state State) ([]Edge, error) {
	t, err := n.cache.Get(ctx, state.Level, state.TileID)
	if err != nil {
		return nil, err
	}

	raw := t.OutgoingEdges(state.NodeID)
	out := make([]Edge, 0, len(raw))
	for k, e := range raw {
		if !e.ForwardBikeTraversable() {
			continue
		}
		to := stateOf(e.EndNode)
		// Touch the endpoint's tile so the caller never receives a
		// state pointing at an unloaded tile.
		if _, err := n.cache.Get(ctx, to.Level, to.TileID); err != nil {
			continue
		}
		globalIdx, _ := t.OutgoingEdgeGlobalIndex(state.NodeID, uint8(k))
		out = append(out, Edge{Attrs: e, To: to, EdgeTileLevel: state.Level, EdgeTileID: state.TileID, Index: globalIdx})
	}
	return out, nil
}

// ReverseNeighbours returns the edges that can reach state: for each
// of state's node's own outgoing edges e (state -> x), e's reverse
// access bit tells us whether the edge is traversable backward
// (x -> state), in which case x is a predecessor of state reachable
// by this edge. Reverse access on the forward record is authoritative
// for that check (spec.md §8 invariant 1), so no opposing-edge lookup
// is needed there. But costing the x -> state hop must use x -> state's
// own DirectedEdge record, not e's: grade (and any other directional
// attribute) is stored per direction, so e (state -> x) generally
// differs from its opposing edge at x. opp_index locates that record —
// the k-th outgoing edge of x, by the same invariant.
func (n *Navigator) ReverseNeighbours(ctx context.Context, state State) ([]Edge, error) {
	t, err := n.cache.Get(ctx, state.Level, state.TileID)
	if err != nil {
		return nil, err
	}

	raw := t.OutgoingEdges(state.NodeID)
	out := make([]Edge, 0, len(raw))
	for _, e := range raw {
		if !e.ReverseBikeTraversable() {
			continue
		}
		to := stateOf(e.EndNode)
		toTile, err := n.cache.Get(ctx, to.Level, to.TileID)
		if err != nil {
			continue
		}
		globalIdx, ok := toTile.OutgoingEdgeGlobalIndex(to.NodeID, e.OppIndex)
		if !ok {
			continue
		}
		opp := toTile.Edges[globalIdx]
		out = append(out, Edge{Attrs: opp, To: to, EdgeTileLevel: to.Level, EdgeTileID: to.TileID, Index: globalIdx})
	}
	return out, nil
}

// Transitions returns state's up-to-two level transitions.
func (n *Navigator) Transitions(ctx context.Context, state State) ([]Transition, error) {
	t, err := n.cache.Get(ctx, state.Level, state.TileID)
	if err != nil {
		return nil, err
	}

	raw := t.NodeTransitions(state.NodeID)
	out := make([]Transition, 0, len(raw))
	for _, tr := range raw {
		to := stateOf(tr.EndNode)
		if _, err := n.cache.Get(ctx, to.Level, to.TileID); err != nil {
			continue
		}
		out = append(out, Transition{To: to, Up: tr.Up})
	}
	return out, nil
}

// Coords returns the (lat, lon) of a state's node.
func (n *Navigator) Coords(ctx context.Context, state State) (float64, float64, error) {
	t, err := n.cache.Get(ctx, state.Level, state.TileID)
	if err != nil {
		return 0, 0, err
	}
	lat, lon, ok := t.NodeCoords(state.NodeID)
	if !ok {
		return 0, 0, routerr.NewInternal(fmt.Sprintf("node %s out of range", state))
	}
	return lat, lon, nil
}

// EdgeShape decodes the polyline stored for e, if any. Used by C6's
// optional shape densification (spec.md §4.6) to interpolate between
// consecutive path nodes instead of emitting a straight chord.
func (n *Navigator) EdgeShape(ctx context.Context, e Edge) ([]shape.Point, bool) {
	t, err := n.cache.Get(ctx, e.EdgeTileLevel, e.EdgeTileID)
	if err != nil {
		return nil, false
	}
	info, ok := t.EdgeInfo(e.Index)
	if !ok || len(info.ShapeData) == 0 {
		return nil, false
	}
	points, err := shape.Decode(info.ShapeData, 0, len(info.ShapeData))
	if err != nil || len(points) == 0 {
		return nil, false
	}
	return points, true
}

const earthRadiusMeters = 6371000.0

// haversineMeters is the great-circle distance between two points, a
// generalization of the teacher's haversineDistance helper
// (utils/gpx.go) from GPX track-point spacing to node-lookup distance.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

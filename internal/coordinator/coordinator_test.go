package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smatkovi/valhalla-bike-router/internal/costing"
	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

// twoNodeGraph is a minimal router.Graph with a single bidirectional
// edge, enough to exercise the coordinator's wiring without a real
// tile cache.
type twoNodeGraph struct {
	a, b navigator.State
}

func newTwoNodeGraph() *twoNodeGraph {
	return &twoNodeGraph{
		a: navigator.State{Level: graphid.LevelLocal, TileID: 0, NodeID: 0},
		b: navigator.State{Level: graphid.LevelLocal, TileID: 0, NodeID: 1},
	}
}

func (g *twoNodeGraph) coords(s navigator.State) (float64, float64) {
	if s == g.a {
		return 48.000, 16.000
	}
	return 48.001, 16.001
}

func (g *twoNodeGraph) Locate(_ context.Context, lat, _ float64, _ graphid.Level) (navigator.State, error) {
	if lat < 48.0005 {
		return g.a, nil
	}
	return g.b, nil
}

func (g *twoNodeGraph) edge(to navigator.State) navigator.Edge {
	return navigator.Edge{
		Attrs: tile.DirectedEdge{
			Use: tile.UseRoad, Surface: costing.SurfacePavedSmooth, Classification: 6,
			Grade: 7, LengthMeters: 100,
			ForwardAccess: tile.BicycleAccessBit, ReverseAccess: tile.BicycleAccessBit,
			Usable: true,
		},
		To: to,
	}
}

func (g *twoNodeGraph) Neighbours(_ context.Context, s navigator.State) ([]navigator.Edge, error) {
	if s == g.a {
		return []navigator.Edge{g.edge(g.b)}, nil
	}
	if s == g.b {
		return []navigator.Edge{g.edge(g.a)}, nil
	}
	return nil, nil
}

func (g *twoNodeGraph) ReverseNeighbours(ctx context.Context, s navigator.State) ([]navigator.Edge, error) {
	return g.Neighbours(ctx, s)
}

func (g *twoNodeGraph) Transitions(_ context.Context, _ navigator.State) ([]navigator.Transition, error) {
	return nil, nil
}

func (g *twoNodeGraph) Coords(_ context.Context, s navigator.State) (float64, float64, error) {
	lat, lon := g.coords(s)
	return lat, lon, nil
}

func (g *twoNodeGraph) EdgeShape(_ context.Context, _ navigator.Edge) ([]shape.Point, bool) {
	return nil, false
}

func TestCoordinator_Route(t *testing.T) {
	g := newTwoNodeGraph()
	c := New(g)

	params := costing.NewCostParams(costing.Hybrid, 0.5, 0.5, 0.5, false, 20)
	resp, err := c.Route(context.Background(), Request{
		Start:  LatLon{Lat: 48.000, Lon: 16.000},
		End:    LatLon{Lat: 48.001, Lon: 16.001},
		Params: params,
	})
	require.NoError(t, err)
	require.InDelta(t, 0.1, resp.LengthKM, 1e-9)
	require.Greater(t, resp.TimeSeconds, 0.0)
	require.Greater(t, resp.CarKM, 0.0)
}

// disconnectedGraph resolves to the same two states as twoNodeGraph
// but never reports an edge between them, so Route must fail.
type disconnectedGraph struct {
	twoNodeGraph
}

func (g *disconnectedGraph) Neighbours(_ context.Context, _ navigator.State) ([]navigator.Edge, error) {
	return nil, nil
}

func (g *disconnectedGraph) ReverseNeighbours(_ context.Context, _ navigator.State) ([]navigator.Edge, error) {
	return nil, nil
}

func TestCoordinator_Route_WrapsNoRouteFound(t *testing.T) {
	g := &disconnectedGraph{twoNodeGraph: *newTwoNodeGraph()}
	c := New(g)

	params := costing.NewCostParams(costing.Hybrid, 0.5, 0.5, 0.5, false, 20)
	_, err := c.Route(context.Background(), Request{
		Start:  LatLon{Lat: 48.000, Lon: 16.000},
		End:    LatLon{Lat: 48.001, Lon: 16.001},
		Params: params,
	})
	require.Error(t, err)
	var notFound routerr.NoRouteFoundError
	require.ErrorAs(t, err, &notFound)
}

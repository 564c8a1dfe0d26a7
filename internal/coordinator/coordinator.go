// Package coordinator implements the request coordinator (C7): the
// single entry point that wires the tile cache, graph navigator, cost
// model, and bidirectional search into one request-shaped call. It
// does not own the HTTP layer; httpapi depends on it, not the reverse.
//
// Grounded on services/app_service.go's constructor-injection style
// (build once at startup, inject into handlers) generalized from
// PocketBase service wiring to router request handling.
package coordinator

import (
	"context"
	"fmt"

	"github.com/smatkovi/valhalla-bike-router/internal/costing"
	"github.com/smatkovi/valhalla-bike-router/internal/router"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
)

// LatLon is a single query endpoint.
type LatLon struct {
	Lat float64
	Lon float64
}

// Request is the coordinator's input: two endpoints plus the cost
// parameters for this query alone.
type Request struct {
	Start  LatLon
	End    LatLon
	Params costing.CostParams
	// Densify interpolates each traversed edge's stored polyline into
	// the returned shape rather than a straight chord between nodes.
	Densify bool
}

// Response is the coordinator's successful result, shaped per
// spec.md §4.7/§6.2.
type Response struct {
	Shape       []shape.Point `json:"shape"`
	LengthKM    float64       `json:"length_km"`
	TimeSeconds float64       `json:"time_s"`
	CarKM       float64       `json:"car_km"`
	CyclefreeKM float64       `json:"cyclefree_km"`
}

// Coordinator is built once at startup over a long-lived Graph and
// dispatches each Route call on its own costing.Model instance.
type Coordinator struct {
	graph router.Graph
}

// New builds a Coordinator over graph (typically a *navigator.Navigator
// backed by a *tilecache.Cache).
func New(graph router.Graph) *Coordinator {
	return &Coordinator{graph: graph}
}

// Route resolves req's endpoints, runs the bidirectional search, and
// returns the resulting shape and summary statistics.
func (c *Coordinator) Route(ctx context.Context, req Request) (*Response, error) {
	model := costing.NewModel(req.Params)

	var opts []router.Option
	if req.Densify {
		opts = append(opts, router.WithDensify())
	}

	result, err := router.Route(ctx, c.graph, model, req.Start.Lat, req.Start.Lon, req.End.Lat, req.End.Lon, opts...)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	return &Response{
		Shape:       result.Shape,
		LengthKM:    result.LengthKM,
		TimeSeconds: result.TimeSeconds,
		CarKM:       result.CarKM,
		CyclefreeKM: result.CyclefreeKM,
	}, nil
}

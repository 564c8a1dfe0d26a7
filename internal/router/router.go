// Package router implements the bidirectional A* search (C6): two
// directed searches proceeding in parallel from the start (forward)
// and the end (reverse), meeting in the middle. A direct generalization
// of original_source/opt/valhalla-bike-router/valhalla_router.py's
// BidirectionalAStar, ported from Python's two heapq+dict pairs to
// Go's container/heap plus predecessor maps.
package router

import (
	"context"
	"math"

	"github.com/smatkovi/valhalla-bike-router/internal/costing"
	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

// Graph is the subset of *navigator.Navigator the router depends on,
// kept as an interface so tests can substitute a fake graph.
type Graph interface {
	Locate(ctx context.Context, lat, lon float64, level graphid.Level) (navigator.State, error)
	Neighbours(ctx context.Context, state navigator.State) ([]navigator.Edge, error)
	ReverseNeighbours(ctx context.Context, state navigator.State) ([]navigator.Edge, error)
	Transitions(ctx context.Context, state navigator.State) ([]navigator.Transition, error)
	Coords(ctx context.Context, state navigator.State) (float64, float64, error)
	EdgeShape(ctx context.Context, e navigator.Edge) ([]shape.Point, bool)
}

// maxSpeedMPS bounds the A* heuristic: no edge's effective speed
// (base speed, at most the 60 km/h cycling-speed ceiling, scaled by
// the model's downhill grade factor, at most 1.2x) exceeds this, so
// distance/maxSpeed never overestimates remaining cost regardless of
// the request's cycling-speed override.
const maxSpeedMPS = 60.0 * 1.2 / 3.6

// Result is the outcome of a successful Route call.
type Result struct {
	Shape            []shape.Point
	LengthKM         float64
	TimeSeconds      float64
	CarKM            float64
	CyclefreeKM      float64
	LevelTransitions int
}

// ProgressFunc is called periodically during a search, an optional
// diagnostic callback mirroring the source's periodic progress print
// (every 10,000 iterations).
type ProgressFunc func(iterations, fwdSettled, revSettled int, bestCost float64)

// Option configures a Route call.
type Option func(*options)

type options struct {
	level      graphid.Level
	densify    bool
	onProgress ProgressFunc
}

// WithLevel searches at a specific hierarchy level; defaults to the
// finest (graphid.LevelLocal).
func WithLevel(level graphid.Level) Option {
	return func(o *options) { o.level = level }
}

// WithDensify enables shape densification: the encoded polyline of
// each traversed edge (when present) replaces the straight chord
// between its endpoints.
func WithDensify() Option {
	return func(o *options) { o.densify = true }
}

// WithProgress installs a periodic progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.onProgress = fn }
}

// Route finds the least-cost bicycle path between two points.
func Route(ctx context.Context, graph Graph, cost *costing.Model, startLat, startLon, endLat, endLon float64, opts ...Option) (*Result, error) {
	o := &options{level: graphid.LevelLocal}
	for _, opt := range opts {
		opt(o)
	}

	startState, err := graph.Locate(ctx, startLat, startLon, o.level)
	if err != nil {
		return nil, err
	}
	endState, err := graph.Locate(ctx, endLat, endLon, o.level)
	if err != nil {
		return nil, err
	}

	fwd := newFront()
	rev := newFront()

	startCoordLat, startCoordLon, err := graph.Coords(ctx, startState)
	if err != nil {
		return nil, err
	}
	endCoordLat, endCoordLon, err := graph.Coords(ctx, endState)
	if err != nil {
		return nil, err
	}

	fwd.push(startState, 0, heuristic(startCoordLat, startCoordLon, endCoordLat, endCoordLon))
	rev.push(endState, 0, heuristic(endCoordLat, endCoordLon, startCoordLat, startCoordLon))

	maxIterations := adaptiveIterationCap(haversineMeters(startCoordLat, startCoordLon, endCoordLat, endCoordLon) / 1000.0)

	bestCost := math.Inf(1)
	var meetState navigator.State
	found := false

	fwdDone, revDone := false, false
	iterations := 0

	for (fwd.queue.Len() > 0 || rev.queue.Len() > 0) && iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, cancellationError(err)
		}
		iterations++

		if fwd.queue.Len() > 0 && !fwdDone {
			item, _ := fwd.pop()
			if _, already := fwd.gCost[item.state]; !already {
				fwd.gCost[item.state] = item.gCost

				if revCost, ok := rev.gCost[item.state]; ok {
					total := item.gCost + revCost
					if total < bestCost {
						bestCost = total
						meetState = item.state
						found = true
					}
				}

				if item.fCost >= bestCost {
					fwdDone = true
				} else {
					if err := expand(ctx, graph, cost, fwd, item.state, item.gCost, endCoordLat, endCoordLon, false); err != nil {
						return nil, err
					}
				}
			}
		}

		if rev.queue.Len() > 0 && !revDone {
			item, _ := rev.pop()
			if _, already := rev.gCost[item.state]; !already {
				rev.gCost[item.state] = item.gCost

				if fwdCost, ok := fwd.gCost[item.state]; ok {
					total := item.gCost + fwdCost
					if total < bestCost {
						bestCost = total
						meetState = item.state
						found = true
					}
				}

				if item.fCost >= bestCost {
					revDone = true
				} else {
					if err := expand(ctx, graph, cost, rev, item.state, item.gCost, startCoordLat, startCoordLon, true); err != nil {
						return nil, err
					}
				}
			}
		}

		if o.onProgress != nil && iterations%10000 == 0 {
			o.onProgress(iterations, len(fwd.gCost), len(rev.gCost), bestCost)
		}

		if fwdDone && revDone {
			break
		}
	}

	if !found {
		return nil, routerr.NewNoRouteFound("search frontier exhausted before forward and reverse fronts met")
	}

	return reconstruct(ctx, graph, fwd, rev, meetState, o.densify)
}

// expand pushes the outgoing (or, in reverse, the reverse-reachable)
// edges and zero-cost level transitions of state into front.
//
// Every edge crossing state's node also charges costing.TransitionCost
// (spec.md §4.5's closing maneuver penalty), keyed off the turn
// between the edge state was entered by and the edge being pushed.
// The very first edge of a search (state has no recorded predecessor
// edge, or was reached by a level transition) is never penalized —
// there is no real maneuver at the route's own origin.
func expand(ctx context.Context, graph Graph, cost *costing.Model, front *front, state navigator.State, gCost, targetLat, targetLon float64, reverse bool) error {
	var edges []navigator.Edge
	var err error
	if reverse {
		edges, err = graph.ReverseNeighbours(ctx, state)
	} else {
		edges, err = graph.Neighbours(ctx, state)
	}
	if err != nil {
		return err
	}

	hasIncoming := false
	var adjLat, adjLon, midLat, midLon float64
	if pred, ok := front.pred[state]; ok && pred.edge != nil {
		if adjLat, adjLon, err = graph.Coords(ctx, pred.from); err == nil {
			if midLat, midLon, err = graph.Coords(ctx, state); err == nil {
				hasIncoming = true
			}
		}
	}

	for i := range edges {
		e := edges[i]
		ec := cost.Edge(&e.Attrs)
		if math.IsInf(ec.Cost, 1) {
			continue
		}
		if _, settled := front.gCost[e.To]; settled {
			continue
		}

		lat, lon, err := graph.Coords(ctx, e.To)
		if err != nil {
			continue
		}

		turnCostVal, turnSeconds := 0.0, 0.0
		if hasIncoming {
			tc := turnCostAt(adjLat, adjLon, midLat, midLon, lat, lon, &e.Attrs, reverse)
			turnCostVal, turnSeconds = tc.Cost, tc.Seconds
		}

		newCost := gCost + ec.Cost + turnCostVal
		front.considerPredecessor(e.To, newCost, predecessor{from: state, edge: &edges[i], seconds: ec.Seconds + turnSeconds})

		h := heuristic(lat, lon, targetLat, targetLon)
		front.push(e.To, newCost, newCost+h)
	}

	transitions, err := graph.Transitions(ctx, state)
	if err != nil {
		return err
	}
	for _, tr := range transitions {
		if _, settled := front.gCost[tr.To]; settled {
			continue
		}
		front.considerPredecessor(tr.To, gCost, predecessor{from: state, isTransition: true})
		lat, lon, err := graph.Coords(ctx, tr.To)
		if err != nil {
			continue
		}
		h := heuristic(lat, lon, targetLat, targetLon)
		front.push(tr.To, gCost, gCost+h)
	}
	return nil
}

// turnCostAt computes the maneuver penalty for passing through the
// node at (midLat, midLon) between the edge arrived on (adjacent node
// at adjLat/adjLon) and candidate edge e (reached at lat/lon). In a
// forward expansion this is the literal travel order adj -> mid ->
// candidate. In a reverse expansion, front.pred[state] points toward
// the search's root (physically later in the final route) while the
// candidate edge points toward the frontier (physically earlier), so
// the two play the opposite roles: candidate -> mid -> adjacent.
func turnCostAt(adjLat, adjLon, midLat, midLon, candLat, candLon float64, e *tile.DirectedEdge, reverse bool) costing.EdgeCost {
	var inBearing, outBearing float64
	if reverse {
		inBearing = bearingDeg(candLat, candLon, midLat, midLon)
		outBearing = bearingDeg(midLat, midLon, adjLat, adjLon)
	} else {
		inBearing = bearingDeg(adjLat, adjLon, midLat, midLon)
		outBearing = bearingDeg(midLat, midLon, candLat, candLon)
	}
	turn := costing.ClassifyTurn(outBearing - inBearing)
	return costing.TransitionCost(turn, e.Use == tile.UseCycleway, e.BikeNetwork)
}

// bearingDeg is the initial compass bearing (degrees, clockwise from
// north) from (lat1, lon1) to (lat2, lon2).
func bearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	phi1, phi2 := toRad(lat1), toRad(lat2)
	dLon := toRad(lon2 - lon1)
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return math.Atan2(y, x) * 180 / math.Pi
}

func heuristic(lat, lon, targetLat, targetLon float64) float64 {
	return haversineMeters(lat, lon, targetLat, targetLon) / maxSpeedMPS
}

// adaptiveIterationCap bounds total expansions by start-end distance,
// per spec.md §4.6.
func adaptiveIterationCap(km float64) int {
	switch {
	case km < 5:
		return 50_000
	case km < 20:
		return 100_000
	case km < 50:
		return 200_000
	default:
		return 300_000
	}
}

func cancellationError(err error) error {
	if err == context.DeadlineExceeded {
		return routerr.DeadlineExceededError{}
	}
	return routerr.CancelledError{}
}

const earthRadiusMeters = 6371000.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// isCarFree reports whether a use category never carries motor traffic.
func isCarFree(u tile.UseCategory) bool {
	switch u {
	case tile.UseCycleway, tile.UseFootway, tile.UsePath, tile.UseSteps, tile.UseMountainBike:
		return true
	default:
		return false
	}
}

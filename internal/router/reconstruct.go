package router

import (
	"context"

	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
)

// chainStep is one hop in a reconstructed path: either an edge
// traversal (edge != nil) or a level transition (isTransition).
type chainStep struct {
	state        navigator.State
	edge         *navigator.Edge
	isTransition bool
	seconds      float64
}

// reconstruct splices the forward predecessor chain (start -> meet)
// with the reverse predecessor chain (meet -> end) into a single
// ordered list of states and edges, then walks it to build the
// returned Result.
func reconstruct(ctx context.Context, graph Graph, fwd, rev *front, meet navigator.State, densify bool) (*Result, error) {
	fwdChain := chainTo(fwd, meet)
	revChain := chainTo(rev, meet)

	// fwdChain runs start..meet, revChain runs end..meet; reverse
	// revChain and drop its first element (meet, already last in
	// fwdChain) to get meet..end.
	for i, j := 0, len(revChain)-1; i < j; i, j = i+1, j-1 {
		revChain[i], revChain[j] = revChain[j], revChain[i]
	}
	// Each reverse-chain step carries the hop toward end (its own
	// predecessor in the reverse front); shift the hops one step later
	// so every step carries the hop that enters it, as in fwdChain.
	for i := len(revChain) - 1; i > 0; i-- {
		revChain[i].edge = revChain[i-1].edge
		revChain[i].isTransition = revChain[i-1].isTransition
		revChain[i].seconds = revChain[i-1].seconds
	}
	if len(revChain) > 0 {
		revChain = revChain[1:]
	}

	full := append(fwdChain, revChain...)

	result := &Result{}
	if len(full) == 0 {
		return result, nil
	}

	lat, lon, err := graph.Coords(ctx, full[0].state)
	if err != nil {
		return nil, err
	}
	result.Shape = append(result.Shape, shape.Point{Lat: lat, Lon: lon})

	for _, step := range full[1:] {
		switch {
		case step.edge != nil:
			appended := false
			if densify {
				if pts, ok := graph.EdgeShape(ctx, *step.edge); ok {
					for _, p := range pts {
						result.Shape = append(result.Shape, shape.Point{Lat: p.Lat, Lon: p.Lon})
					}
					appended = true
				}
			}
			if !appended {
				lat, lon, err := graph.Coords(ctx, step.state)
				if err != nil {
					return nil, err
				}
				result.Shape = append(result.Shape, shape.Point{Lat: lat, Lon: lon})
			}

			e := step.edge.Attrs
			lengthKM := float64(e.LengthMeters) / 1000.0
			result.LengthKM += lengthKM
			if isCarFree(e.Use) {
				result.CyclefreeKM += lengthKM
			} else {
				result.CarKM += lengthKM
			}
			result.TimeSeconds += step.seconds

		case step.isTransition:
			result.LevelTransitions++
		}
	}

	return result, nil
}

// chainTo walks front's predecessor map from meet back to its root
// (the search's own start or end state), returning the path
// root-first.
func chainTo(f *front, meet navigator.State) []chainStep {
	var steps []chainStep
	cur := meet
	for {
		steps = append(steps, chainStep{state: cur})
		pred, ok := f.pred[cur]
		if !ok {
			break
		}
		last := len(steps) - 1
		if pred.edge != nil {
			steps[last].edge = pred.edge
			steps[last].seconds = pred.seconds
		} else if pred.isTransition {
			steps[last].isTransition = true
		}
		cur = pred.from
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

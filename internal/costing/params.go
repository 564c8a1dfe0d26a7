// Package costing implements the bicycle edge-cost model: an exact
// port of Valhalla's bicycle costing formula (spec.md §4.5).
package costing

// BicycleType selects the rider profile, changing default speed and
// worst tolerated surface.
type BicycleType uint8

const (
	Road BicycleType = iota
	Cross
	Hybrid
	Mountain
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CostParams is the per-request configuration consumed by the cost
// model. All floats are clamped on construction.
type CostParams struct {
	BicycleType      BicycleType
	UseRoads         float64 // [0,1]
	UseHills         float64 // [0,1]
	AvoidBadSurfaces float64 // [0,1]
	AvoidCars        bool
	CyclingSpeedKPH  float64 // 0 means "use the type default"
}

// NewCostParams builds a CostParams, clamping every field to its
// documented valid range.
func NewCostParams(bicycleType BicycleType, useRoads, useHills, avoidBadSurfaces float64, avoidCars bool, cyclingSpeedKPH float64) CostParams {
	p := CostParams{
		BicycleType:      bicycleType,
		UseRoads:         clamp01(useRoads),
		UseHills:         clamp01(useHills),
		AvoidBadSurfaces: clamp01(avoidBadSurfaces),
		AvoidCars:        avoidCars,
	}
	if cyclingSpeedKPH > 0 {
		p.CyclingSpeedKPH = clamp(cyclingSpeedKPH, 5, 60)
	}
	return p
}

// typeDefaultSpeed is the per-type default cycling speed in kph.
func typeDefaultSpeed(t BicycleType) float64 {
	switch t {
	case Road:
		return 25
	case Cross:
		return 20
	case Hybrid:
		return 18
	case Mountain:
		return 16
	default:
		return 18
	}
}

// dismountSpeedKPH is the fixed walking speed used when an edge
// requires dismounting.
const dismountSpeedKPH = 5.1

// worstAllowedSurface is the worst Surface index a type tolerates
// before the edge is impassable. Road->compacted is canonical per
// spec.md §9 (resolving the source's two diverging modules).
func worstAllowedSurface(t BicycleType) uint8 {
	switch t {
	case Road:
		return SurfaceCompacted
	case Cross:
		return SurfaceGravel
	case Hybrid:
		return SurfaceDirt
	case Mountain:
		return SurfacePath
	default:
		return SurfaceDirt
	}
}

package costing

// Surface indices, 0 = paved-smooth ... 7 = impassable.
const (
	SurfacePavedSmooth uint8 = 0
	SurfacePaved       uint8 = 1
	SurfacePavedRough  uint8 = 2
	SurfaceCompacted   uint8 = 3
	SurfaceDirt        uint8 = 4
	SurfaceGravel      uint8 = 5
	SurfacePath        uint8 = 6
	SurfaceImpassable  uint8 = 7
)

// minimalSurfacePenalized is the first surface index that incurs the
// avoid_bad_surfaces penalty in step 9.
const minimalSurfacePenalized = SurfaceCompacted

// surfaceSpeedFactor scales the type default speed by road surface.
// Monotonically non-increasing, per spec.md §8 invariant 2.
var surfaceSpeedFactor = [8]float64{
	1.0,  // paved-smooth
	1.0,  // paved
	0.95, // paved-rough
	0.85, // compacted
	0.70, // dirt
	0.55, // gravel
	0.40, // path
	0.0,  // impassable
}

// surfaceFactor is the additive avoid_bad_surfaces penalty table for
// surfaces at or beyond minimalSurfacePenalized (step 9), indexed by
// surface - minimalSurfacePenalized.
var surfaceFactor = [4]float64{1.0, 2.5, 4.5, 7.0}

// gradeSpeedFactor scales speed by weighted grade (0-15, 7 = flat).
var gradeSpeedFactor = [16]float64{
	1.20, 1.18, 1.15, 1.12, 1.08, 1.05, 1.02, // 0-6: downhill
	1.00, // 7: flat
	0.93, 0.86, 0.79, 0.72, 0.65, 0.58, 0.50, 0.42, // 8-15: uphill
}

// avoidHillsStrength is the per-grade strength used to derive
// grade_penalty = (1-use_hills)*avoid_hills_strength[grade]. Zero on
// flat and downhill grades; increasing on uphill grades, so that
// use_hills=1 eliminates the penalty entirely (spec.md §8 invariant 3).
var avoidHillsStrength = [16]float64{
	0, 0, 0, 0, 0, 0, 0, 0, // 0-7: flat/downhill, no penalty
	0.10, 0.20, 0.35, 0.50, 0.70, 0.90, 1.10, 1.30, // 8-15: uphill
}

// roadClassFactor is road_class_factor[classification], classification
// 0 = motorway ... 7 = service/other.
var roadClassFactor = [8]float64{1.0, 0.4, 0.2, 0.1, 0.05, 0.05, 0.0, 0.5}

// cyclelaneFactor is cyclelane_factor[4*shoulder+cyclelane], a fixed
// linear function of use_roads: base + slope*use_roads.
var cyclelaneFactorBase = [8]float64{1.00, 0.60, 0.30, 0.15, 0.80, 0.50, 0.20, 0.10}
var cyclelaneFactorSlope = [8]float64{-0.50, -0.30, -0.15, -0.05, -0.40, -0.25, -0.10, -0.05}

func cyclelaneFactor(shoulder bool, cyclelane uint8, useRoads float64) float64 {
	idx := cyclelane
	if shoulder {
		idx += 4
	}
	if idx > 7 {
		idx = 7
	}
	v := cyclelaneFactorBase[idx] + cyclelaneFactorSlope[idx]*useRoads
	if v < 0 {
		v = 0
	}
	return v
}

// pathCyclelaneFactor is path_cyclelane_factor[cyclelane], used for
// cycleway/footway/path edges.
var pathCyclelaneFactorBase = [4]float64{0.90, 0.50, 0.25, 0.10}
var pathCyclelaneFactorSlope = [4]float64{-0.30, -0.20, -0.10, -0.05}

func pathCyclelaneFactor(cyclelane uint8, useRoads float64) float64 {
	idx := cyclelane
	if idx > 3 {
		idx = 3
	}
	v := pathCyclelaneFactorBase[idx] + pathCyclelaneFactorSlope[idx]*useRoads
	if v < 0 {
		v = 0
	}
	return v
}

// carPenaltyByClassification scales the avoid_cars penalty: heavier on
// motorway/trunk/primary/secondary/tertiary, lighter on
// service/living-street.
var carPenaltyByClassification = [8]float64{3.0, 2.5, 2.0, 1.5, 1.0, 0.5, 0.1, 0.3}

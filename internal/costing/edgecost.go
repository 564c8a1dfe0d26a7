package costing

import (
	"math"

	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

// EdgeCost is the outcome of costing one directed edge: cost is the
// abstract, penalty-weighted quantity the search minimizes; seconds is
// the wall-clock travel time used for trip summaries. An infinite cost
// marks the edge impassable for the given params.
type EdgeCost struct {
	Cost    float64
	Seconds float64
}

// Impassable is the sentinel returned for edges the rider cannot use.
var Impassable = EdgeCost{Cost: math.Inf(1), Seconds: math.Inf(1)}

// Model bundles a CostParams with the constants spec.md §4.5 derives
// once per request, so Edge can be called per candidate without
// recomputing them.
type Model struct {
	params       CostParams
	baseSpeedKPH float64
	worstSurface uint8

	avoidRoads     float64
	roadFactor     float64
	sidepathFactor float64
	livingstreetF  float64
	trackFactor    float64
	gradePenalty   [16]float64
	speedPenScale  float64
}

// NewModel derives the per-request constants from params.
func NewModel(params CostParams) *Model {
	speed := params.CyclingSpeedKPH
	if speed == 0 {
		speed = typeDefaultSpeed(params.BicycleType)
	}

	m := &Model{
		params:       params,
		baseSpeedKPH: speed,
		worstSurface: worstAllowedSurface(params.BicycleType),
		avoidRoads:   1 - params.UseRoads,
	}

	if params.UseRoads >= 0.5 {
		m.roadFactor = 1.5 - params.UseRoads
	} else {
		m.roadFactor = 2 - 2*params.UseRoads
	}
	m.sidepathFactor = 3 * (1 - params.UseRoads)
	m.livingstreetF = 0.2 + 0.8*params.UseRoads
	m.trackFactor = 0.5 + params.UseRoads
	m.speedPenScale = (1-params.UseRoads)*0.75 + 0.25

	for i := range m.gradePenalty {
		m.gradePenalty[i] = (1 - params.UseHills) * avoidHillsStrength[i]
	}

	return m
}

// speedPenalty is the piecewise posted-speed scaling of step 4's
// road-like roadway stress, scaled by how strongly the rider avoids
// roads.
func (m *Model) speedPenalty(s float64) float64 {
	var base float64
	switch {
	case s <= 40:
		base = s / 40
	case s <= 65:
		base = s/25 - 0.6
	default:
		base = s/50 + 0.7
	}
	return (base-1)*m.speedPenScale + 1
}

func isRoadLike(u tile.UseCategory) bool {
	switch u {
	case tile.UseRoad, tile.UseRamp, tile.UseOther:
		return true
	default:
		return false
	}
}

// Edge computes the cost of traversing e. This follows spec.md §4.5's
// ten steps in order.
func (m *Model) Edge(e *tile.DirectedEdge) EdgeCost {
	if !e.BikeTraversable() {
		return Impassable
	}

	// Step 1: clamp inputs to valid ranges, gate on surface.
	surface := clampIndex(int(e.Surface), 7)
	classification := clampIndex(int(e.Classification), 7)
	cyclelane := uint8(clampIndex(int(e.CycleLane), 3))
	grade := clampIndex(int(e.Grade), 15)
	postedSpeed := clamp(float64(e.PostedSpeed), 1, 120)

	if uint8(surface) > m.worstSurface {
		return Impassable
	}

	length := float64(e.LengthMeters)

	// Step 2: steps — fixed 1 kph effective speed, flat 8x multiplier.
	if e.Use == tile.UseSteps {
		sec := length * 3.6 / 1.0
		return EdgeCost{Cost: 8 * sec, Seconds: sec}
	}

	// Step 3: ferry — fixed 1.5x multiplier at posted speed.
	if e.Use == tile.UseFerry {
		sec := length * 3.6 / postedSpeed
		return EdgeCost{Cost: 1.5 * sec, Seconds: sec}
	}

	// Step 4: accommodation factor and roadway stress, branched by use.
	accommodation := 1.0
	roadwayStress := 1.0
	switch e.Use {
	case tile.UseCycleway, tile.UseFootway, tile.UsePath:
		accommodation = pathCyclelaneFactor(cyclelane, m.params.UseRoads)
	case tile.UseMountainBike:
		if m.params.BicycleType == Mountain {
			accommodation = 0.3 + m.params.UseRoads
		} else {
			accommodation = pathCyclelaneFactor(cyclelane, m.params.UseRoads)
		}
	case tile.UseLivingStreet:
		roadwayStress = m.livingstreetF
	case tile.UseTrack:
		roadwayStress = m.trackFactor
	default: // UseRoad, UseRamp, UseOther: road-like
		accommodation = cyclelaneFactor(e.Shoulder, cyclelane, m.params.UseRoads)
		stress := 0.0
		if e.LaneCount > 1 {
			stress += float64(e.LaneCount-1) * 0.05 * m.roadFactor
		}
		if e.TruckRoute {
			stress += 0.5
		}
		stress += m.roadFactor * roadClassFactor[classification]
		roadwayStress = stress * m.speedPenalty(postedSpeed)
	}

	// Step 5: sidepath adjustment.
	if e.UseSidepath {
		accommodation += m.sidepathFactor
	}
	// Step 6: bike-network discount.
	if e.BikeNetwork {
		accommodation *= 0.95
	}

	// Step 7: combine into the base factor.
	factor := 1 + m.gradePenalty[grade] + accommodation*roadwayStress

	// Step 8: avoid_cars penalty, road-like ways only.
	if m.params.AvoidCars && isRoadLike(e.Use) {
		factor += carPenaltyByClassification[classification]
	}

	// Step 9: bad-surface additive penalty.
	if uint8(surface) >= minimalSurfacePenalized {
		idx := surface - int(minimalSurfacePenalized)
		factor += m.params.AvoidBadSurfaces * surfaceFactor[idx]
	}

	// Step 10: bicycle speed and final cost.
	var speedKPH float64
	if e.Dismount {
		speedKPH = dismountSpeedKPH
	} else {
		speedKPH = math.Round(m.baseSpeedKPH * surfaceSpeedFactor[surface] * gradeSpeedFactor[grade])
	}
	speedKPH = clamp(speedKPH, 1, 255)

	sec := length * 3.6 / speedKPH
	return EdgeCost{Cost: sec * factor, Seconds: sec}
}

func clampIndex(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// TurnType classifies the geometric relationship between a predecessor
// edge heading and the candidate edge heading, in degrees of
// clockwise deviation from straight-ahead.
type TurnType uint8

const (
	TurnStraight TurnType = iota
	TurnSlightRight
	TurnRight
	TurnSharpRight
	TurnSlightLeft
	TurnLeft
	TurnSharpLeft
	TurnUTurn
)

// ClassifyTurn buckets a signed turn angle (degrees, positive = right)
// into a TurnType.
func ClassifyTurn(angleDeg float64) TurnType {
	a := angleDeg
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	switch {
	case a > -15 && a < 15:
		return TurnStraight
	case a >= 15 && a < 45:
		return TurnSlightRight
	case a >= 45 && a < 135:
		return TurnRight
	case a >= 135 && a <= 180:
		return TurnSharpRight
	case a <= -15 && a > -45:
		return TurnSlightLeft
	case a <= -45 && a > -135:
		return TurnLeft
	default:
		return TurnSharpLeft
	}
}

var turnPenaltySeconds = map[TurnType]float64{
	TurnStraight:    0,
	TurnSlightRight: 0.5,
	TurnRight:       2,
	TurnSharpRight:  3,
	TurnSlightLeft:  1,
	TurnLeft:        5,
	TurnSharpLeft:   7,
	TurnUTurn:       20,
}

// TransitionCost is the fixed node-crossing penalty: a flat 5 seconds
// plus a turn-type penalty, discounted when entering a cycleway or
// designated bike-network edge.
func TransitionCost(turn TurnType, enteringCycleway, enteringBikeNetwork bool) EdgeCost {
	penalty := turnPenaltySeconds[turn]
	if enteringCycleway {
		penalty *= 0.5
	} else if enteringBikeNetwork {
		penalty *= 0.7
	}
	seconds := 5.0 + penalty
	return EdgeCost{Cost: seconds, Seconds: seconds}
}

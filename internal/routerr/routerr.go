// Package routerr defines the closed set of typed errors the router
// surfaces at its boundary, per the error taxonomy in spec.md §7.
package routerr

import (
	"fmt"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
)

// TileMissingError reports that no tile file exists on disk for a key.
type TileMissingError struct {
	Level  graphid.Level
	TileID uint32
}

func (e TileMissingError) Error() string {
	return fmt.Sprintf("tile missing: level=%d tile_id=%d", e.Level, e.TileID)
}

// NewTileMissing constructs a TileMissingError.
func NewTileMissing(level graphid.Level, tileID uint32) TileMissingError {
	return TileMissingError{Level: level, TileID: tileID}
}

// TileCorruptError reports a tile that failed header/offset validation.
type TileCorruptError struct {
	Level  graphid.Level
	TileID uint32
	Reason string
}

func (e TileCorruptError) Error() string {
	return fmt.Sprintf("tile corrupt: level=%d tile_id=%d: %s", e.Level, e.TileID, e.Reason)
}

// NewTileCorrupt constructs a TileCorruptError.
func NewTileCorrupt(level graphid.Level, tileID uint32, reason string) TileCorruptError {
	return TileCorruptError{Level: level, TileID: tileID, Reason: reason}
}

// NoNodeNearbyError reports that no node was found within the search
// radius of an endpoint.
type NoNodeNearbyError struct {
	Lat, Lon  float64
	RadiusKM float64
}

func (e NoNodeNearbyError) Error() string {
	return fmt.Sprintf("no node within %.2fkm of (%.6f, %.6f)", e.RadiusKM, e.Lat, e.Lon)
}

// NewNoNodeNearby constructs a NoNodeNearbyError.
func NewNoNodeNearby(lat, lon, radiusKM float64) NoNodeNearbyError {
	return NoNodeNearbyError{Lat: lat, Lon: lon, RadiusKM: radiusKM}
}

// NoRouteFoundError reports a search that exhausted its frontier or its
// iteration cap without finding a path.
type NoRouteFoundError struct {
	Reason string
}

func (e NoRouteFoundError) Error() string {
	return fmt.Sprintf("no route found: %s", e.Reason)
}

// NewNoRouteFound constructs a NoRouteFoundError.
func NewNoRouteFound(reason string) NoRouteFoundError {
	return NoRouteFoundError{Reason: reason}
}

// CancelledError reports cooperative cancellation of an in-flight query.
type CancelledError struct{}

func (CancelledError) Error() string { return "query cancelled" }

// DeadlineExceededError reports a query that passed its bound deadline.
type DeadlineExceededError struct{}

func (DeadlineExceededError) Error() string { return "query deadline exceeded" }

// InternalError reports a violated invariant; it should never be
// observed in steady state and is logged with enough context to bisect.
type InternalError struct {
	Context string
}

func (e InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Context)
}

// NewInternal constructs an InternalError.
func NewInternal(context string) InternalError {
	return InternalError{Context: context}
}

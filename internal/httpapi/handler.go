// Package httpapi is the thin HTTP surface over the request
// coordinator (spec.md §6.2): a single POST /route endpoint. Routing,
// JSON binding, and error-to-status mapping follow the teacher's use
// of labstack/echo/v5, adapted from PocketBase's embedded router to a
// standalone echo.Echo instance since this service carries none of
// the teacher's CMS/auth surface.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/smatkovi/valhalla-bike-router/internal/coordinator"
	"github.com/smatkovi/valhalla-bike-router/internal/costing"
	"github.com/smatkovi/valhalla-bike-router/internal/metrics"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
)

// Handler wires the coordinator into echo routes.
type Handler struct {
	coord          *coordinator.Coordinator
	searchDeadline time.Duration
	metrics        *metrics.Metrics
}

// New builds a Handler. searchDeadline bounds every /route call; zero
// disables the deadline.
func New(coord *coordinator.Coordinator, searchDeadline time.Duration, m *metrics.Metrics) *Handler {
	return &Handler{coord: coord, searchDeadline: searchDeadline, metrics: m}
}

// Register mounts the handler's routes onto e.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/route", h.handleRoute)
}

// locationJSON is one element of the request body's "locations" array.
type locationJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// bicycleOptionsJSON is costing_options.bicycle per spec.md §6.2.
type bicycleOptionsJSON struct {
	BicycleType      string  `json:"bicycle_type"`
	UseRoads         float64 `json:"use_roads"`
	UseHills         float64 `json:"use_hills"`
	AvoidBadSurfaces float64 `json:"avoid_bad_surfaces"`
	AvoidCars        bool    `json:"avoid_cars"`
	CyclingSpeed     float64 `json:"cycling_speed_kph"`
}

type costingOptionsJSON struct {
	Bicycle bicycleOptionsJSON `json:"bicycle"`
}

type routeRequestJSON struct {
	Locations      []locationJSON     `json:"locations"`
	Costing        string             `json:"costing"`
	CostingOptions costingOptionsJSON `json:"costing_options"`
	Densify        bool               `json:"densify"`
}

type pointJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type routeResponseJSON struct {
	Shape       []pointJSON `json:"shape"`
	LengthKM    float64     `json:"length_km"`
	TimeSeconds float64     `json:"time_s"`
	CarKM       float64     `json:"car_km"`
	CyclefreeKM float64     `json:"cyclefree_km"`
}

type errorResponseJSON struct {
	Error string `json:"error"`
}

func (h *Handler) handleRoute(c echo.Context) error {
	var req routeRequestJSON
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponseJSON{Error: "malformed request body"})
	}
	if len(req.Locations) != 2 {
		return c.JSON(http.StatusBadRequest, errorResponseJSON{Error: "locations must contain exactly 2 points"})
	}

	bicycleType, ok := parseBicycleType(req.CostingOptions.Bicycle.BicycleType)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponseJSON{Error: "unknown bicycle_type"})
	}

	opts := req.CostingOptions.Bicycle
	speed := opts.CyclingSpeed // 0 means "use the type default", per costing.NewCostParams
	params := costing.NewCostParams(bicycleType, opts.UseRoads, opts.UseHills, opts.AvoidBadSurfaces, opts.AvoidCars, speed)

	ctx := c.Request().Context()
	if h.searchDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.searchDeadline)
		defer cancel()
	}

	start := time.Now()
	resp, err := h.coord.Route(ctx, coordinator.Request{
		Start:   coordinator.LatLon{Lat: req.Locations[0].Lat, Lon: req.Locations[0].Lon},
		End:     coordinator.LatLon{Lat: req.Locations[1].Lat, Lon: req.Locations[1].Lon},
		Params:  params,
		Densify: req.Densify,
	})
	if h.metrics != nil {
		h.metrics.ObserveSearchDuration(time.Since(start).Seconds())
	}
	if err != nil {
		return writeRouteError(c, err)
	}

	shape := make([]pointJSON, len(resp.Shape))
	for i, p := range resp.Shape {
		shape[i] = pointJSON{Lat: p.Lat, Lon: p.Lon}
	}

	return c.JSON(http.StatusOK, routeResponseJSON{
		Shape:       shape,
		LengthKM:    resp.LengthKM,
		TimeSeconds: resp.TimeSeconds,
		CarKM:       resp.CarKM,
		CyclefreeKM: resp.CyclefreeKM,
	})
}

func parseBicycleType(s string) (costing.BicycleType, bool) {
	switch s {
	case "", "hybrid":
		return costing.Hybrid, true
	case "road":
		return costing.Road, true
	case "cross":
		return costing.Cross, true
	case "mountain":
		return costing.Mountain, true
	default:
		return 0, false
	}
}

// writeRouteError maps the routerr taxonomy onto HTTP status codes.
func writeRouteError(c echo.Context, err error) error {
	var tileMissing routerr.TileMissingError
	var tileCorrupt routerr.TileCorruptError
	var noNode routerr.NoNodeNearbyError
	var noRoute routerr.NoRouteFoundError
	var cancelled routerr.CancelledError
	var deadline routerr.DeadlineExceededError

	switch {
	case errors.As(err, &tileMissing), errors.As(err, &tileCorrupt), errors.As(err, &noNode), errors.As(err, &noRoute):
		return c.JSON(http.StatusUnprocessableEntity, errorResponseJSON{Error: err.Error()})
	case errors.As(err, &cancelled):
		return c.JSON(http.StatusRequestTimeout, errorResponseJSON{Error: err.Error()})
	case errors.As(err, &deadline):
		return c.JSON(http.StatusGatewayTimeout, errorResponseJSON{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponseJSON{Error: "internal error"})
	}
}

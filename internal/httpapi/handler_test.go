package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/smatkovi/valhalla-bike-router/internal/coordinator"
	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/metrics"
	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
	"github.com/smatkovi/valhalla-bike-router/internal/shape"
	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

// twoNodeGraph mirrors internal/coordinator's test fake: a single
// bidirectional edge, just enough to drive a full HTTP round trip.
type twoNodeGraph struct{}

func (twoNodeGraph) Locate(_ context.Context, lat, _ float64, _ graphid.Level) (navigator.State, error) {
	if lat < 48.0005 {
		return navigator.State{Level: graphid.LevelLocal, NodeID: 0}, nil
	}
	return navigator.State{Level: graphid.LevelLocal, NodeID: 1}, nil
}

func (twoNodeGraph) edge(to uint32) navigator.Edge {
	return navigator.Edge{
		Attrs: tile.DirectedEdge{
			Use: tile.UseRoad, Classification: 6, Grade: 7, LengthMeters: 100,
			ForwardAccess: tile.BicycleAccessBit, ReverseAccess: tile.BicycleAccessBit,
			Usable: true,
		},
		To: navigator.State{Level: graphid.LevelLocal, NodeID: to},
	}
}

func (g twoNodeGraph) Neighbours(_ context.Context, s navigator.State) ([]navigator.Edge, error) {
	if s.NodeID == 0 {
		return []navigator.Edge{g.edge(1)}, nil
	}
	return []navigator.Edge{g.edge(0)}, nil
}

func (g twoNodeGraph) ReverseNeighbours(ctx context.Context, s navigator.State) ([]navigator.Edge, error) {
	return g.Neighbours(ctx, s)
}

func (twoNodeGraph) Transitions(_ context.Context, _ navigator.State) ([]navigator.Transition, error) {
	return nil, nil
}

func (twoNodeGraph) Coords(_ context.Context, s navigator.State) (float64, float64, error) {
	if s.NodeID == 0 {
		return 48.000, 16.000, nil
	}
	return 48.001, 16.001, nil
}

func (twoNodeGraph) EdgeShape(_ context.Context, _ navigator.Edge) ([]shape.Point, bool) {
	return nil, false
}

func newTestHandler() *Handler {
	coord := coordinator.New(twoNodeGraph{})
	m := metrics.New(prometheus.NewRegistry())
	return New(coord, 5*time.Second, m)
}

func TestHandleRoute_Success(t *testing.T) {
	e := echo.New()
	h := newTestHandler()
	h.Register(e)

	body := `{"locations":[{"lat":48.000,"lon":16.000},{"lat":48.001,"lon":16.001}],"costing":"bicycle","costing_options":{"bicycle":{"bicycle_type":"hybrid","use_roads":0.5,"use_hills":0.5}}}`
	req := httptest.NewRequest(http.MethodPost, "/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"length_km"`)
}

func TestHandleRoute_RejectsWrongLocationCount(t *testing.T) {
	e := echo.New()
	h := newTestHandler()
	h.Register(e)

	body := `{"locations":[{"lat":48.0,"lon":16.0}]}`
	req := httptest.NewRequest(http.MethodPost, "/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRoute_RejectsUnknownBicycleType(t *testing.T) {
	e := echo.New()
	h := newTestHandler()
	h.Register(e)

	body := `{"locations":[{"lat":48.0,"lon":16.0},{"lat":48.001,"lon":16.001}],"costing_options":{"bicycle":{"bicycle_type":"unicycle"}}}`
	req := httptest.NewRequest(http.MethodPost, "/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteRouteError_MapsNoRouteFoundTo422(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := writeRouteError(c, routerr.NewNoRouteFound("frontier exhausted"))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

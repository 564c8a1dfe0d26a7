// Command bikerouter serves POST /route over the on-disk tile
// hierarchy described in spec.md §6.1, wiring config -> tile cache ->
// navigator -> coordinator -> HTTP server. Structured as a single
// composition root, in the style of the teacher's main.go (construct
// dependencies top-down, fail fast on startup errors) generalized away
// from PocketBase's app-lifecycle hooks to a plain echo.Echo server.
package main

import (
	"log"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smatkovi/valhalla-bike-router/internal/config"
	"github.com/smatkovi/valhalla-bike-router/internal/coordinator"
	"github.com/smatkovi/valhalla-bike-router/internal/httpapi"
	"github.com/smatkovi/valhalla-bike-router/internal/metrics"
	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
	"github.com/smatkovi/valhalla-bike-router/internal/tilecache"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	source := tilecache.NewFileSource(cfg.TileStore.Root)
	cacheOpts := []tilecache.Option{tilecache.WithMetrics(m)}
	if cfg.Cache.ScratchPath != "" {
		cacheOpts = append(cacheOpts, tilecache.WithScratchPath(cfg.Cache.ScratchPath))
	}
	cache, err := tilecache.New(source, cfg.Cache.Capacity, cacheOpts...)
	if err != nil {
		log.Fatalf("failed to build tile cache: %v", err)
	}
	defer cache.Close()

	nav := navigator.New(cache)
	coord := coordinator.New(nav)

	deadline := time.Duration(cfg.Search.DeadlineSeconds) * time.Second
	handler := httpapi.New(coord, deadline, m)

	e := echo.New()
	handler.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })

	log.Printf("bikerouter listening on :%d (tile root %s)", cfg.Server.Port, cfg.TileStore.Root)
	if err := e.Start(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

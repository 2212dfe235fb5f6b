// Package apptest wires an AppContext over throwaway backends for tests.
package apptest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// New spins up an in-memory SQLite DB, a miniredis and a private metrics
// registry, and wires them into an AppContext. Logs are discarded.
//
// Each test gets its own isolated DB + Redis.
func New(t *testing.T) *app.AppContext {
	t.Helper()

	gdb := dbtest.Open(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { redisCache.Close() })

	return app.New(gdb, redisCache, logger.Nop(), metrics.New(prometheus.NewRegistry()))
}

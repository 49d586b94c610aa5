// Package app wires up all subsystems and owns the application lifecycle.
//
// Startup order:
//  1. initStore        — persistence backend (postgres or memory)
//  2. initCredPool     — upstream credential pool, seeded from the store
//  3. initServices     — upstream client, log recorder, metrics registry
//  4. initOrchestrator — request-execution pipeline + HTTP server
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foamcold/gproxy/internal/config"
	"github.com/foamcold/gproxy/internal/credpool"
	"github.com/foamcold/gproxy/internal/logrecorder"
	"github.com/foamcold/gproxy/internal/logrecorder/chsink"
	"github.com/foamcold/gproxy/internal/metrics"
	"github.com/foamcold/gproxy/internal/orchestrator"
	"github.com/foamcold/gproxy/internal/proxy"
	"github.com/foamcold/gproxy/internal/store"
	"github.com/foamcold/gproxy/internal/store/postgres"
	"github.com/foamcold/gproxy/internal/upstream"
)

// App owns all long-lived resources and exposes Run / Close.
type App struct {
	version string
	cfg     *config.Config
	baseCtx context.Context
	log     *slog.Logger

	st    store.Store
	pg    *postgres.Store // non-nil only when cfg.StoreDriver == "postgres", for Close
	pool  *credpool.Pool
	up    *upstream.Client
	sink  *chsink.Sink
	rec   *logrecorder.Recorder
	prom  *metrics.Registry
	orch  *orchestrator.Orchestrator
	srv   *proxy.Server

	closeOnce sync.Once
}

// New initialises all subsystems and returns a ready-to-run App.
// All resources allocated here are released by Close.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, version string) (*App, error) {
	if ctx == nil {
		return nil, fmt.Errorf("app: context must not be nil")
	}

	a := &App{cfg: cfg, version: version, baseCtx: ctx, log: log}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"store", a.initStore},
		{"credpool", a.initCredPool},
		{"services", a.initServices},
		{"orchestrator", a.initOrchestrator},
	}

	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("app: init %s: %w", s.name, err)
		}
	}

	return a, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or an error
// occurs. It closes the app gracefully when returning.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting gateway",
		slog.String("version", a.version),
		slog.String("addr", a.cfg.ListenAddr),
		slog.String("store_driver", a.cfg.StoreDriver),
		slog.Int("credentials", a.pool.EnabledCount()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var mgmt *proxy.ManagementRoutes
		if a.cfg.MetricsEnabled {
			mgmt = &proxy.ManagementRoutes{Metrics: a.prom.Handler()}
		}
		return a.srv.StartWithRoutes(a.cfg.ListenAddr, mgmt)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Close()
		return nil
	})

	return g.Wait()
}

// Close releases all resources in reverse-init order. Safe to call multiple
// times and from multiple goroutines.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.rec != nil {
			a.rec.Close()
			a.rec = nil
		}
		if a.sink != nil {
			if err := a.sink.Close(); err != nil {
				a.log.Error("clickhouse sink close error", slog.String("error", err.Error()))
			}
			a.sink = nil
		}
		if a.pg != nil {
			a.pg.Close()
			a.pg = nil
		}
	})
}

// ── Private helpers ──────────────────────────────────────────────────────

// credentialRefreshPeriod is how often the credential pool's scores and
// cooldowns are mirrored to Prometheus. The pool itself is refreshed
// lazily — credentials are re-read from the store only at startup.
const credentialRefreshPeriod = 15 * time.Second

func (a *App) publishCredentialMetrics() {
	for _, s := range a.pool.SnapshotScores() {
		a.prom.SetCredentialState(s.Credential.ID, s.Score, s.CooldownRemaining, s.Credential.Enabled)
	}
}

func (a *App) startMetricsPublisher(ctx context.Context) {
	ticker := time.NewTicker(credentialRefreshPeriod)
	go func() {
		defer ticker.Stop()
		var lastDropped int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.publishCredentialMetrics()
				if a.rec != nil {
					if d := a.rec.DroppedLogs(); d > lastDropped {
						a.prom.AddDroppedLogs(d - lastDropped)
						lastDropped = d
					}
				}
			}
		}
	}()
}

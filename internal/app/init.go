package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foamcold/gproxy/internal/credpool"
	"github.com/foamcold/gproxy/internal/logrecorder"
	"github.com/foamcold/gproxy/internal/logrecorder/chsink"
	"github.com/foamcold/gproxy/internal/metrics"
	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/orchestrator"
	"github.com/foamcold/gproxy/internal/proxy"
	"github.com/foamcold/gproxy/internal/store"
	"github.com/foamcold/gproxy/internal/store/memory"
	"github.com/foamcold/gproxy/internal/store/postgres"
	"github.com/foamcold/gproxy/internal/upstream"
)

// initStore opens the configured persistence backend.
func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case "postgres":
		pg, err := postgres.Open(ctx, a.cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.pg = pg
		a.st = pg
		a.log.Info("store backend: postgres")

	case "memory":
		a.st = memory.New()
		a.log.Info("store backend: memory (in-process, not persisted)")

	default:
		return fmt.Errorf("unknown store driver: %s", a.cfg.StoreDriver)
	}

	return nil
}

// initCredPool seeds the credential pool from the store's currently
// enabled upstream credentials.
func (a *App) initCredPool(ctx context.Context) error {
	creds, err := a.st.ListEnabledCredentials(ctx)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}
	if len(creds) == 0 {
		return fmt.Errorf("no enabled upstream credentials configured")
	}

	a.pool = credpool.New(creds, a.cfg.LeaseWaitTimeout)
	a.log.Info("credential pool seeded", slog.Int("credentials", len(creds)))

	return nil
}

// initServices builds the upstream client, the async log recorder, and
// the Prometheus metrics registry.
func (a *App) initServices(ctx context.Context) error {
	a.up = upstream.New(a.cfg.UpstreamBaseURL, nil)

	var sink logrecorder.Sink
	if a.cfg.ClickHouseDSN != "" {
		s, err := chsink.Open(ctx, a.cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		a.sink = s
		sink = s
		a.log.Info("log sink: clickhouse")
	} else {
		sink = storeSink{st: a.st}
		a.log.Info("log sink: store (AppendLog)")
	}

	a.rec = logrecorder.New(a.baseCtx, sink, a.log)

	a.prom = metrics.New()
	a.prom.SetBuildInfo(a.version)
	a.startMetricsPublisher(ctx)

	return nil
}

// initOrchestrator wires the request-execution pipeline together with
// the HTTP server.
func (a *App) initOrchestrator(_ context.Context) error {
	a.orch = orchestrator.New(a.st, a.pool, a.up, a.rec, a.log, orchestrator.Options{
		AttemptTimeout: a.cfg.AttemptTimeout,
		RequestTimeout: a.cfg.RequestTimeout,
		Models:         a.cfg.Models,
		MaxAttempts:    a.cfg.MaxAttempts,
		VarEngineSeed:  a.cfg.VarEngineSeed,
	})

	a.srv = proxy.New(a.orch, a.cfg.CORSOrigins, a.readinessProbe, a.prom)

	return nil
}

// readinessProbe reports ready once at least one credential is enabled.
func (a *App) readinessProbe() bool {
	return a.pool.EnabledCount() > 0
}

// storeSink persists recorded entries through Store.AppendLog, the
// logs-table write §4.1 names as a core Store operation. Used whenever
// no ClickHouse DSN is configured, so the operational store backend
// carries request logs instead of the rows going nowhere.
type storeSink struct {
	st store.Store
}

func (s storeSink) Write(ctx context.Context, entries []model.LogEntry) error {
	for _, e := range entries {
		if err := s.st.AppendLog(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

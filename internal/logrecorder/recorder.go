// Package logrecorder is a non-blocking, batched request logger. Log
// rows are written to an internal buffered channel and flushed in
// batches by a background goroutine, so LogRecorder.append_log never
// blocks the hot path (§5: "log writes MAY be batched"). This is the
// teacher's own request logger, restructured to sink into ClickHouse —
// a dependency the teacher carried in its go.mod but never imported —
// with a slog mirror that stays on when no ClickHouse DSN is configured.
package logrecorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foamcold/gproxy/internal/model"
)

const (
	channelBuffer = 10_000
	batchSize     = 100
	flushInterval = time.Second
)

// Sink persists a batch of log rows. Implementations must not block
// indefinitely; Recorder calls Sink.Write from its own background
// goroutine, never from the request path.
type Sink interface {
	Write(ctx context.Context, entries []model.LogEntry) error
}

// Recorder is the LogRecorder component: it satisfies §8's "append_log
// called exactly once per request" invariant by being a cheap, never-
// blocking, eventually-durable queue in front of Sink.
type Recorder struct {
	ch          chan model.LogEntry
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
	droppedLogs int64
	baseCtx     context.Context
	sink        Sink
	log         *slog.Logger
}

// New starts the background flush loop. sink may be nil, in which case
// entries are only mirrored to slog.
func New(ctx context.Context, sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		ch:      make(chan model.LogEntry, channelBuffer),
		done:    make(chan struct{}),
		baseCtx: ctx,
		sink:    sink,
		log:     logger,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Append enqueues entry for durable persistence. Non-blocking: if the
// internal channel is full, the entry is dropped and counted in
// DroppedLogs rather than stalling the caller.
func (r *Recorder) Append(entry model.LogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	select {
	case r.ch <- entry:
	default:
		atomic.AddInt64(&r.droppedLogs, 1)
	}
}

// DroppedLogs returns how many entries were dropped due to channel
// backpressure since startup.
func (r *Recorder) DroppedLogs() int64 {
	return atomic.LoadInt64(&r.droppedLogs)
}

// Close stops the flush loop, draining any buffered entries first.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()

	batch := make([]model.LogEntry, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		r.mirror(batch)
		if r.sink != nil {
			if err := r.sink.Write(r.baseCtx, batch); err != nil {
				r.log.Error("logrecorder: sink write failed", slog.Any("error", err), slog.Int("count", len(batch)))
			}
		}
		batch = make([]model.LogEntry, 0, batchSize)
	}

	for {
		select {
		case e := <-r.ch:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.done:
			for {
				select {
				case e := <-r.ch:
					batch = append(batch, e)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) mirror(batch []model.LogEntry) {
	for _, e := range batch {
		r.log.InfoContext(r.baseCtx, "request_completed",
			slog.String("id", e.ID),
			slog.String("tenant_key_id", e.TenantKeyID),
			slog.String("model", e.Model),
			slog.Int("http_status", e.HTTPStatus),
			slog.String("status", e.Status),
			slog.Float64("latency_s", e.TotalLatencySeconds),
			slog.Float64("ttft_s", e.TTFTSeconds),
			slog.Bool("stream", e.Stream),
			slog.Int64("input_tokens", e.InputTokens),
			slog.Int64("output_tokens", e.OutputTokens),
			slog.Bool("tokens_estimated", e.TokensEstimated),
		)
	}
}

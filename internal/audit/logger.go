package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/twingenie/twingenie/internal/platform/database"
	"github.com/twingenie/twingenie/internal/platform/telemetry"
)

// LoggerConfig configures the async audit logger.
type LoggerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// AsyncLogger implements Logger with a buffered channel and background worker.
type AsyncLogger struct {
	ch     chan Event
	store  *Store
	db     database.Querier
	cfg    LoggerConfig
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewAsyncLogger creates and starts an async audit logger.
func NewAsyncLogger(db database.Querier, store *Store, cfg LoggerConfig) *AsyncLogger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &AsyncLogger{
		ch:     make(chan Event, cfg.BufferSize),
		store:  store,
		db:     db,
		cfg:    cfg,
		cancel: cancel,
	}

	l.wg.Add(1)
	go l.worker(ctx)

	return l
}

// Log enqueues an audit event. It never blocks the request path; when the
// buffer is full the event is dropped and counted.
func (l *AsyncLogger) Log(_ context.Context, event Event) {
	select {
	case l.ch <- event:
	default:
		telemetry.AuditEvents.WithLabelValues("dropped").Inc()
		slog.Warn("audit buffer full, dropping event", "action", event.Action)
	}
}

// Close stops the worker after it has flushed everything still buffered.
func (l *AsyncLogger) Close() error {
	l.cancel()
	l.wg.Wait()
	l.flush(l.drainAll())
	return nil
}

func (l *AsyncLogger) worker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			l.flush(append(batch, l.drainAll()...))
			return

		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= l.cfg.BatchSize {
				l.flush(batch)
				batch = make([]Event, 0, l.cfg.BatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = make([]Event, 0, l.cfg.BatchSize)
			}
		}
	}
}

func (l *AsyncLogger) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.InsertBatch(ctx, l.db, events); err != nil {
		telemetry.AuditEvents.WithLabelValues("failed").Add(float64(len(events)))
		slog.Error("audit flush failed", "error", err, "count", len(events))
		return
	}
	telemetry.AuditEvents.WithLabelValues("written").Add(float64(len(events)))
}

func (l *AsyncLogger) drainAll() []Event {
	var events []Event
	for {
		select {
		case e := <-l.ch:
			events = append(events, e)
		default:
			return events
		}
	}
}

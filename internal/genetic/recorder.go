package genetic

//go:generate go tool mockgen -destination=./mocks/store_mock.go -package=mocks . GenerationStore

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GenerationStore persists evolved generations.
type GenerationStore interface {
	SaveGeneration(ctx context.Context, sessionID uuid.UUID, gen Generation) error
}

const flushTimeout = 5 * time.Second

type record struct {
	sessionID uuid.UUID
	gen       Generation
}

// Recorder writes generations to a store off the simulation goroutine.
type Recorder struct {
	store   GenerationStore
	queue   chan record
	dropped atomic.Int64
	saved   atomic.Int64
}

// NewRecorder creates a recorder with a bounded queue.
func NewRecorder(store GenerationStore, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Recorder{
		store: store,
		queue: make(chan record, queueSize),
	}
}

// Record enqueues gen without blocking. Returns false when the queue is full.
func (r *Recorder) Record(sessionID uuid.UUID, gen Generation) bool {
	select {
	case r.queue <- record{sessionID: sessionID, gen: gen}:
		return true
	default:
		r.dropped.Add(1)
		slog.Warn("generation record dropped (queue full)",
			"sessionID", sessionID,
			"generation", gen.Number)
		return false
	}
}

// Dropped returns the number of generations dropped because the queue was full
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Saved returns the number of generations written successfully
func (r *Recorder) Saved() int64 {
	return r.saved.Load()
}

// Run drains the queue until ctx is canceled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	slog.Info("generation recorder started")

	for {
		select {
		case <-ctx.Done():
			r.flush(ctx)
			slog.Info("generation recorder stopped")
			return nil
		case rec := <-r.queue:
			r.save(ctx, rec)
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	for {
		select {
		case rec := <-r.queue:
			r.save(flushCtx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) save(ctx context.Context, rec record) {
	if err := r.store.SaveGeneration(ctx, rec.sessionID, rec.gen); err != nil {
		slog.Error("saving generation",
			"sessionID", rec.sessionID,
			"generation", rec.gen.Number,
			"error", err)
		return
	}
	r.saved.Add(1)
}

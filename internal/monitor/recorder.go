package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/observability"
	"dealer-scan/internal/storage"
)

// RecorderConfig controls trade event batching.
type RecorderConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultRecorderConfig returns the batching defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
		BufferSize:    4096,
	}
}

// flushTimeout bounds the final flush after cancellation.
const flushTimeout = 5 * time.Second

// Recorder batches decoded trade events into a TradeEventStore. Record never
// blocks the decode path; events that do not fit the buffer are dropped.
type Recorder struct {
	store  storage.TradeEventStore
	cfg    RecorderConfig
	in     chan domain.ObservedTrade
	logger *logrus.Entry
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store storage.TradeEventStore, cfg RecorderConfig, logger *logrus.Entry) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Recorder{
		store:  store,
		cfg:    cfg,
		in:     make(chan domain.ObservedTrade, cfg.BufferSize),
		logger: logger.WithField("component", "recorder"),
	}
}

// Record queues t for the next batch.
func (r *Recorder) Record(t domain.ObservedTrade) {
	select {
	case r.in <- t:
	default:
		observability.RecordTradeEventDropped()
		r.logger.WithField("signature", t.Signature).Debug("recorder buffer full, event dropped")
	}
}

// Run flushes batches until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*domain.ObservedTrade, 0, r.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			r.drain(&batch)
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			r.flush(flushCtx, batch)
			cancel()
			return ctx.Err()
		case t := <-r.in:
			batch = append(batch, &t)
			if len(batch) >= r.cfg.BatchSize {
				r.flush(ctx, batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (r *Recorder) drain(batch *[]*domain.ObservedTrade) {
	for {
		select {
		case t := <-r.in:
			*batch = append(*batch, &t)
		default:
			return
		}
	}
}

func (r *Recorder) flush(ctx context.Context, batch []*domain.ObservedTrade) {
	if len(batch) == 0 {
		return
	}
	err := r.store.InsertBulk(ctx, batch)
	switch {
	case err == nil:
		r.logger.WithField("events", len(batch)).Debug("trade events recorded")
	case errors.Is(err, storage.ErrDuplicateKey):
		// A restarted subscription can replay notifications; keep the new ones.
		r.insertEach(ctx, batch)
	default:
		observability.RecordDBError("trade_events", "insert_bulk")
		r.logger.WithError(err).WithField("events", len(batch)).Error("record trade events")
	}
}

func (r *Recorder) insertEach(ctx context.Context, batch []*domain.ObservedTrade) {
	var dup int
	for _, t := range batch {
		err := r.store.InsertBulk(ctx, []*domain.ObservedTrade{t})
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrDuplicateKey):
			dup++
		default:
			observability.RecordDBError("trade_events", "insert")
			r.logger.WithError(err).WithField("signature", t.Signature).Error("record trade event")
		}
	}
	r.logger.WithFields(logrus.Fields{
		"events":     len(batch),
		"duplicates": dup,
	}).Warn("batch contained duplicate trade events")
}

// Package monitor wires one monitor rule end to end: log subscription,
// trade event decoding and the detection engine.
package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dealer-scan/internal/detector"
	"dealer-scan/internal/domain"
	"dealer-scan/internal/observability"
	"dealer-scan/internal/pumpfun"
	"dealer-scan/internal/solana"
	"dealer-scan/internal/supervisor"
)

// DefaultBufferSize is the notification channel capacity between the
// subscription and the decoder.
const DefaultBufferSize = 256

// TradeSink receives every decoded trade event.
type TradeSink interface {
	Record(t domain.ObservedTrade)
}

// Monitor runs the scan_dealer pipeline for a single rule.
type Monitor struct {
	rule    domain.MonitorRule
	sub     solana.LogSubscriber
	engine  *detector.Engine
	restart supervisor.Config
	sink    TradeSink
	buffer  int
	logger  *logrus.Entry
	now     func() time.Time
}

// Option configures Monitor.
type Option func(*Monitor)

// WithSink forwards decoded trade events to sink.
func WithSink(sink TradeSink) Option {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// WithBufferSize sets the notification channel capacity.
func WithBufferSize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// New creates a Monitor for rule.
func New(rule domain.MonitorRule, sub solana.LogSubscriber, engine *detector.Engine, restart supervisor.Config, logger *logrus.Entry, opts ...Option) *Monitor {
	m := &Monitor{
		rule:    rule,
		sub:     sub,
		engine:  engine,
		restart: restart,
		buffer:  DefaultBufferSize,
		logger: logger.WithFields(logrus.Fields{
			"component": "monitor",
			"rule":      rule.RuleType,
			"address":   rule.Address,
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run subscribes to the rule address, feeds decoded buys into the engine and
// runs the engine sweep until ctx is cancelled or the subscription fails
// permanently.
func (m *Monitor) Run(ctx context.Context, alarms chan<- domain.Alarm) error {
	notifications := make(chan solana.LogNotification, m.buffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return supervisor.Run(gctx, "logs:"+m.rule.Address, m.restart, m.logger, func(ctx context.Context) error {
			m.logger.Info("subscribing to logs")
			return m.sub.SubscribeLogs(ctx, m.rule.Address, notifications)
		})
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case n := <-notifications:
				m.Handle(n)
			}
		}
	})

	g.Go(func() error {
		return m.engine.Run(gctx, alarms)
	})

	return g.Wait()
}

// Handle routes one log notification. Only transactions that executed a buy
// instruction are decoded; the first trade event line is used.
func (m *Monitor) Handle(n solana.LogNotification) {
	observability.RecordNotification(m.rule.Address)

	if !pumpfun.HasBuyInstruction(n.Logs) {
		return
	}

	line, ok := pumpfun.FindTradeEventLine(n.Logs)
	if !ok {
		m.logger.WithField("signature", n.Signature).Trace("buy without trade event")
		return
	}

	ev, err := pumpfun.DecodeTradeEvent(line)
	if err != nil {
		observability.RecordDecodeError("trade_event")
		m.logger.WithError(err).WithField("signature", n.Signature).Warn("decode trade event")
		return
	}
	observability.RecordTradeEventDecoded()

	m.logger.WithFields(logrus.Fields{
		"signature": n.Signature,
		"mint":      ev.Mint,
		"sol":       ev.SOL(),
		"is_buy":    ev.IsBuy,
		"price":     ev.Price(),
	}).Debug("trade event")

	m.engine.Add(ev)

	if m.sink != nil {
		m.sink.Record(domain.ObservedTrade{
			Signature:  n.Signature,
			Slot:       uint64(n.Slot),
			Monitor:    m.rule.Address,
			Event:      ev,
			ReceivedAt: m.now(),
		})
	}
}

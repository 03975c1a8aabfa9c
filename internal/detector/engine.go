package detector

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/idhash"
	"dealer-scan/internal/observability"
)

// Engine applies the dealer rule to one monitor's trade events.
type Engine struct {
	rule   domain.MonitorRule
	config Config
	window *Window
	logger *logrus.Entry
	now    func() time.Time
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a detector engine for rule.
func NewEngine(rule domain.MonitorRule, config Config, logger *logrus.Entry, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	e := &Engine{
		rule:   rule,
		config: config,
		window: NewWindow(),
		logger: logger.WithFields(logrus.Fields{
			"component": "detector",
			"monitor":   rule.Address,
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Add records ev in the window. Buys below the floor are dropped.
// Returns whether the event was kept.
func (e *Engine) Add(ev domain.TradeEvent) bool {
	sol := ev.SOL()
	if ev.IsBuy && sol < e.config.BuyFloorSOL {
		return false
	}

	e.logger.WithFields(logrus.Fields{
		"mint":  ev.Mint,
		"sol":   sol,
		"price": ev.Price(),
	}).Debug("add event")

	e.window.Add(ev)
	return true
}

// Sweep evaluates and evicts every bucket aged at least EvictAfter at now,
// returning the alarms raised.
func (e *Engine) Sweep(now time.Time) []domain.Alarm {
	ageSeconds := int64(e.config.EvictAfter / time.Second)
	if e.config.EvictAfter%time.Second != 0 {
		ageSeconds++
	}
	cutoff := now.Unix() - ageSeconds

	var alarms []domain.Alarm
	removed := e.window.Drain(cutoff, func(ts int64, mint string, events []domain.TradeEvent) {
		baseline, ok := Evaluate(events, e.config.MinEvents, e.config.Tolerance)
		if !ok {
			return
		}

		amounts := make([]float64, e.config.MinEvents)
		for i := range amounts {
			amounts[i] = events[i].SOL()
		}
		alarm := domain.Alarm{
			ID:              idhash.AlarmID(e.rule.Address, mint, ts),
			Rule:            string(e.rule.RuleType),
			Monitor:         e.rule.Address,
			Mint:            mint,
			BucketTimestamp: ts,
			BaselineSOL:     baseline,
			Amounts:         amounts,
			RaisedAt:        now,
		}
		e.logger.WithFields(logrus.Fields{
			"mint":     mint,
			"sol":      baseline,
			"bucket":   ts,
			"alarm_id": alarm.ID,
		}).Warn("dealer alarm")
		observability.RecordAlarm(alarm.Rule)
		alarms = append(alarms, alarm)
	})

	if removed > 0 {
		e.logger.WithFields(logrus.Fields{
			"evicted": removed,
			"alarms":  len(alarms),
		}).Debug("sweep")
	}
	observability.RecordSweep(e.rule.Address, removed, e.window.Len())
	return alarms
}

// Evaluate applies the dealer rule to the events of one bucket: at least
// minEvents events, with events 1..minEvents-1 each within tolerance of the
// SOL amount of event 0. Returns the baseline SOL amount.
func Evaluate(events []domain.TradeEvent, minEvents int, tolerance float64) (float64, bool) {
	if len(events) < minEvents || minEvents < 1 {
		return 0, false
	}
	baseline := events[0].SOL()
	for _, ev := range events[1:minEvents] {
		if math.Abs(ev.SOL()-baseline) > baseline*tolerance {
			return 0, false
		}
	}
	return baseline, true
}

// Run sweeps the window every CheckInterval and offers alarms to the queue
// without blocking. Alarms that do not fit are logged and dropped.
// Returns ctx.Err() when ctx is done.
func (e *Engine) Run(ctx context.Context, alarms chan<- domain.Alarm) error {
	ticker := time.NewTicker(e.config.CheckInterval)
	defer ticker.Stop()

	e.logger.WithField("interval", e.config.CheckInterval).Info("detector started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, alarm := range e.Sweep(e.now()) {
				if alarms == nil {
					continue
				}
				select {
				case alarms <- alarm:
				default:
					observability.RecordAlarmDropped()
					e.logger.WithFields(logrus.Fields{
						"mint":     alarm.Mint,
						"alarm_id": alarm.ID,
					}).Warn("execution queue full, alarm dropped")
				}
			}
		}
	}
}

// Window exposes the engine's window for inspection.
func (e *Engine) Window() *Window {
	return e.window
}

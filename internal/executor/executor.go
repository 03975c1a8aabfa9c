// Package executor turns detector alarms into bonding-curve trades.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/jito"
	"dealer-scan/internal/observability"
	"dealer-scan/internal/pumpfun"
	"dealer-scan/internal/solana"
	"dealer-scan/internal/storage"
)

// ErrNoLiquidity is returned when the curve quote for an order is zero.
var ErrNoLiquidity = errors.New("no liquidity")

// Config controls how alarms are traded.
type Config struct {
	Enabled     bool          // trade on alarms; when false alarms are only recorded
	BuySOL      float64       // SOL spent per buy
	SlippagePct float64       // 30 means 30%
	HoldingTime time.Duration // sell the position after this long; 0 keeps it
	MaxInFlight int           // worker count
}

// Swapper executes a single swap.
type Swapper interface {
	Swap(ctx context.Context, req SwapRequest) (*SwapResult, error)
}

// CurveSource reads the current bonding curve state of a mint.
type CurveSource interface {
	BondingCurve(ctx context.Context, mint string) (domain.BondingCurveAccount, error)
}

// RPCCurveSource reads bonding curves through the node RPC.
type RPCCurveSource struct {
	RPC solana.RPCClient
}

// BondingCurve fetches and decodes the bonding curve account of mint.
func (s RPCCurveSource) BondingCurve(ctx context.Context, mint string) (domain.BondingCurveAccount, error) {
	_, acc, err := pumpfun.GetBondingCurveAccount(ctx, s.RPC, mint)
	return acc, err
}

// Executor consumes alarms with a bounded worker pool. At most one trade
// per mint runs at a time; alarms for a busy mint are skipped.
type Executor struct {
	swapper Swapper
	curves  CurveSource
	alarms  storage.AlarmStore
	cfg     Config
	logger  *logrus.Entry
	sleep   func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	inFlight map[string]struct{}
	haveATA  map[string]bool
}

// Option configures Executor.
type Option func(*Executor)

// WithAlarmStore records every consumed alarm.
func WithAlarmStore(store storage.AlarmStore) Option {
	return func(e *Executor) {
		e.alarms = store
	}
}

// WithSleep overrides how the holding time is waited out.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// New creates an Executor.
func New(swapper Swapper, curves CurveSource, cfg Config, logger *logrus.Entry, opts ...Option) *Executor {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	e := &Executor{
		swapper:  swapper,
		curves:   curves,
		cfg:      cfg,
		logger:   logger.WithField("component", "executor"),
		sleep:    sleepCtx,
		inFlight: make(map[string]struct{}),
		haveATA:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts MaxInFlight workers reading alarms until ctx is cancelled or
// the channel is closed.
func (e *Executor) Run(ctx context.Context, alarms <-chan domain.Alarm) error {
	e.logger.WithFields(logrus.Fields{
		"workers": e.cfg.MaxInFlight,
		"enabled": e.cfg.Enabled,
	}).Info("executor started")

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.MaxInFlight; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case alarm, ok := <-alarms:
					if !ok {
						return
					}
					if err := e.Handle(ctx, alarm); err != nil && ctx.Err() == nil {
						e.logger.WithError(err).WithField("mint", alarm.Mint).Error("alarm execution failed")
					}
				}
			}
		}()
	}
	wg.Wait()

	e.logger.Info("executor stopped")
	return ctx.Err()
}

// Handle records an alarm and, when trading is enabled, buys the mint and
// sells it again after the holding time.
func (e *Executor) Handle(ctx context.Context, alarm domain.Alarm) error {
	e.recordAlarm(ctx, alarm)

	if !e.cfg.Enabled {
		return nil
	}

	if !e.acquire(alarm.Mint) {
		e.logger.WithField("mint", alarm.Mint).Debug("trade already in flight, alarm skipped")
		return nil
	}
	defer e.release(alarm.Mint)

	tokens, err := e.buy(ctx, alarm)
	if err != nil || tokens == 0 || e.cfg.HoldingTime <= 0 {
		return err
	}

	if err := e.sleep(ctx, e.cfg.HoldingTime); err != nil {
		return err
	}
	return e.sell(ctx, alarm, tokens)
}

// buy returns the bought token amount when the buy finalized.
func (e *Executor) buy(ctx context.Context, alarm domain.Alarm) (uint64, error) {
	curve, err := e.curves.BondingCurve(ctx, alarm.Mint)
	if err != nil {
		return 0, fmt.Errorf("read bonding curve: %w", err)
	}
	req, err := BuyOrder(curve, alarm.Mint, jito.ToLamports(e.cfg.BuySOL), e.cfg.SlippagePct)
	if err != nil {
		return 0, err
	}
	req.AlarmID = alarm.ID
	req.CreateATA = !e.hasATA(alarm.Mint)

	res, err := e.swapper.Swap(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("buy %s: %w", alarm.Mint, err)
	}
	if res.Attempt.Status != domain.AttemptFinalized {
		return 0, nil
	}

	e.markATA(alarm.Mint)
	return req.TokenAmount, nil
}

func (e *Executor) sell(ctx context.Context, alarm domain.Alarm, tokens uint64) error {
	curve, err := e.curves.BondingCurve(ctx, alarm.Mint)
	if err != nil {
		return fmt.Errorf("read bonding curve: %w", err)
	}

	req := SellOrder(curve, alarm.Mint, tokens, e.cfg.SlippagePct)
	req.AlarmID = alarm.ID
	_, err = e.swapper.Swap(ctx, req)
	if err != nil {
		return fmt.Errorf("sell %s: %w", alarm.Mint, err)
	}
	return nil
}

func (e *Executor) recordAlarm(ctx context.Context, alarm domain.Alarm) {
	if e.alarms == nil {
		return
	}
	if err := e.alarms.Insert(ctx, &alarm); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordDBError("alarms", "insert")
		e.logger.WithError(err).WithField("alarm_id", alarm.ID).Warn("record alarm")
	}
}

func (e *Executor) acquire(mint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[mint]; busy {
		return false
	}
	e.inFlight[mint] = struct{}{}
	return true
}

func (e *Executor) release(mint string) {
	e.mu.Lock()
	delete(e.inFlight, mint)
	e.mu.Unlock()
}

func (e *Executor) hasATA(mint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haveATA[mint]
}

func (e *Executor) markATA(mint string) {
	e.mu.Lock()
	e.haveATA[mint] = true
	e.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

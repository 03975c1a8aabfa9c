package jito

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Confirmation defaults.
const (
	DefaultConfirmAttempts = 10
	DefaultConfirmDelay    = 2 * time.Second
)

// StatusSource polls bundle statuses from the relay.
type StatusSource interface {
	GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) (*BundleStatus, error)
	GetBundleStatuses(ctx context.Context, bundleIDs []string) (*BundleStatus, error)
}

// Confirmation is the outcome of tracking a bundle.
type Confirmation struct {
	BundleID  string
	Landed    bool
	Finalized bool
	Slot      uint64
	TxID      string
}

// Confirmer tracks a submitted bundle through landing and finalization.
type Confirmer struct {
	source      StatusSource
	maxAttempts int
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *logrus.Entry
}

// ConfirmerOption configures Confirmer.
type ConfirmerOption func(*Confirmer)

// WithAttempts sets the per-phase attempt budget.
func WithAttempts(n int) ConfirmerOption {
	return func(c *Confirmer) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithDelay sets the delay between attempts.
func WithDelay(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		c.delay = d
	}
}

// WithSleep overrides how the confirmer waits between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ConfirmerOption {
	return func(c *Confirmer) {
		c.sleep = sleep
	}
}

// WithConfirmerLogger sets the logger.
func WithConfirmerLogger(logger *logrus.Entry) ConfirmerOption {
	return func(c *Confirmer) {
		c.logger = logger
	}
}

// NewConfirmer creates a confirmer polling source.
func NewConfirmer(source StatusSource, opts ...ConfirmerOption) *Confirmer {
	c := &Confirmer{
		source:      source,
		maxAttempts: DefaultConfirmAttempts,
		delay:       DefaultConfirmDelay,
		sleep:       sleepCtx,
		logger:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "confirmer")
	return c
}

// Check polls in-flight status until the bundle lands, then polls final
// status until it is finalized. A bundle that never lands yields a
// Confirmation with Landed false and no error. A landed bundle that never
// finalizes yields ErrConfirmationTimeout. A finalized bundle with a
// transaction error yields a *TransactionError.
func (c *Confirmer) Check(ctx context.Context, bundleID string) (*Confirmation, error) {
	logger := c.logger.WithField("bundle_id", bundleID)

	landed, err := c.awaitLanded(ctx, bundleID, logger)
	if err != nil {
		return nil, err
	}
	if landed == nil {
		logger.Info("bundle did not land")
		return &Confirmation{BundleID: bundleID}, nil
	}

	return c.awaitFinalized(ctx, bundleID, logger)
}

func (c *Confirmer) awaitLanded(ctx context.Context, bundleID string, logger *logrus.Entry) (*BundleStatus, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		log := logger.WithField("attempt", fmt.Sprintf("%d/%d", attempt, c.maxAttempts))

		status, err := c.source.GetInflightBundleStatuses(ctx, []string{bundleID})
		switch {
		case err != nil && !isRetryable(err):
			return nil, fmt.Errorf("inflight bundle status: %w", err)
		case err != nil:
			log.WithError(err).Info("inflight status unavailable, waiting")
		case status.Status == StatusLanded:
			log.WithField("slot", status.Slot).Info("bundle landed, checking final status")
			return status, nil
		case status.Status == StatusPending:
			log.Info("bundle pending, waiting")
		default:
			log.WithField("status", status.Raw).Info("unexpected inflight status, waiting")
		}

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (c *Confirmer) awaitFinalized(ctx context.Context, bundleID string, logger *logrus.Entry) (*Confirmation, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		log := logger.WithField("attempt", fmt.Sprintf("%d/%d", attempt, c.maxAttempts))

		status, err := c.source.GetBundleStatuses(ctx, []string{bundleID})
		switch {
		case err != nil && !isRetryable(err):
			return nil, fmt.Errorf("bundle status: %w", err)
		case err != nil:
			log.WithError(err).Info("final status unavailable, waiting")
		case status.Status == StatusFinalized:
			if !status.Succeeded() {
				log.WithField("err", string(status.Err)).Error("bundle transaction failed")
				return nil, &TransactionError{BundleID: bundleID, Payload: status.Err}
			}
			conf := &Confirmation{
				BundleID:  bundleID,
				Landed:    true,
				Finalized: true,
				Slot:      status.Slot,
			}
			if len(status.TransactionIDs) > 0 {
				conf.TxID = status.TransactionIDs[0]
			}
			log.WithField("tx", conf.TxID).Info("bundle finalized")
			return conf, nil
		case status.Status == StatusConfirmed:
			log.Info("bundle confirmed, waiting for finalization")
		default:
			log.WithField("status", status.Raw).Info("unexpected final status, waiting")
		}

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: bundle %s not finalized after %d attempts", ErrConfirmationTimeout, bundleID, c.maxAttempts)
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

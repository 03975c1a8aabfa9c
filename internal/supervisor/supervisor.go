// Package supervisor restarts long-running stream operations with
// exponential backoff. Stream clients never reconnect on their own.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"dealer-scan/internal/observability"
	"dealer-scan/internal/solana"
)

// Config controls restart behaviour.
type Config struct {
	Enabled   bool
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultConfig returns the restart settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		BaseDelay: 1 * time.Second,
		MaxDelay:  30 * time.Second,
	}
}

// Op is a blocking stream operation. It returns when its connection ends.
type Op func(ctx context.Context) error

// Run executes op until ctx is cancelled. When restarts are disabled the
// first error is returned as is. Invalid addresses are never retried.
// A run that stayed up longer than MaxDelay resets the backoff.
func Run(ctx context.Context, name string, cfg Config, logger *logrus.Entry, op Op) error {
	if !cfg.Enabled {
		return op(ctx)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = cfg.BaseDelay
	expo.MaxInterval = cfg.MaxDelay
	expo.MaxElapsedTime = 0
	b := backoff.WithContext(expo, ctx)

	operation := func() error {
		started := time.Now()
		err := op(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, solana.ErrInvalidAddress) {
			return backoff.Permanent(err)
		}
		if time.Since(started) > cfg.MaxDelay {
			expo.Reset()
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		observability.RecordStreamRestart(name)
		logger.WithFields(logrus.Fields{
			"stream": name,
			"retry":  wait.String(),
		}).WithError(err).Warn("stream ended, restarting")
	}

	return backoff.RetryNotify(operation, b, notify)
}

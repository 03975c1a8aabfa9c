package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-scan/internal/solana"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fastConfig() Config {
	return Config{Enabled: true, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRun_RestartsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	op := func(ctx context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return fmt.Errorf("%w: reset by peer", solana.ErrTransportClosed)
	}

	err := Run(ctx, "logs", fastConfig(), testLogger(), op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRun_DisabledReturnsFirstError(t *testing.T) {
	var calls atomic.Int32
	op := func(ctx context.Context) error {
		calls.Add(1)
		return solana.ErrTransportClosed
	}

	cfg := fastConfig()
	cfg.Enabled = false
	err := Run(context.Background(), "logs", cfg, testLogger(), op)
	assert.ErrorIs(t, err, solana.ErrTransportClosed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_InvalidAddressIsPermanent(t *testing.T) {
	var calls atomic.Int32
	op := func(ctx context.Context) error {
		calls.Add(1)
		return fmt.Errorf("subscribe: %w", solana.ErrInvalidAddress)
	}

	err := Run(context.Background(), "logs", fastConfig(), testLogger(), op)
	require.Error(t, err)
	assert.True(t, errors.Is(err, solana.ErrInvalidAddress))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_CleanExitStops(t *testing.T) {
	var calls atomic.Int32
	op := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	assert.NoError(t, Run(context.Background(), "tips", fastConfig(), testLogger(), op))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{Enabled: true, BaseDelay: time.Hour, MaxDelay: time.Hour}
	op := func(ctx context.Context) error {
		return solana.ErrTransportClosed
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, "logs", cfg, testLogger(), op) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

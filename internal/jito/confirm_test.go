package jito

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	status *BundleStatus
	err    error
}

// scriptedSource replays scripted responses; an exhausted script repeats its last step.
type scriptedSource struct {
	inflight []step
	final    []step

	inflightCalls int
	finalCalls    int
}

func next(steps []step, i int) (*BundleStatus, error) {
	if len(steps) == 0 {
		return nil, &RPCError{Code: -1, Message: "no script"}
	}
	if i >= len(steps) {
		i = len(steps) - 1
	}
	return steps[i].status, steps[i].err
}

func (s *scriptedSource) GetInflightBundleStatuses(context.Context, []string) (*BundleStatus, error) {
	st, err := next(s.inflight, s.inflightCalls)
	s.inflightCalls++
	return st, err
}

func (s *scriptedSource) GetBundleStatuses(context.Context, []string) (*BundleStatus, error) {
	st, err := next(s.final, s.finalCalls)
	s.finalCalls++
	return st, err
}

func inflight(kind StatusKind) step {
	return step{status: &BundleStatus{Status: kind, Raw: string(kind)}}
}

func final(kind StatusKind, errPayload string, txs ...string) step {
	return step{status: &BundleStatus{Status: kind, Raw: string(kind), Err: json.RawMessage(errPayload), TransactionIDs: txs}}
}

func newTestConfirmer(src StatusSource, sleeps *int) *Confirmer {
	return NewConfirmer(src,
		WithAttempts(10),
		WithDelay(2*time.Second),
		WithConfirmerLogger(testLogger()),
		WithSleep(func(_ context.Context, d time.Duration) error {
			*sleeps++
			return nil
		}),
	)
}

func TestConfirmer_Finalized(t *testing.T) {
	src := &scriptedSource{
		inflight: []step{inflight(StatusPending), inflight(StatusPending), inflight(StatusLanded)},
		final: []step{
			final(StatusConfirmed, "null"),
			final(StatusFinalized, `{"Ok":null}`, "tx1", "tx2"),
		},
	}
	var sleeps int

	conf, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, conf.Landed)
	assert.True(t, conf.Finalized)
	assert.Equal(t, "tx1", conf.TxID)
	assert.Equal(t, 3, src.inflightCalls)
	assert.Equal(t, 2, src.finalCalls)
	assert.Equal(t, 3, sleeps)
}

func TestConfirmer_NeverLands(t *testing.T) {
	src := &scriptedSource{inflight: []step{inflight(StatusPending)}}
	var sleeps int

	conf, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, conf.Landed)
	assert.Equal(t, 10, src.inflightCalls)
	assert.Equal(t, 0, src.finalCalls)
	assert.Equal(t, 9, sleeps)
}

func TestConfirmer_RetryableErrorsConsumeAttempts(t *testing.T) {
	src := &scriptedSource{
		inflight: []step{
			{err: &RPCError{Code: -32603, Message: "internal"}},
			{err: ErrMalformedResponse},
			inflight(StatusUnknown),
			inflight(StatusLanded),
		},
		final: []step{
			{err: ErrMalformedResponse},
			final(StatusFinalized, ""),
		},
	}
	var sleeps int

	conf, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, conf.Finalized)
	assert.Empty(t, conf.TxID)
	assert.Equal(t, 4, src.inflightCalls)
	assert.Equal(t, 2, src.finalCalls)
}

func TestConfirmer_Timeout(t *testing.T) {
	src := &scriptedSource{
		inflight: []step{inflight(StatusLanded)},
		final:    []step{final(StatusConfirmed, "null")},
	}
	var sleeps int

	_, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.Equal(t, 10, src.finalCalls)
}

func TestConfirmer_TransactionFailed(t *testing.T) {
	payload := `{"Err":{"InstructionError":[1,{"Custom":6003}]}}`
	src := &scriptedSource{
		inflight: []step{inflight(StatusLanded)},
		final:    []step{final(StatusFinalized, payload, "tx1")},
	}
	var sleeps int

	_, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.JSONEq(t, payload, string(txErr.Payload))
	assert.Equal(t, "b1", txErr.BundleID)
}

func TestConfirmer_TransportErrorPropagates(t *testing.T) {
	transport := errors.New("connection refused")
	src := &scriptedSource{inflight: []step{{err: transport}}}
	var sleeps int

	_, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	assert.ErrorIs(t, err, transport)
	assert.Equal(t, 1, src.inflightCalls)

	src = &scriptedSource{
		inflight: []step{inflight(StatusLanded)},
		final:    []step{{err: transport}},
	}
	_, err = newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	assert.ErrorIs(t, err, transport)
}

func TestConfirmer_PhasesAreOneDirectional(t *testing.T) {
	// After landing the in-flight endpoint is never consulted again, even
	// when the final endpoint reports pending.
	src := &scriptedSource{
		inflight: []step{inflight(StatusLanded)},
		final:    []step{final(StatusPending, "null"), final(StatusFinalized, "null")},
	}
	var sleeps int

	conf, err := newTestConfirmer(src, &sleeps).Check(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, conf.Finalized)
	assert.Equal(t, 1, src.inflightCalls)
}

func TestConfirmer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{inflight: []step{inflight(StatusPending)}}
	c := NewConfirmer(src, WithDelay(time.Hour), WithConfirmerLogger(testLogger()))

	_, err := c.Check(ctx, "b1")
	assert.ErrorIs(t, err, context.Canceled)
}

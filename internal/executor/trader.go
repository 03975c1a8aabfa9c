package executor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/jito"
	"dealer-scan/internal/observability"
	"dealer-scan/internal/pumpfun"
	"dealer-scan/internal/solana"
	"dealer-scan/internal/storage"
)

// Relay is the part of the block engine client the trader submits through.
type Relay interface {
	SendBundle(ctx context.Context, txs []string) (string, error)
	RandomTipAccount(ctx context.Context) (string, error)
}

// BundleConfirmer tracks a submitted bundle to a final outcome.
type BundleConfirmer interface {
	Check(ctx context.Context, bundleID string) (*jito.Confirmation, error)
}

// TraderConfig holds the fee and submission settings of a Trader.
type TraderConfig struct {
	TipPercentile int     // landed-tip percentile used as the base tip
	ExtraTipSOL   float64 // added on top of the capped percentile tip
	Simulate      bool    // simulate through the node instead of submitting
}

// SwapRequest describes one buy or sell on a bonding curve.
type SwapRequest struct {
	AlarmID        string
	Mint           string
	Side           domain.Side
	TokenAmount    uint64
	SolAmountBound uint64 // max lamports in for buys, min lamports out for sells
	CreateATA      bool
}

// SwapResult is the outcome of one swap attempt.
type SwapResult struct {
	Attempt      *domain.TradeAttempt
	Confirmation *jito.Confirmation       // nil in simulation mode or when rejected
	Simulation   *solana.SimulationResult // set in simulation mode only
}

// Trader builds, signs and submits swap bundles and tracks their outcome.
type Trader struct {
	rpc       solana.RPCClient
	relay     Relay
	tips      jito.TipSource
	confirmer BundleConfirmer
	signer    solanago.PrivateKey
	owner     solanago.PublicKey
	attempts  storage.TradeAttemptStore
	cfg       TraderConfig
	logger    *logrus.Entry
	now       func() time.Time
}

// TraderOption configures Trader.
type TraderOption func(*Trader)

// WithAttemptStore records every attempt and its outcome.
func WithAttemptStore(store storage.TradeAttemptStore) TraderOption {
	return func(t *Trader) {
		t.attempts = store
	}
}

// WithTraderClock overrides the time source used for attempt timestamps.
func WithTraderClock(now func() time.Time) TraderOption {
	return func(t *Trader) {
		t.now = now
	}
}

// NewTrader creates a Trader that signs with signer.
func NewTrader(
	rpc solana.RPCClient,
	relay Relay,
	tips jito.TipSource,
	confirmer BundleConfirmer,
	signer solanago.PrivateKey,
	cfg TraderConfig,
	logger *logrus.Entry,
	opts ...TraderOption,
) *Trader {
	t := &Trader{
		rpc:       rpc,
		relay:     relay,
		tips:      tips,
		confirmer: confirmer,
		signer:    signer,
		owner:     signer.PublicKey(),
		cfg:       cfg,
		logger:    logger.WithField("component", "trader"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Owner returns the wallet that signs and pays for swaps.
func (t *Trader) Owner() solanago.PublicKey {
	return t.owner
}

// Swap executes one swap. The returned attempt carries the observed outcome
// even when an error is returned. Errors abort this attempt only.
func (t *Trader) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	now := t.now()
	attempt := &domain.TradeAttempt{
		ID:             uuid.NewString(),
		AlarmID:        req.AlarmID,
		Mint:           req.Mint,
		Side:           req.Side,
		TokenAmount:    req.TokenAmount,
		SolAmountBound: req.SolAmountBound,
		Status:         domain.AttemptSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	result := &SwapResult{Attempt: attempt}
	logger := t.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"mint":       req.Mint,
		"side":       req.Side,
	})

	t.record(ctx, attempt)

	raw, sig, err := t.buildTransaction(ctx, req, attempt)
	if err != nil {
		return result, t.finish(ctx, attempt, domain.AttemptRejected, err)
	}
	attempt.TxID = sig

	if t.cfg.Simulate {
		sim, err := t.rpc.SimulateTransaction(ctx, base64.StdEncoding.EncodeToString(raw))
		if err != nil {
			return result, t.finish(ctx, attempt, domain.AttemptFailed, fmt.Errorf("simulate: %w", err))
		}
		result.Simulation = sim
		logger.WithFields(logrus.Fields{
			"units": sim.UnitsConsumed,
			"err":   sim.Err,
		}).Info("transaction simulated")
		for _, line := range sim.Logs {
			logger.Info(line)
		}
		if sim.Err != nil {
			return result, t.finish(ctx, attempt, domain.AttemptFailed, fmt.Errorf("simulation failed: %v", sim.Err))
		}
		return result, t.finish(ctx, attempt, domain.AttemptSimulated, nil)
	}

	start := t.now()
	bundleID, err := t.relay.SendBundle(ctx, []string{base58.Encode(raw)})
	if err != nil {
		observability.RecordBundleOutcome(string(domain.AttemptRejected), t.now().Sub(start))
		return result, t.finish(ctx, attempt, domain.AttemptRejected, err)
	}
	attempt.BundleID = bundleID
	observability.RecordBundleSubmitted(string(req.Side))
	logger.WithFields(logrus.Fields{
		"bundle_id": bundleID,
		"tip":       attempt.TipLamports,
	}).Info("bundle submitted")
	t.update(ctx, attempt)

	conf, err := t.confirmer.Check(ctx, bundleID)
	result.Confirmation = conf
	status := outcomeStatus(conf, err)
	observability.RecordBundleOutcome(string(status), t.now().Sub(start))
	if err == nil && conf.TxID != "" {
		attempt.TxID = conf.TxID
	}
	return result, t.finish(ctx, attempt, status, err)
}

// buildTransaction assembles the swap and tip instructions, signs them and
// returns the wire bytes and the transaction signature.
func (t *Trader) buildTransaction(ctx context.Context, req SwapRequest, attempt *domain.TradeAttempt) ([]byte, string, error) {
	mint, err := solanago.PublicKeyFromBase58(req.Mint)
	if err != nil {
		return nil, "", fmt.Errorf("%w: mint: %v", solana.ErrInvalidAddress, err)
	}

	instrs, err := pumpfun.BuildSwapInstructions(pumpfun.SwapParams{
		IsBuy:          req.Side == domain.SideBuy,
		Owner:          t.owner,
		Mint:           mint,
		TokenAmount:    req.TokenAmount,
		SolAmountBound: req.SolAmountBound,
		CreateATA:      req.CreateATA,
	})
	if err != nil {
		return nil, "", fmt.Errorf("build swap: %w", err)
	}

	tipSOL, err := jito.ComputeTip(t.tips, t.cfg.TipPercentile, t.cfg.ExtraTipSOL)
	if err != nil {
		return nil, "", fmt.Errorf("compute tip: %w", err)
	}
	attempt.TipLamports = jito.ToLamports(tipSOL)
	observability.SetCurrentTip(tipSOL)

	tipAccount, err := t.relay.RandomTipAccount(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("tip account: %w", err)
	}
	tipKey, err := solanago.PublicKeyFromBase58(tipAccount)
	if err != nil {
		return nil, "", fmt.Errorf("%w: tip account: %v", solana.ErrInvalidAddress, err)
	}
	instrs = append(instrs, system.NewTransferInstruction(attempt.TipLamports, t.owner, tipKey).Build())

	blockhash, err := t.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("latest blockhash: %w", err)
	}
	recent, err := solanago.HashFromBase58(blockhash)
	if err != nil {
		return nil, "", fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(instrs, recent, solanago.TransactionPayer(t.owner))
	if err != nil {
		return nil, "", fmt.Errorf("new transaction: %w", err)
	}

	sigs, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(t.owner) {
			return &t.signer
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("marshal transaction: %w", err)
	}
	return raw, sigs[0].String(), nil
}

// outcomeStatus maps a confirmation result to the recorded attempt status.
func outcomeStatus(conf *jito.Confirmation, err error) domain.AttemptStatus {
	switch {
	case errors.Is(err, jito.ErrConfirmationTimeout):
		return domain.AttemptTimeout
	case err != nil:
		return domain.AttemptFailed
	case conf == nil || !conf.Landed:
		return domain.AttemptNotLanded
	case conf.Finalized:
		return domain.AttemptFinalized
	default:
		return domain.AttemptTimeout
	}
}

// finish stamps the final status and error on the attempt and persists it.
// It returns err unchanged so callers can propagate it.
func (t *Trader) finish(ctx context.Context, attempt *domain.TradeAttempt, status domain.AttemptStatus, err error) error {
	attempt.Status = status
	if err != nil {
		var txErr *jito.TransactionError
		if errors.As(err, &txErr) {
			attempt.Error = string(txErr.Payload)
		} else {
			attempt.Error = err.Error()
		}
	}

	fields := logrus.Fields{
		"attempt_id": attempt.ID,
		"mint":       attempt.Mint,
		"side":       attempt.Side,
		"status":     status,
		"bundle_id":  attempt.BundleID,
	}
	if err != nil {
		t.logger.WithFields(fields).WithError(err).Error("swap attempt failed")
	} else {
		t.logger.WithFields(fields).WithField("tx", attempt.TxID).Info("swap attempt finished")
	}

	t.update(ctx, attempt)
	return err
}

func (t *Trader) record(ctx context.Context, attempt *domain.TradeAttempt) {
	if t.attempts == nil {
		return
	}
	if err := t.attempts.Insert(ctx, attempt); err != nil {
		observability.RecordDBError("attempts", "insert")
		t.logger.WithError(err).WithField("attempt_id", attempt.ID).Warn("record trade attempt")
	}
}

func (t *Trader) update(ctx context.Context, attempt *domain.TradeAttempt) {
	attempt.UpdatedAt = t.now()
	if t.attempts == nil {
		return
	}
	if err := t.attempts.Update(ctx, attempt); err != nil {
		observability.RecordDBError("attempts", "update")
		t.logger.WithError(err).WithField("attempt_id", attempt.ID).Warn("update trade attempt")
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"dealer-scan/internal/config"
	"dealer-scan/internal/domain"
	"dealer-scan/internal/executor"
	"dealer-scan/internal/jito"
	"dealer-scan/internal/logging"
	"dealer-scan/internal/pumpfun"
	"dealer-scan/internal/solana"
)

func main() {
	// Parse flags
	configPath := flag.String("config", envOr("SCAN_CONFIG", "config.yaml"), "Path to the YAML config file")
	mint := flag.String("mint", "", "Token mint to trade")
	side := flag.String("side", "buy", "Trade side: buy or sell")
	solIn := flag.Float64("sol", 0, "SOL to spend on a buy (defaults to execution.buy_sol)")
	tokens := flag.Uint64("tokens", 0, "Token base units to sell")
	createATA := flag.Bool("create-ata", true, "Create the associated token account on buy")
	simulate := flag.Bool("simulate", false, "Simulate instead of submitting a bundle")
	tipWait := flag.Duration("tip-wait", 15*time.Second, "How long to wait for the first tip snapshot")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Fatal("setup logger")
	}
	logger := logging.Component(log, "swap")

	if err := solana.ValidateAddress(*mint); err != nil {
		logger.WithError(err).Fatal("invalid -mint")
	}
	key, err := solanago.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		logger.WithError(err).Fatal("invalid private_key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithRetries(2),
		solana.WithRPCLogger(logrus.NewEntry(log)),
	)
	owner := key.PublicKey().String()
	balance, err := rpc.GetBalance(ctx, owner)
	if err != nil {
		logger.WithError(err).Fatal("read wallet balance")
	}
	logger.WithFields(logrus.Fields{
		"owner": owner,
		"sol":   jito.ToSOL(balance),
	}).Info("wallet")

	_, curve, err := pumpfun.GetBondingCurveAccount(ctx, rpc, *mint)
	if err != nil {
		logger.WithError(err).Fatal("read bonding curve")
	}
	logger.WithFields(logrus.Fields{
		"price":    curve.Price(),
		"complete": curve.Complete,
	}).Info("bonding curve")

	var req executor.SwapRequest
	switch domain.Side(*side) {
	case domain.SideBuy:
		amount := cfg.Execution.BuySOL
		if *solIn > 0 {
			amount = *solIn
		}
		req, err = executor.BuyOrder(curve, *mint, jito.ToLamports(amount), cfg.Jito.Slippage)
		if err != nil {
			logger.WithError(err).Fatal("quote buy")
		}
		req.CreateATA = *createATA
	case domain.SideSell:
		if *tokens == 0 {
			logger.Fatal("-tokens is required for a sell")
		}
		req = executor.SellOrder(curve, *mint, *tokens, cfg.Jito.Slippage)
	default:
		logger.Fatalf("unknown side: %s", *side)
	}

	oracle := jito.NewTipOracle(cfg.Jito.TipStreamURL, logrus.NewEntry(log))
	go func() {
		if err := oracle.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("tip stream ended")
		}
	}()
	if err := waitForTip(ctx, oracle, *tipWait); err != nil {
		logger.WithError(err).Fatal("no tip snapshot")
	}

	relay := jito.NewClient(cfg.Jito.BlockEngineURL, jito.WithLogger(logging.Component(log, "relay")))
	confirmer := jito.NewConfirmer(relay,
		jito.WithAttempts(cfg.Execution.ConfirmAttempts),
		jito.WithDelay(cfg.Execution.ConfirmDelay),
		jito.WithConfirmerLogger(logrus.NewEntry(log)),
	)
	traderCfg := cfg.Trader()
	traderCfg.Simulate = traderCfg.Simulate || *simulate
	trader := executor.NewTrader(rpc, relay, oracle, confirmer, key, traderCfg, logrus.NewEntry(log))

	start := time.Now()
	res, err := trader.Swap(ctx, req)
	if err != nil {
		logger.WithError(err).Fatal("swap failed")
	}
	logger.WithFields(logrus.Fields{
		"side":      res.Attempt.Side,
		"status":    res.Attempt.Status,
		"bundle_id": res.Attempt.BundleID,
		"tx_id":     res.Attempt.TxID,
		"elapsed":   time.Since(start),
	}).Info("swap done")
}

// waitForTip blocks until the oracle holds a snapshot or timeout elapses.
func waitForTip(ctx context.Context, oracle *jito.TipOracle, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, ok := oracle.Snapshot(); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return jito.ErrNoData
		case <-ticker.C:
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

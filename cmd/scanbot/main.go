package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dealer-scan/internal/config"
	"dealer-scan/internal/detector"
	"dealer-scan/internal/domain"
	"dealer-scan/internal/executor"
	"dealer-scan/internal/jito"
	"dealer-scan/internal/logging"
	"dealer-scan/internal/monitor"
	"dealer-scan/internal/observability"
	"dealer-scan/internal/solana"
	"dealer-scan/internal/storage"
	"dealer-scan/internal/supervisor"
)

func main() {
	// Parse flags
	configPath := flag.String("config", envOr("SCAN_CONFIG", "config.yaml"), "Path to the YAML config file")
	mode := flag.String("mode", "daemon", "Run mode: daemon or check")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Fatal("setup logger")
	}
	logger := logging.Component(log, "scanbot")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	switch *mode {
	case "daemon":
		err = runDaemon(ctx, cfg, log)
	case "check":
		logger.WithField("monitors", len(cfg.Monitors)).Info("config ok")
	default:
		logger.Fatalf("unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("scanbot stopped")
	}

	logger.Info("shutdown complete")
}

// runDaemon wires every component and blocks until ctx is cancelled or a
// component fails permanently.
func runDaemon(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	logger := logging.Component(log, "scanbot")

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Addr, logger)
		})
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithRPCLogger(logrus.NewEntry(log)))
	stream := solana.NewStreamClient(cfg.Solana.WSURL, nil, logging.Component(log, "stream"))

	execCfg := cfg.Executor()
	var swapper executor.Swapper
	if execCfg.Enabled {
		trader, err := newTrader(gctx, g, cfg, rpc, st.attempts, log)
		if err != nil {
			return err
		}
		swapper = trader
		logger.WithField("owner", trader.Owner()).Info("trader ready")
	} else {
		logger.Info("execution disabled, alarms are only recorded")
	}

	alarms := make(chan domain.Alarm, cfg.Execution.QueueSize)
	exec := executor.New(swapper, executor.RPCCurveSource{RPC: rpc}, execCfg, logrus.NewEntry(log),
		executor.WithAlarmStore(st.alarms))
	g.Go(func() error {
		return exec.Run(gctx, alarms)
	})

	var sinkOpts []monitor.Option
	if st.events != nil {
		recorder := monitor.NewRecorder(st.events, monitor.DefaultRecorderConfig(), logrus.NewEntry(log))
		sinkOpts = append(sinkOpts, monitor.WithSink(recorder))
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	for _, rule := range cfg.Monitors {
		engine, err := detector.NewEngine(rule, cfg.Detector(), logrus.NewEntry(log))
		if err != nil {
			return err
		}
		opts := append([]monitor.Option{monitor.WithBufferSize(cfg.ScanDealer.QueueSize)}, sinkOpts...)
		m := monitor.New(rule, stream, engine, cfg.Supervisor(), logrus.NewEntry(log), opts...)
		g.Go(func() error {
			return m.Run(gctx, alarms)
		})
	}

	logger.WithField("monitors", len(cfg.Monitors)).Info("scanbot started")
	return g.Wait()
}

// newTrader starts the supervised tip stream and builds the bundle trader.
func newTrader(
	ctx context.Context,
	g *errgroup.Group,
	cfg *config.Config,
	rpc solana.RPCClient,
	attempts storage.TradeAttemptStore,
	log *logrus.Logger,
) (*executor.Trader, error) {
	key, err := solanago.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	oracle := jito.NewTipOracle(cfg.Jito.TipStreamURL, logrus.NewEntry(log))
	g.Go(func() error {
		return supervisor.Run(ctx, "tip_stream", cfg.Supervisor(), logging.Component(log, "tip_oracle"), oracle.Run)
	})

	relay := jito.NewClient(cfg.Jito.BlockEngineURL, jito.WithLogger(logging.Component(log, "relay")))
	confirmer := jito.NewConfirmer(relay,
		jito.WithAttempts(cfg.Execution.ConfirmAttempts),
		jito.WithDelay(cfg.Execution.ConfirmDelay),
		jito.WithConfirmerLogger(logrus.NewEntry(log)),
	)

	return executor.NewTrader(rpc, relay, oracle, confirmer, key, cfg.Trader(), logrus.NewEntry(log),
		executor.WithAttemptStore(attempts)), nil
}

// serveMetrics serves /metrics and /health until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, logger *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", addr).Info("starting metrics server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dealer-scan/internal/logging"
	"dealer-scan/internal/pumpfun"
	"dealer-scan/internal/solana"
)

func main() {
	// Parse flags
	wsURL := flag.String("ws-endpoint", envOr("WSS_SOLANA_URL", "wss://api.mainnet-beta.solana.com"), "Solana websocket endpoint")
	kind := flag.String("kind", "logs", "Subscription kind: logs or program")
	address := flag.String("address", pumpfun.ProgramID, "Address to subscribe to")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log, err := logging.New(*level, "text")
	if err != nil {
		logrus.WithError(err).Fatal("setup logger")
	}
	logger := logging.Component(log, "subscribe")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := solana.NewStreamClient(*wsURL, nil, logging.Component(log, "stream"))

	switch *kind {
	case "logs":
		err = subscribeLogs(ctx, client, *address, logger)
	case "program":
		err = subscribeProgram(ctx, client, *address, logger)
	default:
		logger.Fatalf("unknown kind: %s", *kind)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("subscription ended")
	}
}

// subscribeLogs prints every log notification and any trade event it carries.
func subscribeLogs(ctx context.Context, sub solana.LogSubscriber, address string, logger *logrus.Entry) error {
	out := make(chan solana.LogNotification, 1000)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sub.SubscribeLogs(gctx, address, out)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case n := <-out:
				entry := logger.WithFields(logrus.Fields{
					"signature": n.Signature,
					"slot":      n.Slot,
					"lines":     len(n.Logs),
				})
				line, ok := pumpfun.FindTradeEventLine(n.Logs)
				if !ok {
					entry.Debug("log notification")
					continue
				}
				ev, err := pumpfun.DecodeTradeEvent(line)
				if err != nil {
					entry.WithError(err).Warn("decode trade event")
					continue
				}
				entry.WithFields(logrus.Fields{
					"mint":   ev.Mint,
					"is_buy": ev.IsBuy,
					"sol":    ev.SOL(),
					"user":   ev.User,
					"price":  ev.Price(),
				}).Info("trade event")
			}
		}
	})
	return g.Wait()
}

// subscribeProgram prints account notifications, decoding bonding curves.
func subscribeProgram(ctx context.Context, sub solana.ProgramSubscriber, address string, logger *logrus.Entry) error {
	out := make(chan solana.AccountNotification, 1000)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sub.SubscribeProgram(gctx, address, out)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case n := <-out:
				entry := logger.WithFields(logrus.Fields{
					"pubkey":   n.Pubkey,
					"slot":     n.Slot,
					"lamports": n.Lamports,
				})
				curve, err := pumpfun.DecodeBondingCurve(n.Data)
				if err != nil {
					entry.WithField("bytes", len(n.Data)).Info("account notification")
					continue
				}
				entry.WithFields(logrus.Fields{
					"price":    curve.Price(),
					"complete": curve.Complete,
				}).Info("bonding curve update")
			}
		}
	})
	return g.Wait()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

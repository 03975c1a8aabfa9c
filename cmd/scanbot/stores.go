package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/config"
	"dealer-scan/internal/storage"
	chstore "dealer-scan/internal/storage/clickhouse"
	"dealer-scan/internal/storage/memory"
	"dealer-scan/internal/storage/migrations"
	pgstore "dealer-scan/internal/storage/postgres"
)

// stores holds the audit stores. events is nil when no ClickHouse DSN is
// configured; decoded trades are then not recorded.
type stores struct {
	alarms   storage.AlarmStore
	attempts storage.TradeAttemptStore
	events   storage.TradeEventStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores selects Postgres/ClickHouse stores when DSNs are set and
// in-memory stores otherwise. Migrations run before the stores are used.
func openStores(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (*stores, error) {
	st := &stores{}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			st.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.alarms = pgstore.NewAlarmStore(pool)
		st.attempts = pgstore.NewTradeAttemptStore(pool)
		logger.Info("using postgres audit stores")
	} else {
		st.alarms = memory.NewAlarmStore()
		st.attempts = memory.NewTradeAttemptStore()
		logger.Info("using in-memory audit stores")
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn, logger)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.closers = append(st.closers, func() {
			if err := conn.Close(); err != nil {
				logger.WithError(err).Warn("close clickhouse")
			}
		})
		st.events = chstore.NewTradeEventStore(conn)
		logger.Info("recording trade events to clickhouse")
	}

	return st, nil
}

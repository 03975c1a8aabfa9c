package clickhouse

import (
	"context"
	"fmt"
	"time"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using ClickHouse.
type TradeEventStore struct {
	conn *Conn
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(conn *Conn) *TradeEventStore {
	return &TradeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

const tradeEventColumns = `
	signature, monitor, slot, mint, sol_amount, token_amount, is_buy, user,
	event_timestamp, virtual_sol_reserves, virtual_token_reserves,
	real_sol_reserves, real_token_reserves, received_at
`

// InsertBulk adds multiple events. Fails entire batch on duplicate (signature, monitor).
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *TradeEventStore) InsertBulk(ctx context.Context, events []*domain.ObservedTrade) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		signature string
		monitor   string
	}
	seen := make(map[key]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
		k := key{e.Signature, e.Monitor}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, e := range events {
		exists, err := s.exists(ctx, e.Signature, e.Monitor)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trade_events (`+tradeEventColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		ev := e.Event
		err = batch.Append(
			e.Signature, e.Monitor, e.Slot, ev.Mint, ev.SolAmount, ev.TokenAmount, ev.IsBuy, ev.User,
			ev.Timestamp, ev.VirtualSolReserves, ev.VirtualTokenReserves,
			ev.RealSolReserves, ev.RealTokenReserves, e.ReceivedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by event timestamp ASC.
func (s *TradeEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.ObservedTrade, error) {
	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events FINAL
		WHERE mint = ?
		ORDER BY event_timestamp ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetByTimeRange retrieves events for a mint within [start, end] (inclusive).
func (s *TradeEventStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.ObservedTrade, error) {
	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events FINAL
		WHERE mint = ? AND event_timestamp >= ? AND event_timestamp <= ?
		ORDER BY event_timestamp ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// exists checks if an event with the given key exists.
func (s *TradeEventStore) exists(ctx context.Context, signature, monitor string) (bool, error) {
	query := `
		SELECT count(*) FROM trade_events
		WHERE signature = ? AND monitor = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, signature, monitor).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTradeEvents scans multiple rows.
func scanTradeEvents(rows chRows) ([]*domain.ObservedTrade, error) {
	var events []*domain.ObservedTrade

	for rows.Next() {
		var (
			e          domain.ObservedTrade
			receivedAt time.Time
		)
		ev := &e.Event
		err := rows.Scan(
			&e.Signature, &e.Monitor, &e.Slot, &ev.Mint, &ev.SolAmount, &ev.TokenAmount, &ev.IsBuy, &ev.User,
			&ev.Timestamp, &ev.VirtualSolReserves, &ev.VirtualTokenReserves,
			&ev.RealSolReserves, &ev.RealTokenReserves, &receivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}
		e.ReceivedAt = receivedAt
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return events, nil
}

package storage

import (
	"context"

	"dealer-scan/internal/domain"
)

// AlarmStore provides access to the alarms audit table.
type AlarmStore interface {
	// Insert adds a new alarm. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, a *domain.Alarm) error

	// GetByID retrieves an alarm by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Alarm, error)

	// GetByMint retrieves all alarms for a mint, ordered by raised_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Alarm, error)
}

// TradeAttemptStore provides access to the trade_attempts audit table.
// Attempts are inserted once and then moved forward by Update.
type TradeAttemptStore interface {
	// Insert adds a new attempt. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, a *domain.TradeAttempt) error

	// Update overwrites the outcome fields (bundle id, status, tx id, error,
	// updated_at) of an existing attempt. Returns ErrNotFound if not exists.
	Update(ctx context.Context, a *domain.TradeAttempt) error

	// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TradeAttempt, error)

	// GetByAlarmID retrieves all attempts spawned by an alarm, ordered by created_at ASC.
	GetByAlarmID(ctx context.Context, alarmID string) ([]*domain.TradeAttempt, error)
}

// TradeEventStore provides access to decoded trade events.
type TradeEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate (signature, monitor).
	InsertBulk(ctx context.Context, events []*domain.ObservedTrade) error

	// GetByMint retrieves all events for a mint, ordered by event timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.ObservedTrade, error)

	// GetByTimeRange retrieves events for a mint with event timestamp within
	// [start, end] unix seconds (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.ObservedTrade, error)
}

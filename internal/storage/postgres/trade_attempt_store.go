package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

// TradeAttemptStore implements storage.TradeAttemptStore using PostgreSQL.
type TradeAttemptStore struct {
	pool *Pool
}

// NewTradeAttemptStore creates a new TradeAttemptStore.
func NewTradeAttemptStore(pool *Pool) *TradeAttemptStore {
	return &TradeAttemptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeAttemptStore = (*TradeAttemptStore)(nil)

const attemptColumns = `
	attempt_id, alarm_id, mint, side,
	token_amount, sol_amount_bound, tip_lamports,
	bundle_id, status, tx_id, error,
	created_at, updated_at
`

// Insert adds a new attempt. Returns ErrDuplicateKey if the ID exists.
func (s *TradeAttemptStore) Insert(ctx context.Context, a *domain.TradeAttempt) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_attempts (` + attemptColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			$12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.AlarmID, a.Mint, string(a.Side),
		int64(a.TokenAmount), int64(a.SolAmountBound), int64(a.TipLamports),
		a.BundleID, string(a.Status), a.TxID, a.Error,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade attempt: %w", err)
	}
	return nil
}

// Update overwrites the outcome fields of an existing attempt.
// Returns ErrNotFound if not exists.
func (s *TradeAttemptStore) Update(ctx context.Context, a *domain.TradeAttempt) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trade_attempts
		SET bundle_id = $2, status = $3, tx_id = $4, error = $5, updated_at = $6
		WHERE attempt_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		a.ID, a.BundleID, string(a.Status), a.TxID, a.Error, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update trade attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *TradeAttemptStore) GetByID(ctx context.Context, id string) (*domain.TradeAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM trade_attempts WHERE attempt_id = $1`

	a, err := scanAttempt(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade attempt by id: %w", err)
	}
	return a, nil
}

// GetByAlarmID retrieves all attempts spawned by an alarm, ordered by created_at ASC.
func (s *TradeAttemptStore) GetByAlarmID(ctx context.Context, alarmID string) ([]*domain.TradeAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM trade_attempts
		WHERE alarm_id = $1
		ORDER BY created_at ASC, attempt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, alarmID)
	if err != nil {
		return nil, fmt.Errorf("get trade attempts by alarm id: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.TradeAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade attempt rows: %w", err)
	}
	return attempts, nil
}

// scanAttempt scans a single row into a TradeAttempt.
func scanAttempt(row pgx.Row) (*domain.TradeAttempt, error) {
	var (
		a                     domain.TradeAttempt
		side, status          string
		tokenAmount, solBound int64
		tipLamports           int64
	)
	err := row.Scan(
		&a.ID, &a.AlarmID, &a.Mint, &side,
		&tokenAmount, &solBound, &tipLamports,
		&a.BundleID, &status, &a.TxID, &a.Error,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Side = domain.Side(side)
	a.Status = domain.AttemptStatus(status)
	a.TokenAmount = uint64(tokenAmount)
	a.SolAmountBound = uint64(solBound)
	a.TipLamports = uint64(tipLamports)
	return &a, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

// AlarmStore implements storage.AlarmStore using PostgreSQL.
type AlarmStore struct {
	pool *Pool
}

// NewAlarmStore creates a new AlarmStore.
func NewAlarmStore(pool *Pool) *AlarmStore {
	return &AlarmStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlarmStore = (*AlarmStore)(nil)

const alarmColumns = `
	alarm_id, rule, monitor, mint, bucket_timestamp,
	baseline_sol, amounts, raised_at
`

// Insert adds a new alarm. Returns ErrDuplicateKey if the ID exists.
func (s *AlarmStore) Insert(ctx context.Context, a *domain.Alarm) error {
	if a == nil || a.ID == "" || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO alarms (` + alarmColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	amounts := a.Amounts
	if amounts == nil {
		amounts = []float64{}
	}

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Rule, a.Monitor, a.Mint, a.BucketTimestamp,
		a.BaselineSOL, amounts, a.RaisedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alarm: %w", err)
	}
	return nil
}

// GetByID retrieves an alarm by its ID. Returns ErrNotFound if not exists.
func (s *AlarmStore) GetByID(ctx context.Context, id string) (*domain.Alarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM alarms WHERE alarm_id = $1`

	a, err := scanAlarm(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alarm by id: %w", err)
	}
	return a, nil
}

// GetByMint retrieves all alarms for a mint, ordered by raised_at ASC.
func (s *AlarmStore) GetByMint(ctx context.Context, mint string) ([]*domain.Alarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM alarms WHERE mint = $1 ORDER BY raised_at ASC, alarm_id ASC`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get alarms by mint: %w", err)
	}
	defer rows.Close()

	var alarms []*domain.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm row: %w", err)
		}
		alarms = append(alarms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarm rows: %w", err)
	}
	return alarms, nil
}

// scanAlarm scans a single row into an Alarm.
func scanAlarm(row pgx.Row) (*domain.Alarm, error) {
	var a domain.Alarm
	err := row.Scan(
		&a.ID, &a.Rule, &a.Monitor, &a.Mint, &a.BucketTimestamp,
		&a.BaselineSOL, &a.Amounts, &a.RaisedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

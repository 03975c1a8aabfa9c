package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

func createTestAttempt(id, alarmID string, createdAt time.Time) *domain.TradeAttempt {
	return &domain.TradeAttempt{
		ID:             id,
		AlarmID:        alarmID,
		Mint:           "mint-1",
		Side:           domain.SideBuy,
		TokenAmount:    35_000_000_000,
		SolAmountBound: 1_100_000_000,
		TipLamports:    1_250_000,
		Status:         domain.AttemptSubmitted,
		CreatedAt:      createdAt.UTC(),
		UpdatedAt:      createdAt.UTC(),
	}
}

func TestTradeAttemptStore_InsertUpdateGet(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeAttemptStore(pool)

	now := time.Unix(1700000000, 0)
	attempt := createTestAttempt("attempt-1", "alarm-1", now)
	require.NoError(t, store.Insert(ctx, attempt))

	attempt.BundleID = "bundle-1"
	attempt.Status = domain.AttemptFailed
	attempt.Error = `{"InstructionError":[1,{"Custom":6002}]}`
	attempt.UpdatedAt = now.Add(20 * time.Second).UTC()
	require.NoError(t, store.Update(ctx, attempt))

	got, err := store.GetByID(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, got.Side)
	assert.Equal(t, domain.AttemptFailed, got.Status)
	assert.Equal(t, "bundle-1", got.BundleID)
	assert.Equal(t, attempt.Error, got.Error)
	assert.Equal(t, uint64(35_000_000_000), got.TokenAmount)
	assert.Equal(t, uint64(1_250_000), got.TipLamports)
	assert.True(t, attempt.UpdatedAt.Equal(got.UpdatedAt))
}

func TestTradeAttemptStore_UpdateNotFound(t *testing.T) {
	pool := setupTestDB(t)

	err := NewTradeAttemptStore(pool).Update(context.Background(), createTestAttempt("missing", "", time.Now()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeAttemptStore_DuplicateKey(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeAttemptStore(pool)

	attempt := createTestAttempt("attempt-1", "alarm-1", time.Now())
	require.NoError(t, store.Insert(ctx, attempt))
	assert.ErrorIs(t, store.Insert(ctx, attempt), storage.ErrDuplicateKey)
}

func TestTradeAttemptStore_GetByAlarmID(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeAttemptStore(pool)

	base := time.Unix(1700000000, 0)
	sell := createTestAttempt("attempt-2", "alarm-1", base.Add(time.Minute))
	sell.Side = domain.SideSell
	require.NoError(t, store.Insert(ctx, sell))
	require.NoError(t, store.Insert(ctx, createTestAttempt("attempt-1", "alarm-1", base)))
	require.NoError(t, store.Insert(ctx, createTestAttempt("attempt-3", "alarm-2", base)))

	got, err := store.GetByAlarmID(ctx, "alarm-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "attempt-1", got[0].ID)
	assert.Equal(t, domain.SideSell, got[1].Side)
}

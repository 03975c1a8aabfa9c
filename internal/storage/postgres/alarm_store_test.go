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

func createTestAlarm(id, mint string, raisedAt time.Time) *domain.Alarm {
	return &domain.Alarm{
		ID:              id,
		Rule:            string(domain.RuleScanDealer),
		Monitor:         "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
		Mint:            mint,
		BucketTimestamp: raisedAt.Unix() - 5,
		BaselineSOL:     1.0,
		Amounts:         []float64{1.0, 1.1, 0.95},
		RaisedAt:        raisedAt.UTC(),
	}
}

func TestAlarmStore_InsertAndGetByID(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewAlarmStore(pool)

	alarm := createTestAlarm("alarm-001", "mint-1", time.Unix(1700000000, 0))
	require.NoError(t, store.Insert(ctx, alarm))

	got, err := store.GetByID(ctx, "alarm-001")
	require.NoError(t, err)
	assert.Equal(t, alarm.Mint, got.Mint)
	assert.Equal(t, alarm.Rule, got.Rule)
	assert.Equal(t, alarm.BucketTimestamp, got.BucketTimestamp)
	assert.Equal(t, alarm.Amounts, got.Amounts)
	assert.True(t, alarm.RaisedAt.Equal(got.RaisedAt))
}

func TestAlarmStore_DuplicateKey(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewAlarmStore(pool)

	alarm := createTestAlarm("alarm-001", "mint-1", time.Unix(1700000000, 0))
	require.NoError(t, store.Insert(ctx, alarm))

	err := store.Insert(ctx, alarm)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAlarmStore_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	_, err := NewAlarmStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlarmStore_GetByMint(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewAlarmStore(pool)

	base := time.Unix(1700000000, 0)
	require.NoError(t, store.Insert(ctx, createTestAlarm("a2", "mint-1", base.Add(2*time.Second))))
	require.NoError(t, store.Insert(ctx, createTestAlarm("a1", "mint-1", base.Add(1*time.Second))))
	require.NoError(t, store.Insert(ctx, createTestAlarm("a3", "mint-2", base)))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a2", got[1].ID)
}

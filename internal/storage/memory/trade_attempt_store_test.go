package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

func testAttempt(id, alarmID string, createdAt time.Time) *domain.TradeAttempt {
	return &domain.TradeAttempt{
		ID:             id,
		AlarmID:        alarmID,
		Mint:           "mint-1",
		Side:           domain.SideBuy,
		TokenAmount:    1_000_000,
		SolAmountBound: 110_000_000,
		TipLamports:    10_000,
		Status:         domain.AttemptSubmitted,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestTradeAttemptStore_InsertUpdateGet(t *testing.T) {
	store := NewTradeAttemptStore()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	a := testAttempt("t1", "alarm-1", now)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	update := *a
	update.BundleID = "bundle-1"
	update.Status = domain.AttemptFinalized
	update.TxID = "sig-1"
	update.UpdatedAt = now.Add(10 * time.Second)
	update.TokenAmount = 7 // not an outcome field
	if err := store.Update(ctx, &update); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.AttemptFinalized {
		t.Errorf("Status: got %s, want finalized", got.Status)
	}
	if got.BundleID != "bundle-1" || got.TxID != "sig-1" {
		t.Errorf("outcome not stored: %+v", got)
	}
	if got.TokenAmount != 1_000_000 {
		t.Errorf("Update must not touch request fields, TokenAmount=%d", got.TokenAmount)
	}
}

func TestTradeAttemptStore_UpdateNotFound(t *testing.T) {
	store := NewTradeAttemptStore()

	err := store.Update(context.Background(), testAttempt("missing", "", time.Now()))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTradeAttemptStore_DuplicateKey(t *testing.T) {
	store := NewTradeAttemptStore()
	ctx := context.Background()

	a := testAttempt("t1", "alarm-1", time.Now())
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeAttemptStore_GetByAlarmID(t *testing.T) {
	store := NewTradeAttemptStore()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	sell := testAttempt("t2", "alarm-1", base.Add(time.Minute))
	sell.Side = domain.SideSell
	for _, a := range []*domain.TradeAttempt{
		sell,
		testAttempt("t1", "alarm-1", base),
		testAttempt("t3", "alarm-2", base),
	} {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByAlarmID(ctx, "alarm-1")
	if err != nil {
		t.Fatalf("GetByAlarmID failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(result))
	}
	if result[0].Side != domain.SideBuy || result[1].Side != domain.SideSell {
		t.Errorf("unexpected order: %s, %s", result[0].Side, result[1].Side)
	}
}

func TestTradeAttemptStore_ConcurrentUpdates(t *testing.T) {
	store := NewTradeAttemptStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("t1", "", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := testAttempt("t1", "", time.Now())
			a.Status = domain.AttemptNotLanded
			_ = store.Update(ctx, a)
			_, _ = store.GetByID(ctx, "t1")
		}()
	}
	wg.Wait()
}

package memory

import (
	"context"
	"errors"
	"testing"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

func testTrade(sig, mint string, ts int64) *domain.ObservedTrade {
	return &domain.ObservedTrade{
		Signature: sig,
		Slot:      uint64(ts),
		Monitor:   "monitor-1",
		Event: domain.TradeEvent{
			Mint:      mint,
			SolAmount: 1_000_000_000,
			IsBuy:     true,
			Timestamp: ts,
		},
	}
}

func TestTradeEventStore_InsertBulkAndGet(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, nil); err != nil {
		t.Fatalf("empty InsertBulk failed: %v", err)
	}

	events := []*domain.ObservedTrade{
		testTrade("s3", "mint-1", 3000),
		testTrade("s1", "mint-1", 1000),
		testTrade("s2", "mint-1", 2000),
		testTrade("s4", "mint-2", 2000),
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetByMint(ctx, "mint-1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(all))
	}
	if all[0].Signature != "s1" || all[2].Signature != "s3" {
		t.Errorf("unexpected order: %s..%s", all[0].Signature, all[2].Signature)
	}

	ranged, err := store.GetByTimeRange(ctx, "mint-1", 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("Expected 2 results, got %d", len(ranged))
	}
}

func TestTradeEventStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.ObservedTrade{testTrade("s1", "mint-1", 1000)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.ObservedTrade{
		testTrade("s2", "mint-1", 2000),
		testTrade("s1", "mint-1", 1000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetByMint(ctx, "mint-1")
	if len(all) != 1 {
		t.Errorf("batch must not be partially applied, got %d events", len(all))
	}
}

func TestTradeEventStore_IntraBatchDuplicate(t *testing.T) {
	store := NewTradeEventStore()

	err := store.InsertBulk(context.Background(), []*domain.ObservedTrade{
		testTrade("s1", "mint-1", 1000),
		testTrade("s1", "mint-1", 1000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeEventStore_SameSignatureDifferentMonitor(t *testing.T) {
	store := NewTradeEventStore()

	a := testTrade("s1", "mint-1", 1000)
	b := testTrade("s1", "mint-1", 1000)
	b.Monitor = "monitor-2"
	if err := store.InsertBulk(context.Background(), []*domain.ObservedTrade{a, b}); err != nil {
		t.Errorf("InsertBulk failed: %v", err)
	}
}

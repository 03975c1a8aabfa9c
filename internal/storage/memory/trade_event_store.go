package memory

import (
	"context"
	"sort"
	"sync"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

type tradeKey struct {
	signature string
	monitor   string
}

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[tradeKey]*domain.ObservedTrade
}

// NewTradeEventStore creates a new in-memory trade event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[tradeKey]*domain.ObservedTrade),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *TradeEventStore) InsertBulk(_ context.Context, events []*domain.ObservedTrade) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[tradeKey]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
		k := tradeKey{e.Signature, e.Monitor}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, e := range events {
		c := *e
		s.data[tradeKey{e.Signature, e.Monitor}] = &c
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by event timestamp ASC.
func (s *TradeEventStore) GetByMint(_ context.Context, mint string) ([]*domain.ObservedTrade, error) {
	return s.filter(func(e *domain.ObservedTrade) bool {
		return e.Event.Mint == mint
	}), nil
}

// GetByTimeRange retrieves events for a mint within [start, end] (inclusive).
func (s *TradeEventStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.ObservedTrade, error) {
	return s.filter(func(e *domain.ObservedTrade) bool {
		return e.Event.Mint == mint && e.Event.Timestamp >= start && e.Event.Timestamp <= end
	}), nil
}

func (s *TradeEventStore) filter(keep func(*domain.ObservedTrade) bool) []*domain.ObservedTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ObservedTrade
	for _, e := range s.data {
		if keep(e) {
			c := *e
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Event.Timestamp == result[j].Event.Timestamp {
			return result[i].Signature < result[j].Signature
		}
		return result[i].Event.Timestamp < result[j].Event.Timestamp
	})
	return result
}

var _ storage.TradeEventStore = (*TradeEventStore)(nil)

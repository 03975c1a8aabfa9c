package memory

import (
	"context"
	"sort"
	"sync"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

// TradeAttemptStore is an in-memory implementation of storage.TradeAttemptStore.
type TradeAttemptStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeAttempt // keyed by attempt id
}

// NewTradeAttemptStore creates a new in-memory trade attempt store.
func NewTradeAttemptStore() *TradeAttemptStore {
	return &TradeAttemptStore{
		data: make(map[string]*domain.TradeAttempt),
	}
}

// Insert adds a new attempt. Returns ErrDuplicateKey if the ID exists.
func (s *TradeAttemptStore) Insert(_ context.Context, a *domain.TradeAttempt) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	c := *a
	s.data[a.ID] = &c
	return nil
}

// Update overwrites the outcome fields of an existing attempt.
func (s *TradeAttemptStore) Update(_ context.Context, a *domain.TradeAttempt) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[a.ID]
	if !exists {
		return storage.ErrNotFound
	}

	cur.BundleID = a.BundleID
	cur.Status = a.Status
	cur.TxID = a.TxID
	cur.Error = a.Error
	cur.UpdatedAt = a.UpdatedAt
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *TradeAttemptStore) GetByID(_ context.Context, id string) (*domain.TradeAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	c := *a
	return &c, nil
}

// GetByAlarmID retrieves all attempts spawned by an alarm, ordered by created_at ASC.
func (s *TradeAttemptStore) GetByAlarmID(_ context.Context, alarmID string) ([]*domain.TradeAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeAttempt
	for _, a := range s.data {
		if a.AlarmID == alarmID {
			c := *a
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.TradeAttemptStore = (*TradeAttemptStore)(nil)

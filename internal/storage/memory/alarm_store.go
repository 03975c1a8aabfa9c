package memory

import (
	"context"
	"sort"
	"sync"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/storage"
)

// AlarmStore is an in-memory implementation of storage.AlarmStore.
type AlarmStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Alarm // keyed by alarm id
}

// NewAlarmStore creates a new in-memory alarm store.
func NewAlarmStore() *AlarmStore {
	return &AlarmStore{
		data: make(map[string]*domain.Alarm),
	}
}

// Insert adds a new alarm. Returns ErrDuplicateKey if the ID exists.
func (s *AlarmStore) Insert(_ context.Context, a *domain.Alarm) error {
	if a == nil || a.ID == "" || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.ID] = copyAlarm(a)
	return nil
}

// GetByID retrieves an alarm by its ID. Returns ErrNotFound if not exists.
func (s *AlarmStore) GetByID(_ context.Context, id string) (*domain.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAlarm(a), nil
}

// GetByMint retrieves all alarms for a mint, ordered by raised_at ASC.
func (s *AlarmStore) GetByMint(_ context.Context, mint string) ([]*domain.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alarm
	for _, a := range s.data {
		if a.Mint == mint {
			result = append(result, copyAlarm(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RaisedAt.Equal(result[j].RaisedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].RaisedAt.Before(result[j].RaisedAt)
	})

	return result, nil
}

func copyAlarm(a *domain.Alarm) *domain.Alarm {
	c := *a
	c.Amounts = append([]float64(nil), a.Amounts...)
	return &c
}

var _ storage.AlarmStore = (*AlarmStore)(nil)

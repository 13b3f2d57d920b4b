package leasing

import (
	"context"
	"sync"
)

// memStore implements LeaseStore and EvictionStore in memory for tests.
type memStore struct {
	mu       sync.Mutex
	leases   map[string]LeaseRecord
	notices  map[string]EvictionNotice
	upserts  int
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		leases:  map[string]LeaseRecord{},
		notices: map[string]EvictionNotice{},
	}
}

func (m *memStore) UpsertLease(_ context.Context, rec LeaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.leases[rec.ClaimID] = rec
	m.upserts++
	return nil
}

func (m *memStore) DeleteLease(_ context.Context, claimID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, claimID)
	return nil
}

func (m *memStore) ListLeases(_ context.Context) ([]LeaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LeaseRecord, 0, len(m.leases))
	for _, rec := range m.leases {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) UpsertEviction(_ context.Context, n EvictionNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[n.ClaimID] = n
	return nil
}

func (m *memStore) DeleteEviction(_ context.Context, claimID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notices, claimID)
	return nil
}

func (m *memStore) ListEvictions(_ context.Context) ([]EvictionNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EvictionNotice, 0, len(m.notices))
	for _, n := range m.notices {
		out = append(out, n)
	}
	return out, nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// MemoryStore keeps the collection in a mutex-guarded map. It backs tests
// and serves as the reference implementation of the Store semantics.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*model.UnlockRequest
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*model.UnlockRequest)}
}

// GetAll returns copies of every request, newest first.
func (m *MemoryStore) GetAll(ctx context.Context) ([]model.UnlockRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.UnlockRequest, 0, len(m.requests))
	for _, req := range m.requests {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetByID returns a copy of the request so callers cannot mutate stored state.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*model.UnlockRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

// Insert adds a new request, rejecting duplicate ids.
func (m *MemoryStore) Insert(ctx context.Context, req *model.UnlockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[req.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", model.ErrValidation, req.ID)
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

// Update applies mutate under the write lock, so updates to one id never
// interleave.
func (m *MemoryStore) Update(ctx context.Context, id string, mutate Mutator) (*model.UnlockRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *req
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	m.requests[id] = &cp
	out := cp
	return &out, nil
}

package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Memory is a process-local Store.
type Memory struct {
	mu           sync.RWMutex
	byID         map[string]*Account
	byIdentifier map[string]string
	now          func() time.Time
}

// Compile-time interface check
var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:         make(map[string]*Account),
		byIdentifier: make(map[string]string),
		now:          time.Now,
	}
}

// FindByIdentifier implements Store.
func (m *Memory) FindByIdentifier(_ context.Context, identifier string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdentifier[identifier]
	if !ok {
		return nil, custodyerr.ErrAccountNotFound
	}
	out := *m.byID[id]
	return &out, nil
}

// FindByID implements Store.
func (m *Memory) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.byID[id]
	if !ok {
		return nil, custodyerr.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, a *Account) error {
	if a.Identifier == "" {
		return custodyerr.Wrap(custodyerr.ErrInvalidInput, "account identifier is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byIdentifier[a.Identifier]; taken {
		return custodyerr.ErrAccountExists
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, taken := m.byID[a.ID]; taken {
		return custodyerr.ErrAccountExists
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}

	stored := *a
	m.byID[a.ID] = &stored
	m.byIdentifier[a.Identifier] = a.ID
	return nil
}

// Len returns the number of accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

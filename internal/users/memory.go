package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/haikuplus/haikuplus-server/internal/models"
)

// MemoryUserRepository keeps users in process memory. Used when MongoDB is not configured and in tests.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byExternal map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[string]*models.User{}, byExternal: map[string]string{}}
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.LastUpdated != nil {
		t := *u.LastUpdated
		cp.LastUpdated = &t
	}
	return &cp
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		return clone(u), nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byExternal[externalID]; ok {
		return clone(m.byID[id]), nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.User
	for _, ext := range externalIDs {
		if id, ok := m.byExternal[ext]; ok {
			out = append(out, clone(m.byID[id]))
		}
	}
	return out, nil
}

func (m *MemoryUserRepository) FindOrCreateByExternalID(ctx context.Context, externalID, newID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byExternal[externalID]; ok {
		return clone(m.byID[id]), nil
	}
	u := &models.User{ID: newID, ExternalID: externalID}
	m.byID[newID] = u
	m.byExternal[externalID] = newID
	return clone(u), nil
}

func (m *MemoryUserRepository) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[u.ID]
	if !ok {
		return nil
	}
	if old.ExternalID != u.ExternalID {
		if owner, taken := m.byExternal[u.ExternalID]; taken && owner != u.ID {
			return fmt.Errorf("update user %s: %w", u.ID, ErrExternalIDTaken)
		}
		delete(m.byExternal, old.ExternalID)
		m.byExternal[u.ExternalID] = u.ID
	}
	m.byID[u.ID] = clone(u)
	return nil
}

func (m *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		delete(m.byExternal, u.ExternalID)
		delete(m.byID, id)
	}
	return nil
}

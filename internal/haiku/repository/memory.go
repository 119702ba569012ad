package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/haikuplus/haikuplus-server/internal/haiku"
)

var (
	ErrNotFound = errors.New("haiku not found")
)

// Repository is the haiku persistence contract shared by the memory and Mongo stores.
// Lists are ordered newest first.
type Repository interface {
	Create(ctx context.Context, h *haiku.Haiku) error
	Get(ctx context.Context, id string) (*haiku.Haiku, error)
	List(ctx context.Context) ([]*haiku.Haiku, error)
	ListByAuthors(ctx context.Context, authorIDs []string) ([]*haiku.Haiku, error)
	IncrementVotes(ctx context.Context, id string) (*haiku.Haiku, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
}

// MemoryRepo is a simple in-memory repository used when MongoDB is not configured
// and in unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*haiku.Haiku
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*haiku.Haiku)}
}

func copyHaiku(h *haiku.Haiku) *haiku.Haiku {
	cp := *h
	cp.Author = nil
	return &cp
}

func newestFirst(out []*haiku.Haiku) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreationTime.After(out[j].CreationTime) })
}

func (m *MemoryRepo) Create(ctx context.Context, h *haiku.Haiku) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[h.ID] = copyHaiku(h)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*haiku.Haiku, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.store[id]; ok {
		return copyHaiku(h), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*haiku.Haiku, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*haiku.Haiku, 0, len(m.store))
	for _, h := range m.store {
		out = append(out, copyHaiku(h))
	}
	newestFirst(out)
	return out, nil
}

func (m *MemoryRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*haiku.Haiku, error) {
	want := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		want[id] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*haiku.Haiku{}
	for _, h := range m.store {
		if want[h.AuthorID] {
			out = append(out, copyHaiku(h))
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *MemoryRepo) IncrementVotes(ctx context.Context, id string) (*haiku.Haiku, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	h.Votes++
	return copyHaiku(h), nil
}

func (m *MemoryRepo) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, h := range m.store {
		if h.AuthorID == authorID {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

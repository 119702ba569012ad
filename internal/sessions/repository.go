package sessions

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence operations.
// Get returns (nil, nil) for unknown or expired handles.
type Repository interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, handle string) (*Session, error)
	Delete(ctx context.Context, handle string) error
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Save(ctx context.Context, s *Session) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.Handle}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Get(ctx context.Context, handle string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"_id": handle}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		_, _ = r.col.DeleteOne(ctx, bson.M{"_id": handle})
		return nil, nil
	}
	return &s, nil
}

func (r *MongoRepository) Delete(ctx context.Context, handle string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": handle})
	return err
}

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]Session{}}
}

func (m *MemoryRepository) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.Handle] = *s
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, handle string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.store[handle]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		_ = m.Delete(ctx, handle)
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, handle)
	return nil
}

package circles

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository stores directed user-to-user edges.
type Repository interface {
	// ReplaceForSource drops every edge leaving sourceID and stores edges to targetIDs.
	ReplaceForSource(ctx context.Context, sourceID string, targetIDs []string) error
	TargetsOf(ctx context.Context, sourceID string) ([]string, error)
	// DeleteForUser removes edges in both directions.
	DeleteForUser(ctx context.Context, userID string) error
}

type edgeRow struct {
	ID       string `bson:"_id"`
	SourceID string `bson:"source_user_id"`
	TargetID string `bson:"target_user_id"`
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) ReplaceForSource(ctx context.Context, sourceID string, targetIDs []string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"source_user_id": sourceID}); err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(targetIDs))
	for _, t := range targetIDs {
		docs = append(docs, edgeRow{ID: uuid.NewString(), SourceID: sourceID, TargetID: t})
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

func (r *MongoRepository) TargetsOf(ctx context.Context, sourceID string) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{"source_user_id": sourceID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var row edgeRow
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.TargetID)
	}
	return out, cur.Err()
}

func (r *MongoRepository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"source_user_id": userID},
		bson.M{"target_user_id": userID},
	}})
	return err
}

// MemoryRepository is an in-process edge store.
type MemoryRepository struct {
	mu    sync.RWMutex
	edges []models.Edge
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) ReplaceForSource(ctx context.Context, sourceID string, targetIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	for _, e := range m.edges {
		if e.SourceUserID != sourceID {
			kept = append(kept, e)
		}
	}
	for _, t := range targetIDs {
		kept = append(kept, models.Edge{ID: uuid.NewString(), SourceUserID: sourceID, TargetUserID: t})
	}
	m.edges = kept
	return nil
}

func (m *MemoryRepository) TargetsOf(ctx context.Context, sourceID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, e := range m.edges {
		if e.SourceUserID == sourceID {
			out = append(out, e.TargetUserID)
		}
	}
	return out, nil
}

func (m *MemoryRepository) DeleteForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	for _, e := range m.edges {
		if e.SourceUserID != userID && e.TargetUserID != userID {
			kept = append(kept, e)
		}
	}
	m.edges = kept
	return nil
}

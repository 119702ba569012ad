package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository stores at most one credential per user. Get returns (nil, nil) when none is stored.
type Repository interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Put(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, userID string) error
}

type credentialRow struct {
	UserID       string    `bson:"_id"`
	AccessToken  string    `bson:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	IDToken      string    `bson:"id_token,omitempty"`
	TokenType    string    `bson:"token_type,omitempty"`
	ExpiresIn    int64     `bson:"expires_in"`
	Created      time.Time `bson:"created"`
}

func toRow(c *models.Credential) credentialRow {
	return credentialRow{
		UserID:       c.UserID,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		IDToken:      c.IDToken,
		TokenType:    c.TokenType,
		ExpiresIn:    c.ExpiresIn,
		Created:      c.Created.UTC(),
	}
}

func (r credentialRow) toModel() *models.Credential {
	return &models.Credential{
		UserID:       r.UserID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		IDToken:      r.IDToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
		Created:      r.Created.UTC(),
	}
}

// MongoRepository keys credential documents by the owning user's id.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (*models.Credential, error) {
	var row credentialRow
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&row); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *MongoRepository) Put(ctx context.Context, c *models.Credential) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": c.UserID}, toRow(c), options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.Credential
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]models.Credential{}}
}

func (m *MemoryRepository) Get(ctx context.Context, userID string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryRepository) Put(ctx context.Context, c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[c.UserID] = *c
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, userID)
	return nil
}

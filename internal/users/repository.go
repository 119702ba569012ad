package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrExternalIDTaken is returned when an update would link a provider id that already
// belongs to another user.
var ErrExternalIDTaken = errors.New("external id already linked to another user")

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*models.User, error)
	// FindOrCreateByExternalID returns the user linked to externalID, creating it with newID
	// when absent. Two concurrent callers must end up with the same user.
	FindOrCreateByExternalID(ctx context.Context, externalID, newID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
}

// userRow is the stored shape of a user document.
type userRow struct {
	ID          string     `bson:"_id"`
	ExternalID  string     `bson:"google_user_id"`
	DisplayName string     `bson:"google_display_name,omitempty"`
	PhotoURL    string     `bson:"google_photo_url,omitempty"`
	ProfileURL  string     `bson:"google_profile_url,omitempty"`
	LastUpdated *time.Time `bson:"last_updated"`
}

func (r *userRow) toModel() *models.User {
	u := &models.User{
		ID:          r.ID,
		ExternalID:  r.ExternalID,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		ProfileURL:  r.ProfileURL,
	}
	if r.LastUpdated != nil {
		t := r.LastUpdated.UTC()
		u.LastUpdated = &t
	}
	return u
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection.
// The collection needs a unique index on google_user_id (see database.EnsureIndexes).
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var row userRow
	if err := r.col.FindOne(ctx, filter).Decode(&row); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"google_user_id": externalID})
}

func (r *MongoUserRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*models.User, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"google_user_id": bson.M{"$in": externalIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.User
	for cur.Next(ctx) {
		var row userRow
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.toModel())
	}
	return out, cur.Err()
}

// FindOrCreateByExternalID upserts on the external id so the lookup and the insert are one
// atomic operation; $setOnInsert keeps an existing user's internal id.
func (r *MongoUserRepository) FindOrCreateByExternalID(ctx context.Context, externalID, newID string) (*models.User, error) {
	filter := bson.M{"google_user_id": externalID}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          newID,
		"last_updated": nil,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var row userRow
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&row); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost an insert race against another request; the winner's row is there now
			return r.GetByExternalID(ctx, externalID)
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *MongoUserRepository) Update(ctx context.Context, u *models.User) error {
	set := bson.M{
		"google_user_id":      u.ExternalID,
		"google_display_name": u.DisplayName,
		"google_photo_url":    u.PhotoURL,
		"google_profile_url":  u.ProfileURL,
		"last_updated":        u.LastUpdated,
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("update user %s: %w", u.ID, ErrExternalIDTaken)
	}
	return err
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Collection names shared by the services.
const (
	UsersCollection       = "users"
	CredentialsCollection = "credentials"
	SessionsCollection    = "sessions"
	HaikusCollection      = "haikus"
	EdgesCollection       = "edges"
)

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
// The unique index on users.google_user_id is what makes find-or-create safe across
// concurrent first sign-ins.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "google_user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		HaikusCollection: {
			{Keys: bson.D{{Key: "creation_time", Value: -1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
		},
		EdgesCollection: {
			{Keys: bson.D{{Key: "source_user_id", Value: 1}}},
			{Keys: bson.D{{Key: "target_user_id", Value: 1}}},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for col, idx := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

package main

import (
	"context"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/circles"
	"github.com/haikuplus/haikuplus-server/internal/config"
	"github.com/haikuplus/haikuplus-server/internal/credentials"
	"github.com/haikuplus/haikuplus-server/internal/database"
	"github.com/haikuplus/haikuplus-server/internal/haiku/repository"
	"github.com/haikuplus/haikuplus-server/internal/sessions"
	"github.com/haikuplus/haikuplus-server/internal/users"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// stores holds the repositories the server runs on. Without MongoDB everything falls
// back to process memory; sessions prefer Redis when it is reachable.
type stores struct {
	mongo *mongo.Client
	redis *redis.Client

	users       users.UserRepository
	credentials credentials.Repository
	sessions    sessions.Repository
	haikus      repository.Repository
	edges       circles.Repository
}

func openStores(ctx context.Context, cfg *config.Config) *stores {
	st := &stores{
		users:       users.NewMemoryUserRepository(),
		credentials: credentials.NewMemoryRepository(),
		sessions:    sessions.NewMemoryRepository(),
		haikus:      repository.NewMemoryRepo(),
		edges:       circles.NewMemoryRepository(),
	}

	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			st.redis = client
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.MongoDB.URI != "" {
		// retry with backoff to tolerate startup races with the database container
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var err error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if err != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, using in-memory stores: %v", maxAttempts, err)
		} else {
			st.mongo = client
			db := client.Database(cfg.MongoDB.Database)
			if err := database.EnsureIndexes(ctx, db); err != nil {
				logger.Warnf("ensure indexes: %v", err)
			}
			st.users = users.NewMongoUserRepository(db.Collection(database.UsersCollection))
			st.credentials = credentials.NewMongoRepository(db.Collection(database.CredentialsCollection))
			st.sessions = sessions.NewMongoRepository(db.Collection(database.SessionsCollection))
			st.haikus = repository.NewMongoRepo(db.Collection(database.HaikusCollection))
			st.edges = circles.NewMongoRepository(db.Collection(database.EdgesCollection))
			logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
		}
	} else {
		logger.Warnf("MONGODB_URI not set; users, credentials and haikus live in memory only")
	}

	if st.redis != nil {
		st.sessions = sessions.NewRedisRepository(st.redis, cfg.Session.KeyPrefix)
		logger.Infof("using Redis for session storage")
	}
	return st
}

// Ready pings the configured backends.
func (st *stores) Ready(ctx context.Context) map[string]bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	deps := map[string]bool{}
	if st.mongo != nil {
		deps["mongodb"] = st.mongo.Ping(ctx, nil) == nil
	}
	if st.redis != nil {
		deps["redis"] = st.redis.Ping(ctx).Err() == nil
	}
	return deps
}

func (st *stores) Close() {
	if st.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.mongo.Disconnect(ctx)
	}
	if st.redis != nil {
		_ = st.redis.Close()
	}
}

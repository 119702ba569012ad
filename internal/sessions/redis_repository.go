package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldUser    = "user"
	fieldCreated = "created"
	fieldExpires = "expires"
)

// RedisRepository keeps each session as a hash under "<prefix><handle>" that Redis
// expires together with the session.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "haiku:session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(handle string) string {
	return r.prefix + handle
}

func (r *RedisRepository) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	key := r.key(s.Handle)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldUser, s.UserID,
			fieldCreated, s.CreatedAt.UTC().Format(time.RFC3339Nano),
			fieldExpires, s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns nil, nil for unknown or expired handles.
func (r *RedisRepository) Get(ctx context.Context, handle string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Session{Handle: handle, UserID: fields[fieldUser]}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreated]); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", handle, err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields[fieldExpires]); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", handle, err)
	}
	if time.Now().After(s.ExpiresAt) {
		_ = r.client.Del(ctx, r.key(handle)).Err()
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) Delete(ctx context.Context, handle string) error {
	return r.client.Del(ctx, r.key(handle)).Err()
}

package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedTokens remembers access tokens revoked through disconnect until they would have
// expired anyway, so a replayed bearer token is refused without a provider round-trip.
// Tokens are stored as SHA-256 digests. A nil *RevokedTokens is a valid no-op list.
type RevokedTokens struct {
	client *redis.Client
	prefix string
}

func NewRevokedTokens(client *redis.Client) *RevokedTokens {
	if client == nil {
		return nil
	}
	return &RevokedTokens{client: client, prefix: "revoked:access:"}
}

func (r *RevokedTokens) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + hex.EncodeToString(sum[:])
}

// Add records token as revoked for ttl.
func (r *RevokedTokens) Add(ctx context.Context, token string, ttl time.Duration) error {
	if r == nil || token == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, r.key(token), "1", ttl).Err()
}

// Contains reports whether token was revoked.
func (r *RevokedTokens) Contains(ctx context.Context, token string) (bool, error) {
	if r == nil || token == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevokedTokens_AddContains(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	list := NewRevokedTokens(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()
	token := "ya29.access-token-1"

	require.NoError(t, list.Add(ctx, token, 2*time.Second))

	ok, err := list.Contains(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	// the raw token never reaches Redis
	for _, k := range m.Keys() {
		require.NotContains(t, k, token)
	}

	m.FastForward(3 * time.Second)

	ok2, err := list.Contains(ctx, token)
	require.NoError(t, err)
	require.False(t, ok2)
}

// A nil list behaves as an always-empty list.
func TestRevokedTokens_NilIsNoop(t *testing.T) {
	var list *RevokedTokens = NewRevokedTokens(nil)
	require.Nil(t, list)
	ctx := context.Background()
	require.NoError(t, list.Add(ctx, "t", time.Second))
	ok, err := list.Contains(ctx, "t")
	require.NoError(t, err)
	require.False(t, ok)
}

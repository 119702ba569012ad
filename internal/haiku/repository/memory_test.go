package repository

import (
	"context"
	"testing"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/haiku"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, &haiku.Haiku{ID: "h1", AuthorID: "a", Title: "old", CreationTime: base}))
	require.NoError(t, r.Create(ctx, &haiku.Haiku{ID: "h2", AuthorID: "b", Title: "new", CreationTime: base.Add(time.Hour)}))
	require.NoError(t, r.Create(ctx, &haiku.Haiku{ID: "h3", AuthorID: "a", Title: "mid", CreationTime: base.Add(time.Minute)}))

	got, err := r.Get(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, "old", got.Title)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"h2", "h3", "h1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	byA, err := r.ListByAuthors(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, byA, 2)

	none, err := r.ListByAuthors(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, none)

	voted, err := r.IncrementVotes(ctx, "h2")
	require.NoError(t, err)
	require.EqualValues(t, 1, voted.Votes)
	_, err = r.IncrementVotes(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	n, err := r.DeleteByAuthor(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	_, err = r.Get(ctx, "h1")
	require.ErrorIs(t, err, ErrNotFound)
}

package memory

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	_, found, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Put(ctx, &consultation.Session{ID: "b"}))
	require.NoError(t, repo.Put(ctx, &consultation.Session{ID: "a", Turns: []consultation.Turn{{Role: consultation.RoleUser, Text: "hi"}}}))

	got, found, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hi", got.Turns[0].Text)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 2, repo.Count())

	require.NoError(t, repo.Delete(ctx, "a"))
	_, found, _ = repo.Get(ctx, "a")
	assert.False(t, found)
	assert.Equal(t, 1, repo.Count())
}

func TestSessionRepositoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	s := &consultation.Session{ID: "a", Turns: []consultation.Turn{{Role: consultation.RoleUser, Text: "hi"}}}
	require.NoError(t, repo.Put(ctx, s))
	s.Turns[0].Text = "mutated after put"

	got, _, _ := repo.Get(ctx, "a")
	got.Turns = append(got.Turns, consultation.Turn{Role: consultation.RoleAssistant, Text: "hello"})

	again, _, _ := repo.Get(ctx, "a")
	require.Len(t, again.Turns, 1)
	assert.Equal(t, "hi", again.Turns[0].Text)
}

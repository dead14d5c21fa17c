package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SaveKeepsMaximum(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveHighScore(ctx, "ana", 5))
	require.NoError(t, m.SaveHighScore(ctx, "ana", 3))

	got, err := m.HighScore(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = m.HighScore(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestMemory_RejectsBlankPlayer(t *testing.T) {
	m := NewMemory()
	assert.ErrorIs(t, m.SaveHighScore(context.Background(), "  ", 1), ErrInvalidPlayer)
	_, err := m.HighScore(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestMemory_TopOrdersByScoreThenName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveHighScore(ctx, "bo", 4))
	require.NoError(t, m.SaveHighScore(ctx, "al", 4))
	require.NoError(t, m.SaveHighScore(ctx, "cy", 9))
	require.NoError(t, m.SaveHighScore(ctx, "di", 1))

	top, err := m.Top(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"cy", 9}, {"al", 4}, {"bo", 4}}, top)

	all, err := m.Top(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

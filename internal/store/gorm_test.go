package store

import (
	"context"
	"os"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestPostgres connects to DATABASE_URL or skips the test.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pg, err := OpenPostgres(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	return pg
}

// testPlayers returns unique player ids and removes their rows when the test ends.
func testPlayers(t *testing.T, pg *Postgres, n int) []string {
	t.Helper()
	players := make([]string, n)
	for i := range players {
		players[i] = "test-" + uuid.NewString()
	}
	sort.Strings(players)
	t.Cleanup(func() {
		pg.db.Where("player IN ?", players).Delete(&highScoreRow{})
	})
	return players
}

func TestPostgres_SaveKeepsMaximum(t *testing.T) {
	pg := openTestPostgres(t)
	ctx := context.Background()
	ana := testPlayers(t, pg, 1)[0]

	got, err := pg.HighScore(ctx, ana)
	require.NoError(t, err)
	assert.Zero(t, got)

	require.NoError(t, pg.SaveHighScore(ctx, ana, 5))
	require.NoError(t, pg.SaveHighScore(ctx, ana, 3))
	got, err = pg.HighScore(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	require.NoError(t, pg.SaveHighScore(ctx, ana, 8))
	got, err = pg.HighScore(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestPostgres_TopOrdersByScoreThenName(t *testing.T) {
	pg := openTestPostgres(t)
	ctx := context.Background()
	players := testPlayers(t, pg, 3)

	// Scores far above anything a real game reaches so these rows lead the table.
	const base = 1 << 30
	require.NoError(t, pg.SaveHighScore(ctx, players[0], base))
	require.NoError(t, pg.SaveHighScore(ctx, players[1], base+1))
	require.NoError(t, pg.SaveHighScore(ctx, players[2], base))

	top, err := pg.Top(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Player: players[1], Score: base + 1},
		{Player: players[0], Score: base},
		{Player: players[2], Score: base},
	}, top)
}

func TestPostgres_RejectsBlankPlayer(t *testing.T) {
	pg := openTestPostgres(t)
	assert.ErrorIs(t, pg.SaveHighScore(context.Background(), "", 1), ErrInvalidPlayer)
}

package hub

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/session"
	"github.com/DoyleJ11/simon-backend/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, session.Deps{})
	reply := make(chan *session.Session, 1)

	h.Inbox() <- EnsureSession{Player: "ana", Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetSession{Player: "ana", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}

	h.Inbox() <- GetSession{Player: "bo", Reply: reply}
	assert.Nil(t, <-reply)
}

func TestHub_SeedsStoredHighScore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemory()
	require.NoError(t, mem.SaveHighScore(ctx, "ana", 6))
	h := NewHub(ctx, session.Deps{Store: mem})

	s := h.Session(ctx, "ana")
	require.NotNil(t, s)
	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, v.State.HighScore)
}

func TestHub_RemoveAndList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, session.Deps{})

	a := h.Session(ctx, "ana")
	require.NotNil(t, h.Session(ctx, "bo"))

	list := make(chan []string, 1)
	h.Inbox() <- ListSessions{Reply: list}
	players := <-list
	slices.Sort(players)
	assert.Equal(t, []string{"ana", "bo"}, players)

	h.Inbox() <- RemoveSession{Player: "ana"}
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed session still running")
	}

	h.Inbox() <- ListSessions{Reply: list}
	assert.Equal(t, []string{"bo"}, <-list)
}

func TestHub_ShutdownStopsSessions(t *testing.T) {
	h := NewHub(context.Background(), session.Deps{})
	s := h.Session(context.Background(), "ana")
	require.NotNil(t, s)

	_, err := s.Reset(context.Background())
	require.NoError(t, err)

	h.Inbox() <- ShutdownHub{}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("hub did not stop")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not stop")
	}
	assert.Nil(t, h.Session(context.Background(), "ana"))
	_, err = s.Reset(context.Background())
	assert.ErrorIs(t, err, session.ErrClosed)
}

func listSessions(t *testing.T, h *Hub) []string {
	t.Helper()
	reply := make(chan []string, 1)
	h.Inbox() <- ListSessions{Reply: reply}
	select {
	case players := <-reply:
		slices.Sort(players)
		return players
	case <-time.After(time.Second):
		t.Fatalf("timed out listing sessions")
		return nil
	}
}

func TestHub_IdleSessionsAreRemoved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	h := NewHub(ctx, session.Deps{Clock: clock, IdleTimeout: time.Minute})

	playing := h.Session(ctx, "ana")
	require.NotNil(t, playing)
	_, err := playing.Reset(ctx)
	require.NoError(t, err)
	require.NotNil(t, h.Session(ctx, "bo"))
	require.NotNil(t, h.Session(ctx, "cy"))
	assert.Equal(t, []string{"ana", "bo", "cy"}, listSessions(t, h))

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 3))
	clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		return len(listSessions(t, h)) == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case <-playing.Done():
	case <-time.After(time.Second):
		t.Fatalf("idle session still running")
	}

	// The player comes back to a fresh session.
	again := h.Session(ctx, "ana")
	require.NotNil(t, again)
	assert.NotSame(t, playing, again)
}

func TestHub_StaleRemoveKeepsReplacement(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, session.Deps{})

	old := h.Session(ctx, "ana")
	require.NotNil(t, old)
	h.Inbox() <- RemoveSession{Player: "ana"}
	<-old.Done()

	fresh := h.Session(ctx, "ana")
	require.NotNil(t, fresh)
	h.Inbox() <- RemoveSession{Player: "ana", Session: old}
	assert.Equal(t, []string{"ana"}, listSessions(t, h))

	select {
	case <-fresh.Done():
		t.Fatalf("replacement session was shut down")
	default:
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/DoyleJ11/simon-backend/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("watcher outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []engine.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, evts []engine.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []engine.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]engine.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestSession(t *testing.T, deps Deps) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, "ana", engine.NewState(0), deps)
}

func TestSession_ResetThenCorrectSubmitAdvances(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})

	first, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 1, first.State.Level)

	next, err := s.Submit(ctx, pad.Strings(first.State.Sequence))
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, 2, next.State.Level)
	assert.Equal(t, 1, next.State.HighScore)
	assert.Equal(t, first.State.Sequence, next.State.Sequence[:1])
}

func TestSession_WrongSubmitEndsGameAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})

	out := make(chan Snapshot, 4)
	s.Inbox() <- Join{ClientID: "w1", Outbox: out}
	joined := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, joined.Version)

	_, err := s.Reset(ctx)
	require.NoError(t, err)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	snap, err := s.Submit(ctx, []string{"red", "red"})
	require.ErrorIs(t, err, engine.ErrLengthMismatch)
	assert.Equal(t, engine.PhaseOver, snap.State.Phase)

	over := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 2, over.Version)
	assert.Equal(t, engine.PhaseOver, over.State.Phase)

	_, err = s.Submit(ctx, []string{"red"})
	require.ErrorIs(t, err, engine.ErrGameOver)
	recvNoSnapshot(t, out, 50*time.Millisecond)
}

func TestSession_UnknownPadDoesNotBumpVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})

	_, err := s.Reset(ctx)
	require.NoError(t, err)

	snap, err := s.Submit(ctx, []string{"mauve"})
	require.ErrorIs(t, err, engine.ErrUnknownPad)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, engine.PhasePlaying, snap.State.Phase)
}

func TestSession_PersistsHighScoreAndPublishes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	pub := &recordingPublisher{}
	s := newTestSession(t, Deps{Store: mem, Publisher: pub})

	snap, err := s.Reset(ctx)
	require.NoError(t, err)
	for range 3 {
		snap, err = s.Submit(ctx, pad.Strings(snap.State.Sequence))
		require.NoError(t, err)
	}

	hs, err := mem.HighScore(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 3, hs)

	types := pub.types()
	assert.Contains(t, types, engine.EvtGameStarted)
	assert.Contains(t, types, engine.EvtRoundCompleted)
	assert.Contains(t, types, engine.EvtHighScoreBeaten)
}

func TestSession_DropSlowWatcher(t *testing.T) {
	s := newTestSession(t, Deps{})

	out := make(chan Snapshot, 1)
	s.Inbox() <- Join{ClientID: "w1", Outbox: out}

	_, err := s.Reset(context.Background())
	require.NoError(t, err)

	v, err := s.View(context.Background())
	require.NoError(t, err)
	if v.NumClients != 0 {
		t.Fatalf("expected slow watcher to be dropped; NumClients=%d", v.NumClients)
	}
}

func TestSession_IdleTimeoutEndsGame(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestSession(t, Deps{Clock: clock, IdleTimeout: time.Minute})

	out := make(chan Snapshot, 4)
	s.Inbox() <- Join{ClientID: "w1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	_, err := s.Reset(context.Background())
	require.NoError(t, err)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	ended := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, engine.PhaseOver, ended.State.Phase)
	assert.Equal(t, 2, ended.Version)
}

func TestSession_SubmitRearmsIdleTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestSession(t, Deps{Clock: clock, IdleTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := s.Reset(ctx)
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(40 * time.Second)
	snap, err = s.Submit(ctx, pad.Strings(snap.State.Sequence))
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// 80s since reset but only 40s since the last submit.
	clock.Advance(40 * time.Second)
	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhasePlaying, v.State.Phase)
	assert.Equal(t, snap.Version, v.Version)
}

func TestSession_ShutdownClosesWatchersAndRefusesRequests(t *testing.T) {
	s := newTestSession(t, Deps{})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Join{ClientID: "w1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	s.Inbox() <- Shutdown{}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not stop")
	}

	_, ok := <-out
	assert.False(t, ok, "watcher channel should be closed")

	_, err := s.Reset(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSession_IdleWithoutWatchersIsReleased(t *testing.T) {
	clock := clockwork.NewFakeClock()
	released := make(chan *Session, 1)
	s := newTestSession(t, Deps{
		Clock:       clock,
		IdleTimeout: time.Minute,
		OnIdle:      func(s *Session) { released <- s },
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Reset(ctx)
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case got := <-released:
		assert.Same(t, s, got)
	case <-time.After(time.Second):
		t.Fatalf("idle session was not released")
	}

	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseOver, v.State.Phase)
}

func TestSession_UnplayedSessionIsReleased(t *testing.T) {
	clock := clockwork.NewFakeClock()
	released := make(chan *Session, 1)
	s := newTestSession(t, Deps{
		Clock:       clock,
		IdleTimeout: time.Minute,
		OnIdle:      func(s *Session) { released <- s },
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatalf("idle session was not released")
	}
	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseIdle, v.State.Phase)
	assert.Equal(t, 0, v.Version)
}

func TestSession_WatchedSessionIsKept(t *testing.T) {
	clock := clockwork.NewFakeClock()
	released := make(chan *Session, 1)
	s := newTestSession(t, Deps{
		Clock:       clock,
		IdleTimeout: time.Minute,
		OnIdle:      func(s *Session) { released <- s },
	})

	out := make(chan Snapshot, 4)
	s.Inbox() <- Join{ClientID: "w1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	// The timer is rearmed for the watcher.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case <-released:
		t.Fatalf("watched session should not be released")
	default:
	}
}

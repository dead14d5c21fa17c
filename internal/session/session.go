package session

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/events"
	"github.com/DoyleJ11/simon-backend/internal/metrics"
	"github.com/DoyleJ11/simon-backend/internal/store"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("session closed")

type Msg interface{ isSessionMsg() }

type Reset struct {
	Reply chan Result
}

func (Reset) isSessionMsg() {}

type Submit struct {
	Sequence []string
	Reply    chan Result
}

func (Submit) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this watcher wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// idleFired carries the timer generation so fires from a replaced timer are ignored.
type idleFired struct{ gen int }

func (idleFired) isSessionMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

// Result answers Reset and Submit. Err is the engine error, if any; on a rejected sequence
// Snapshot still holds the game-over state.
type Result struct {
	Snapshot Snapshot
	Err      error
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Deps struct {
	Store       store.Store
	Publisher   events.Publisher
	Clock       clockwork.Clock
	IdleTimeout time.Duration // zero disables the idle timer
	Log         *zap.Logger
	// OnIdle is called from the session goroutine once the session has been idle with no
	// watchers. The owner is expected to answer with Shutdown.
	OnIdle func(*Session)
}

func (d Deps) withDefaults() Deps {
	if d.Store == nil {
		d.Store = store.NewMemory()
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.OnIdle == nil {
		d.OnIdle = func(*Session) {}
	}
	return d
}

// Session owns one player's game. All state changes happen on its loop goroutine.
type Session struct {
	player  string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	deps    Deps
	log     *zap.Logger
	idle    clockwork.Timer
	idleGen int
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, player string, initial engine.State, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)
	deps = deps.withDefaults()

	s := &Session{
		player:  player,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan Snapshot),
		deps:    deps,
		log:     deps.Log.With(zap.String("player", player)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.armIdle()
	go s.loop()
	return s
}

func (s *Session) Player() string { return s.player }

// Expose the inbox so tests or the ws layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Reset(ctx context.Context) (Snapshot, error) {
	reply := make(chan Result, 1)
	return s.request(ctx, Reset{Reply: reply}, reply)
}

func (s *Session) Submit(ctx context.Context, seq []string) (Snapshot, error) {
	reply := make(chan Result, 1)
	return s.request(ctx, Submit{Sequence: seq, Reply: reply}, reply)
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-s.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) request(ctx context.Context, m Msg, reply chan Result) (Snapshot, error) {
	select {
	case s.inbox <- m:
	case <-s.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Snapshot, r.Err
	case <-s.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register watcher + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case Reset:
				msg.Reply <- s.apply(engine.Command{Type: engine.CmdReset})

			case Submit:
				msg.Reply <- s.apply(engine.Command{Type: engine.CmdSubmit, Sequence: msg.Sequence})

			case idleFired:
				if msg.gen != s.idleGen {
					break // stale
				}
				s.idleExpired()

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(cmd engine.Command) Result {
	evts, newState, err := engine.Apply(s.state, cmd)
	if err != nil && !errors.Is(err, engine.ErrRejected) {
		s.log.Debug("command refused", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Snapshot: s.snapshot(), Err: err}
	}

	s.state = newState
	s.version++
	s.afterApply(evts, err)

	snap := s.snapshot()
	s.broadcast(snap)
	return Result{Snapshot: snap, Err: err}
}

// afterApply persists, publishes and rearms the idle timer for a state change.
func (s *Session) afterApply(evts []engine.Event, applyErr error) {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()

	if engine.ContainsEvent(evts, engine.EvtHighScoreBeaten) {
		if err := s.deps.Store.SaveHighScore(ctx, s.player, s.state.HighScore); err != nil {
			s.log.Error("save high score", zap.Error(err))
		}
	}

	for _, e := range evts {
		switch e.Type {
		case engine.EvtRoundCompleted:
			metrics.RoundCompleted()
		case engine.EvtGameEnded:
			metrics.GameEnded(endReason(applyErr))
		}
	}

	if err := s.deps.Publisher.Publish(ctx, s.player, evts); err != nil {
		s.log.Warn("publish events", zap.Error(err))
	}

	s.armIdle()
}

// idleExpired ends a running game, then releases the session unless someone is watching.
func (s *Session) idleExpired() {
	if s.state.Phase == engine.PhasePlaying {
		s.log.Info("session idle, ending game")
		s.apply(engine.Command{Type: engine.CmdTimeout})
	}
	if len(s.clients) > 0 {
		s.armIdle()
		return
	}
	s.stopIdle()
	s.log.Info("session idle, releasing")
	s.deps.OnIdle(s)
}

func endReason(err error) string {
	switch {
	case err == nil:
		return "idle_timeout"
	case errors.Is(err, engine.ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "wrong_sequence"
	}
}

func (s *Session) armIdle() {
	s.stopIdle()
	if s.deps.IdleTimeout <= 0 {
		return
	}
	s.idleGen++
	gen := s.idleGen
	s.idle = s.deps.Clock.AfterFunc(s.deps.IdleTimeout, func() {
		select {
		case s.inbox <- idleFired{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopIdle() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleGen++
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, State: s.state}
}

func (s *Session) shutdown() {
	s.stopIdle()
	for id, ch := range s.clients {
		close(ch) // Tell watcher no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Watcher is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

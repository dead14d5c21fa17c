package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/metrics"
	"github.com/DoyleJ11/simon-backend/internal/session"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type GetSession struct {
	Player string
	Reply  chan *session.Session
}

// EnsureSession returns the player's session, creating it seeded with the stored high score.
type EnsureSession struct {
	Player string
	Reply  chan *session.Session
}

// RemoveSession shuts the player's session down. When Session is set, only that exact
// session is removed, so a late release cannot drop its replacement.
type RemoveSession struct {
	Player  string
	Session *session.Session
}

type ListSessions struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ListSessions) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	deps     session.Deps
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, deps session.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		deps:     deps,
		log:      deps.Log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

// Session is the request/reply form of EnsureSession. It returns nil once the hub is gone.
func (h *Hub) Session(ctx context.Context, player string) *session.Session {
	reply := make(chan *session.Session, 1)
	select {
	case h.inbox <- EnsureSession{Player: player, Reply: reply}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetSession:
				msg.Reply <- h.sessions[msg.Player] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.Player]; s != nil {
					msg.Reply <- s
					break
				}
				deps := h.deps
				deps.OnIdle = h.release
				s := session.New(h.ctx, msg.Player, engine.NewState(h.loadHighScore(msg.Player)), deps)
				h.sessions[msg.Player] = s
				metrics.SessionOpened()
				h.log.Info("session created", zap.String("player", msg.Player))
				msg.Reply <- s

			case RemoveSession:
				s := h.sessions[msg.Player]
				if s != nil && (msg.Session == nil || msg.Session == s) {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Player)
					metrics.SessionClosed()
					h.log.Info("session removed", zap.String("player", msg.Player))
				}

			case ListSessions:
				players := make([]string, 0, len(h.sessions))
				for p := range h.sessions {
					players = append(players, p)
				}
				msg.Reply <- players

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// release runs on a session goroutine when that session has gone idle.
func (h *Hub) release(s *session.Session) {
	select {
	case h.inbox <- RemoveSession{Player: s.Player(), Session: s}:
	case <-h.done:
	}
}

func (h *Hub) loadHighScore(player string) int {
	if h.deps.Store == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()
	hs, err := h.deps.Store.HighScore(ctx, player)
	if err != nil {
		h.log.Warn("load high score", zap.String("player", player), zap.Error(err))
		return 0
	}
	return hs
}

func (h *Hub) shutdown() {
	for p, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
		delete(h.sessions, p)
		metrics.SessionClosed()
	}
	h.cancel()
}

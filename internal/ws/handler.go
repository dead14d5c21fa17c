package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/hub"
	"github.com/DoyleJ11/simon-backend/internal/session"
	"github.com/DoyleJ11/simon-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler streams a player's state snapshots. Clients only receive; anything they send is ignored.
// The session is only looked up once the upgrade has succeeded.
func Handler(h *hub.Hub, playerID func(*http.Request) string, validPlayer func(string) bool, originPatterns []string, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		player := playerID(r)
		if !validPlayer(player) {
			http.Error(w, "invalid player id", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := h.Session(r.Context(), player)
		if s == nil {
			conn.Close(websocket.StatusTryAgainLater, "session unavailable")
			return
		}

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		select {
		case s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}:
		case <-s.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ClientID: clientID}:
			case <-s.Done():
			}
		}()
		log.Info("watcher joined", zap.String("player", player), zap.String("client", clientID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for snap := range out {
				payload, err := json.Marshal(SnapshotMessage(snap))
				if err != nil {
					log.Error("marshal snapshot", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			// Session dropped us or shut down.
			conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop: only here to notice the peer going away.
		for {
			_, _, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read ended", zap.String("client", clientID), zap.Error(err))
				}
				return
			}
		}
	}
}

func SnapshotMessage(snap session.Snapshot) types.ServerMessage {
	gs := engine.ToWire(snap.State)
	return types.ServerMessage{
		Type:      "StateSnapshot",
		Version:   snap.Version,
		Phase:     string(snap.State.Phase),
		GameState: &gs,
	}
}

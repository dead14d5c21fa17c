package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/hub"
	"github.com/DoyleJ11/simon-backend/internal/session"
	"github.com/DoyleJ11/simon-backend/internal/store"
	"github.com/DoyleJ11/simon-backend/pkg/types"
	"go.uber.org/zap"
)

const (
	PlayerHeader  = "X-Player-ID"
	DefaultPlayer = "default"
	maxBodyBytes  = 64 << 10
)

var playerPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

var errBadPlayer = errors.New("player id must be 1-64 characters of letters, digits, '_', '.' or '-'")

type API struct {
	hub   *hub.Hub
	store store.Store
	log   *zap.Logger
}

func NewAPI(h *hub.Hub, st store.Store, log *zap.Logger) *API {
	return &API{hub: h, store: st, log: log.Named("httpapi")}
}

// PlayerID reads the player from the X-Player-ID header, then the player query parameter.
func PlayerID(r *http.Request) string {
	if p := r.Header.Get(PlayerHeader); p != "" {
		return p
	}
	if p := r.URL.Query().Get("player"); p != "" {
		return p
	}
	return DefaultPlayer
}

// ValidPlayer reports whether id is an acceptable player id.
func ValidPlayer(id string) bool { return playerPattern.MatchString(id) }

func (a *API) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	player := PlayerID(r)
	if !ValidPlayer(player) {
		writeError(w, http.StatusBadRequest, types.CodeBadRequest, errBadPlayer.Error())
		return nil, false
	}
	s := a.hub.Session(r.Context(), player)
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, types.CodeInternal, "session unavailable")
		return nil, false
	}
	return s, true
}

// withSession runs op on the player's session. A session released for idleness between
// lookup and use is replaced once.
func withSession[T any](a *API, w http.ResponseWriter, r *http.Request, op func(*session.Session) (T, error)) (T, bool) {
	var zero T
	for attempt := 0; ; attempt++ {
		s, ok := a.session(w, r)
		if !ok {
			return zero, false
		}
		v, err := op(s)
		if errors.Is(err, session.ErrClosed) && attempt == 0 {
			continue
		}
		if err != nil {
			a.fail(w, r, err)
			return zero, false
		}
		return v, true
	}
}

// ResetGameState handles PUT /api/v1/game-state: starts a new game for the player.
func (a *API) ResetGameState(w http.ResponseWriter, r *http.Request) {
	snap, ok := withSession(a, w, r, func(s *session.Session) (session.Snapshot, error) {
		return s.Reset(r.Context())
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.GameStateEnvelope{GameState: engine.ToWire(snap.State)})
}

// GetGameState handles GET /api/v1/game-state without touching the game.
func (a *API) GetGameState(w http.ResponseWriter, r *http.Request) {
	v, ok := withSession(a, w, r, func(s *session.Session) (session.View, error) {
		return s.View(r.Context())
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.GameStateEnvelope{GameState: engine.ToWire(v.State)})
}

// SubmitSequence handles POST /api/v1/game-state/sequence.
func (a *API) SubmitSequence(w http.ResponseWriter, r *http.Request) {
	var req types.SequenceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.CodeBadRequest, "bad json")
		return
	}
	if req.Sequence == nil {
		writeError(w, http.StatusBadRequest, types.CodeBadRequest, "missing sequence")
		return
	}

	snap, ok := withSession(a, w, r, func(s *session.Session) (session.Snapshot, error) {
		return s.Submit(r.Context(), req.Sequence)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.GameStateEnvelope{GameState: engine.ToWire(snap.State)})
}

// HighScores handles GET /api/v1/high-scores?limit=n.
func (a *API) HighScores(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := a.store.Top(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := types.HighScoresResponse{HighScores: make([]types.HighScore, len(entries))}
	for i, e := range entries {
		resp.HighScores[i] = types.HighScore{Player: e.Player, Score: e.Score}
	}
	writeJSON(w, http.StatusOK, resp)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrLengthMismatch):
		return http.StatusBadRequest, types.CodeLengthMismatch
	case errors.Is(err, engine.ErrWrongSequence):
		return http.StatusBadRequest, types.CodeWrongSequence
	case errors.Is(err, engine.ErrUnknownPad):
		return http.StatusUnprocessableEntity, types.CodeUnknownPad
	case errors.Is(err, engine.ErrGameOver):
		return http.StatusConflict, types.CodeGameOver
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, types.CodeInternal
	default:
		return http.StatusInternalServerError, types.CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: code})
}

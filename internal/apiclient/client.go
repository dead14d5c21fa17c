package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/DoyleJ11/simon-backend/pkg/types"
	"go.uber.org/zap"
)

// ErrRejected matches a StatusError for a sequence the server judged wrong.
var ErrRejected = errors.New("sequence rejected")

// ErrNoGame matches a StatusError for a submission while no game is running.
var ErrNoGame = errors.New("no game in progress")

// StatusError is a non-2xx reply from the game-state service.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("game-state service: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("game-state service: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.Code == types.CodeWrongSequence || e.Code == types.CodeLengthMismatch
	case ErrNoGame:
		return e.Code == types.CodeGameOver
	}
	return false
}

type Client struct {
	baseURL string
	player  string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithLogger(log *zap.Logger) Option     { return func(c *Client) { c.log = log } }

func New(baseURL, player string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		player:  player,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Reset starts a new game (PUT /api/v1/game-state).
func (c *Client) Reset(ctx context.Context) (types.GameState, error) {
	gs, err := c.do(ctx, http.MethodPut, "/api/v1/game-state", nil)
	if err != nil {
		return types.GameState{}, fmt.Errorf("reset game state: %w", err)
	}
	return gs, nil
}

// State reads the current game without resetting it.
func (c *Client) State(ctx context.Context) (types.GameState, error) {
	gs, err := c.do(ctx, http.MethodGet, "/api/v1/game-state", nil)
	if err != nil {
		return types.GameState{}, fmt.Errorf("get game state: %w", err)
	}
	return gs, nil
}

// Submit sends the player's input for validation. A wrong sequence yields an error
// matching ErrRejected; any other error means the answer never got judged.
func (c *Client) Submit(ctx context.Context, seq []pad.Color) (types.GameState, error) {
	body := types.SequenceRequest{Sequence: pad.Strings(seq)}
	gs, err := c.do(ctx, http.MethodPost, "/api/v1/game-state/sequence", body)
	if err != nil {
		return types.GameState{}, fmt.Errorf("submit sequence: %w", err)
	}
	return gs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (types.GameState, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return types.GameState{}, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return types.GameState{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Player-ID", c.player)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return types.GameState{}, err
	}
	defer resp.Body.Close()
	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var er types.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er); err == nil {
			se.Code, se.Message = er.Code, er.Error
		}
		return types.GameState{}, se
	}

	var env types.GameStateEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return types.GameState{}, fmt.Errorf("decode game state: %w", err)
	}
	return env.GameState, nil
}

package store

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidPlayer = errors.New("invalid player id")

// Store keeps each player's best score across games.
type Store interface {
	HighScore(ctx context.Context, player string) (int, error)
	// SaveHighScore records score unless the stored value is already higher.
	SaveHighScore(ctx context.Context, player string, score int) error
	Top(ctx context.Context, n int) ([]Entry, error)
	Close() error
}

type Entry struct {
	Player string
	Score  int
}

func validPlayer(player string) error {
	if strings.TrimSpace(player) == "" {
		return ErrInvalidPlayer
	}
	return nil
}

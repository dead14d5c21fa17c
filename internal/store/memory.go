package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

type Memory struct {
	mu     sync.RWMutex
	scores map[string]int
}

func NewMemory() *Memory {
	return &Memory{scores: make(map[string]int)}
}

func (m *Memory) HighScore(_ context.Context, player string) (int, error) {
	if err := validPlayer(player); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scores[player], nil
}

func (m *Memory) SaveHighScore(_ context.Context, player string, score int) error {
	if err := validPlayer(player); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if score > m.scores[player] {
		m.scores[player] = score
	}
	return nil
}

func (m *Memory) Top(_ context.Context, n int) ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.scores))
	for p, s := range m.scores {
		entries = append(entries, Entry{Player: p, Score: s})
	}
	m.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (m *Memory) Close() error { return nil }

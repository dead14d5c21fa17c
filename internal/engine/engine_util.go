package engine

import (
	"math/rand/v2"

	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/DoyleJ11/simon-backend/pkg/types"
)

// NewState is an idle board carrying a previously earned high score.
func NewState(highScore int) State {
	return State{
		Phase:     PhaseIdle,
		Sequence:  []pad.Color{},
		HighScore: highScore,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func ToWire(s State) types.GameState {
	return types.GameState{
		Sequence:  pad.Strings(s.Sequence),
		HighScore: s.HighScore,
		Level:     s.Level,
	}
}

// Swapped out in tests for a fixed order.
var nextPad = func() pad.Color {
	return pad.All[rand.IntN(len(pad.All))]
}

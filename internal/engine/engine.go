package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/simon-backend/internal/pad"
)

// ErrRejected is wrapped by every error that ends the game because the player got it wrong.
var ErrRejected = errors.New("sequence rejected")

var ErrWrongSequence = fmt.Errorf("%w: wrong pad", ErrRejected)
var ErrLengthMismatch = fmt.Errorf("%w: length mismatch", ErrRejected)
var ErrUnknownPad = errors.New("unknown pad")
var ErrGameOver = errors.New("no game in progress")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhaseOver    Phase = "over"
)

type State struct {
	Phase     Phase
	Sequence  []pad.Color
	Level     int
	HighScore int
	Rounds    int // completed rounds in the current game
}

type CommandType string

const (
	CmdReset   CommandType = "Reset"
	CmdSubmit  CommandType = "Submit"
	CmdTimeout CommandType = "Timeout"
)

/*
	CmdReset   -> EvtGameStarted -> EvtPadAppended
	CmdSubmit  -> EvtRoundCompleted -> (EvtHighScoreBeaten) -> EvtPadAppended
	           or EvtSequenceFailed -> EvtGameEnded
	CmdTimeout -> EvtGameEnded
*/

type Command struct {
	Type     CommandType
	Sequence []string
}

type EventType string

const (
	EvtGameStarted     EventType = "GameStarted"
	EvtPadAppended     EventType = "PadAppended"
	EvtRoundCompleted  EventType = "RoundCompleted"
	EvtHighScoreBeaten EventType = "HighScoreBeaten"
	EvtSequenceFailed  EventType = "SequenceFailed"
	EvtGameEnded       EventType = "GameEnded"
)

type Event struct {
	Type      EventType
	Pad       pad.Color
	Level     int
	HighScore int
	Reason    string
}

// Apply validates cmd against s and returns the events it produced and the next state.
// A rejected sequence (errors.Is(err, ErrRejected)) still returns the events and the
// game-over state; every other error returns s unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdReset:
		next := nextPad()
		newState := State{
			Phase:     PhasePlaying,
			Sequence:  []pad.Color{next},
			Level:     1,
			HighScore: s.HighScore,
		}
		events := []Event{
			{Type: EvtGameStarted, HighScore: s.HighScore},
			{Type: EvtPadAppended, Pad: next, Level: 1},
		}
		return events, newState, nil

	case CmdSubmit:
		if s.Phase != PhasePlaying {
			return nil, s, ErrGameOver
		}

		seq, err := parseSequence(cmd.Sequence)
		if err != nil {
			return nil, s, err
		}

		if err := compareSequence(s.Sequence, seq); err != nil {
			newState := cloneState(s)
			newState.Phase = PhaseOver
			events := []Event{
				{Type: EvtSequenceFailed, Level: s.Level, Reason: err.Error()},
				{Type: EvtGameEnded, Level: s.Level, HighScore: s.HighScore, Reason: err.Error()},
			}
			return events, newState, err
		}

		newState := cloneState(s)
		newState.Rounds++
		events := []Event{
			{Type: EvtRoundCompleted, Level: s.Level},
		}

		if newState.Rounds > newState.HighScore {
			newState.HighScore = newState.Rounds
			events = append(events, Event{Type: EvtHighScoreBeaten, HighScore: newState.HighScore})
		}

		next := nextPad()
		newState.Sequence = append(newState.Sequence, next)
		newState.Level = len(newState.Sequence)
		events = append(events, Event{Type: EvtPadAppended, Pad: next, Level: newState.Level})
		return events, newState, nil

	case CmdTimeout:
		if s.Phase != PhasePlaying {
			return nil, s, ErrGameOver
		}
		newState := cloneState(s)
		newState.Phase = PhaseOver
		events := []Event{
			{Type: EvtGameEnded, Level: s.Level, HighScore: s.HighScore, Reason: "idle timeout"},
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Reduce rebuilds a state by replaying events from an idle board.
func Reduce(events []Event) State {
	s := NewState(0)
	for _, event := range events {
		switch event.Type {
		case EvtGameStarted:
			s.Phase = PhasePlaying
			s.Sequence = nil
			s.Rounds = 0
			if event.HighScore > s.HighScore {
				s.HighScore = event.HighScore
			}
		case EvtPadAppended:
			s.Sequence = append(s.Sequence, event.Pad)
		case EvtRoundCompleted:
			s.Rounds++
		case EvtHighScoreBeaten:
			s.HighScore = event.HighScore
		case EvtGameEnded:
			s.Phase = PhaseOver
		}
	}

	s.Level = len(s.Sequence)
	return s
}

func cloneState(s State) State {
	s.Sequence = slices.Clone(s.Sequence)
	return s
}

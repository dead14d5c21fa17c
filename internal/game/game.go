package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/apiclient"
	"github.com/DoyleJ11/simon-backend/internal/config"
	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/DoyleJ11/simon-backend/internal/synth"
	"github.com/DoyleJ11/simon-backend/pkg/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrQuit is returned by Run when the player asks to leave.
var ErrQuit = errors.New("player quit")

type API interface {
	Reset(ctx context.Context) (types.GameState, error)
	Submit(ctx context.Context, seq []pad.Color) (types.GameState, error)
}

type Synth interface {
	TriggerAttackRelease(note string) error
	Oscillator() synth.Oscillator
	SetOscillator(synth.Oscillator)
}

// Display must be safe for concurrent use; pad highlights are switched off from timer goroutines.
type Display interface {
	SetHighScore(int)
	SetLevel(int)
	SetActive(c pad.Color, on bool)
	SetPadsEnabled(bool)
	SetReplayEnabled(bool)
	SetStartEnabled(bool)
	SetOscillator(synth.Oscillator)
	ShowModal(msg string)
	HideModal()
}

type Game struct {
	api     API
	synth   Synth
	display Display
	inputs  <-chan Input
	clock   clockwork.Clock
	timing  config.Timing
	log     *zap.Logger
	state   types.GameState
}

type Options struct {
	Clock  clockwork.Clock
	Timing config.Timing
	Log    *zap.Logger
}

func New(api API, s Synth, d Display, inputs <-chan Input, opts Options) *Game {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Game{
		api:     api,
		synth:   s,
		display: d,
		inputs:  inputs,
		clock:   opts.Clock,
		timing:  opts.Timing,
		log:     opts.Log,
	}
}

// Run fetches the initial state, waits for start and then plays rounds until the player
// quits or ctx ends.
func (g *Game) Run(ctx context.Context) error {
	g.disablePlayButtons()
	g.display.SetOscillator(g.synth.Oscillator())

	gs, err := g.reset(ctx)
	if err != nil {
		return quitIsNil(err)
	}
	g.state = gs
	g.display.SetHighScore(gs.HighScore)
	g.display.SetStartEnabled(true)

	if err := g.waitFor(ctx, InputStart); err != nil {
		return quitIsNil(err)
	}
	g.enableButtons()

	return quitIsNil(g.loop(ctx))
}

func (g *Game) loop(ctx context.Context) error {
	for {
		seq, err := parseSequence(g.state.Sequence)
		if err != nil {
			g.log.Error("server sent an unplayable sequence", zap.Error(err))
			if err := g.gameOver(ctx, "The server sent an unknown pad. Press R to reset."); err != nil {
				return err
			}
			if g.state, err = g.reset(ctx); err != nil {
				return err
			}
			continue
		}

		g.display.SetHighScore(g.state.HighScore)
		g.display.SetLevel(g.state.Level)
		// small pause after changing the level and high score
		if err := g.sleep(ctx, g.timing.PreRound); err != nil {
			return err
		}
		if err := g.playSequence(ctx, seq); err != nil {
			return err
		}
		userSeq, err := g.recordInput(ctx, seq)
		if err != nil {
			return err
		}
		if err := g.sleep(ctx, g.timing.PostInput); err != nil {
			return err
		}

		next, err := g.api.Submit(ctx, userSeq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Info("round lost", zap.Int("level", g.state.Level), zap.Error(err))
			if err := g.gameOver(ctx, overMessage(err, g.state.Level)); err != nil {
				return err
			}
			if next, err = g.reset(ctx); err != nil {
				return err
			}
		}
		g.state = next
	}
}

func overMessage(err error, level int) string {
	switch {
	case errors.Is(err, apiclient.ErrRejected):
		return fmt.Sprintf("Game over! You reached level %d. Press R to reset.", level)
	case errors.Is(err, apiclient.ErrNoGame):
		return "Your game has ended on the server. Press R to start again."
	default:
		return "Could not reach the game server. Press R to try again."
	}
}

// reset fetches a fresh game, asking the player to retry while the server is unreachable.
func (g *Game) reset(ctx context.Context) (types.GameState, error) {
	for {
		gs, err := g.api.Reset(ctx)
		if err == nil {
			return gs, nil
		}
		if ctx.Err() != nil {
			return types.GameState{}, ctx.Err()
		}
		g.log.Warn("reset failed", zap.Error(err))
		if err := g.gameOver(ctx, "Could not reach the game server. Press R to try again."); err != nil {
			return types.GameState{}, err
		}
	}
}

// gameOver shows the modal and blocks until the player presses reset.
func (g *Game) gameOver(ctx context.Context, msg string) error {
	g.disablePlayButtons()
	g.display.ShowModal(msg)
	if err := g.waitFor(ctx, InputReset); err != nil {
		return err
	}
	g.display.HideModal()
	return nil
}

func (g *Game) playSequence(ctx context.Context, seq []pad.Color) error {
	g.disablePlayButtons()
	for _, c := range seq {
		g.note(c)
		g.display.SetActive(c, true)
		if err := g.sleep(ctx, g.timing.Highlight); err != nil {
			g.display.SetActive(c, false)
			return err
		}
		g.display.SetActive(c, false)
		if err := g.sleep(ctx, g.timing.Step-g.timing.Highlight); err != nil {
			return err
		}
	}
	g.enableButtons()
	return nil
}

// recordInput collects exactly len(seq) pad presses. Replay plays seq again and keeps
// what was entered so far.
func (g *Game) recordInput(ctx context.Context, seq []pad.Color) ([]pad.Color, error) {
	userSeq := make([]pad.Color, 0, len(seq))
	for len(userSeq) < len(seq) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case in, ok := <-g.inputs:
			if !ok {
				return nil, ErrQuit
			}
			switch in.Kind {
			case InputPad:
				g.press(in.Pad)
				userSeq = append(userSeq, in.Pad)
			case InputReplay:
				if err := g.playSequence(ctx, seq); err != nil {
					return nil, err
				}
			default:
				if err := g.ambient(in); err != nil {
					return nil, err
				}
			}
		}
	}
	return userSeq, nil
}

func (g *Game) press(c pad.Color) {
	g.note(c)
	g.display.SetActive(c, true)
	if g.timing.Highlight <= 0 {
		g.display.SetActive(c, false)
		return
	}
	g.clock.AfterFunc(g.timing.Highlight, func() { g.display.SetActive(c, false) })
}

func (g *Game) note(c pad.Color) {
	if err := g.synth.TriggerAttackRelease(c.Note()); err != nil {
		g.log.Warn("play note", zap.String("pad", string(c)), zap.Error(err))
	}
}

// sleep waits d while still honouring quit and oscillator changes. Pad presses are dropped.
func (g *Game) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := g.clock.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			return nil
		case in, ok := <-g.inputs:
			if !ok {
				return ErrQuit
			}
			if err := g.ambient(in); err != nil {
				return err
			}
		}
	}
}

func (g *Game) waitFor(ctx context.Context, kind InputKind) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-g.inputs:
			if !ok {
				return ErrQuit
			}
			if in.Kind == kind {
				return nil
			}
			if err := g.ambient(in); err != nil {
				return err
			}
		}
	}
}

// ambient handles inputs that are valid at any time.
func (g *Game) ambient(in Input) error {
	switch in.Kind {
	case InputQuit:
		return ErrQuit
	case InputOscillator:
		next := g.synth.Oscillator().Next()
		g.synth.SetOscillator(next)
		g.display.SetOscillator(next)
	}
	return nil
}

// enableButtons turns on pads and replay once a game is running.
func (g *Game) enableButtons() {
	g.display.SetReplayEnabled(true)
	g.display.SetStartEnabled(false)
	g.display.SetPadsEnabled(true)
}

func (g *Game) disablePlayButtons() {
	g.display.SetReplayEnabled(false)
	g.display.SetPadsEnabled(false)
}

func parseSequence(raw []string) ([]pad.Color, error) {
	seq := make([]pad.Color, len(raw))
	for i, r := range raw {
		c, ok := pad.Parse(r)
		if !ok {
			return nil, fmt.Errorf("unknown pad %q", r)
		}
		seq[i] = c
	}
	return seq, nil
}

func quitIsNil(err error) error {
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

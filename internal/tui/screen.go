package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/DoyleJ11/simon-backend/internal/synth"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	reset       = "\x1b[0m"
	dim         = "\x1b[2m"
	bold        = "\x1b[1m"
)

// Lit and unlit background colours for each pad.
var padColors = map[pad.Color][2]string{
	pad.Red:    {"\x1b[41m", "\x1b[31m"},
	pad.Yellow: {"\x1b[43m", "\x1b[33m"},
	pad.Green:  {"\x1b[42m", "\x1b[32m"},
	pad.Blue:   {"\x1b[44m", "\x1b[34m"},
}

// Screen is a game.Display that redraws the whole board on every change.
type Screen struct {
	mu        sync.Mutex
	out       io.Writer
	highScore int
	level     int
	active    map[pad.Color]bool
	padsOn    bool
	replayOn  bool
	startOn   bool
	osc       synth.Oscillator
	modal     string
}

func NewScreen(out io.Writer) *Screen {
	return &Screen{out: out, active: make(map[pad.Color]bool)}
}

func (s *Screen) SetHighScore(n int)               { s.update(func() { s.highScore = n }) }
func (s *Screen) SetLevel(n int)                   { s.update(func() { s.level = n }) }
func (s *Screen) SetActive(c pad.Color, on bool)   { s.update(func() { s.active[c] = on }) }
func (s *Screen) SetPadsEnabled(on bool)           { s.update(func() { s.padsOn = on }) }
func (s *Screen) SetReplayEnabled(on bool)         { s.update(func() { s.replayOn = on }) }
func (s *Screen) SetStartEnabled(on bool)          { s.update(func() { s.startOn = on }) }
func (s *Screen) SetOscillator(o synth.Oscillator) { s.update(func() { s.osc = o }) }
func (s *Screen) ShowModal(msg string)             { s.update(func() { s.modal = msg }) }
func (s *Screen) HideModal()                       { s.update(func() { s.modal = "" }) }

func (s *Screen) update(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
	_, _ = io.WriteString(s.out, s.render())
}

func (s *Screen) render() string {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "%sSIMON%s\r\n\r\n", bold, reset)
	fmt.Fprintf(&b, "High score: %d    Level: %d    Sound: %s\r\n\r\n", s.highScore, s.level, s.osc)

	for row := 0; row < 2; row++ {
		for line := 0; line < 3; line++ {
			b.WriteString("  ")
			for col := 0; col < 2; col++ {
				b.WriteString(s.padCell(pad.All[row*2+col], line == 1))
				b.WriteString("  ")
			}
			b.WriteString("\r\n")
		}
		b.WriteString("\r\n")
	}

	b.WriteString(button("Enter: start", s.startOn))
	b.WriteString("   ")
	b.WriteString(button("Space: replay", s.replayOn))
	b.WriteString("   o: sound   Esc: quit\r\n")

	if s.modal != "" {
		line := strings.Repeat("=", len(s.modal)+4)
		fmt.Fprintf(&b, "\r\n%s%s\r\n| %s |\r\n%s%s\r\n", bold, line, s.modal, line, reset)
	}
	return b.String()
}

func (s *Screen) padCell(c pad.Color, label bool) string {
	const width = 14
	text := strings.Repeat(" ", width)
	if label {
		l := fmt.Sprintf("%s [%c]", c, c.Key())
		lead := (width - len(l)) / 2
		text = strings.Repeat(" ", lead) + l + strings.Repeat(" ", width-lead-len(l))
	}

	colors := padColors[c]
	switch {
	case s.active[c]:
		return colors[0] + bold + text + reset
	case !s.padsOn:
		return dim + colors[1] + strings.Replace(text, " ", ".", -1) + reset
	default:
		return colors[1] + strings.Replace(text, " ", "#", -1) + reset
	}
}

func button(label string, enabled bool) string {
	if enabled {
		return bold + label + reset
	}
	return dim + label + reset
}

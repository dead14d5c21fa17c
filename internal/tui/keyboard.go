package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/DoyleJ11/simon-backend/internal/game"
	"github.com/DoyleJ11/simon-backend/internal/pad"
	"golang.org/x/term"
)

const (
	keyCtrlC = 0x03
	keyCtrlD = 0x04
	keyEsc   = 0x1b
)

// MapKey translates a single key byte into a game input.
func MapKey(b byte) (game.Input, bool) {
	if c, ok := pad.ForKey(rune(b)); ok {
		return game.PadInput(c), true
	}
	switch b {
	case '\r', '\n':
		return game.Input{Kind: game.InputStart}, true
	case ' ':
		return game.Input{Kind: game.InputReplay}, true
	case 'r', 'R':
		return game.Input{Kind: game.InputReset}, true
	case 'o', 'O':
		return game.Input{Kind: game.InputOscillator}, true
	case keyCtrlC, keyCtrlD, keyEsc:
		return game.Input{Kind: game.InputQuit}, true
	}
	return game.Input{}, false
}

// ReadInputs forwards key presses from r until ctx ends or r fails, then closes out.
// A lone ESC quits; ESC followed by more bytes in the same read starts an escape
// sequence (arrow keys and the like), which is skipped.
func ReadInputs(ctx context.Context, r io.Reader, out chan<- game.Input) {
	defer close(out)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			if buf[i] == keyEsc && i+1 < n {
				i = escapeEnd(buf[:n], i)
				continue
			}
			in, ok := MapKey(buf[i])
			if !ok {
				continue
			}
			select {
			case out <- in:
			case <-ctx.Done():
				return
			}
		}
		if err != nil || ctx.Err() != nil {
			return
		}
	}
}

// escapeEnd returns the index of the last byte of the escape sequence starting at b[i].
// CSI sequences (ESC [) run to a final byte in 0x40-0x7e, SS3 (ESC O) carries one more
// byte, and anything else is an Alt-modified key.
func escapeEnd(b []byte, i int) int {
	last := len(b) - 1
	switch b[i+1] {
	case '[':
		for j := i + 2; j <= last; j++ {
			if b[j] >= 0x40 && b[j] <= 0x7e {
				return j
			}
		}
		return last
	case 'O':
		return min(i+2, last)
	default:
		return i + 1
	}
}

// Terminal puts a tty into raw mode for single-key input.
type Terminal struct {
	f     *os.File
	state *term.State
}

func OpenTerminal(f *os.File) (*Terminal, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}
	st, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return &Terminal{f: f, state: st}, nil
}

func (t *Terminal) Close() error {
	return term.Restore(int(t.f.Fd()), t.state)
}

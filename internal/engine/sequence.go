package engine

import (
	"fmt"

	"github.com/DoyleJ11/simon-backend/internal/pad"
)

func parseSequence(raw []string) ([]pad.Color, error) {
	seq := make([]pad.Color, 0, len(raw))
	for i, r := range raw {
		c, ok := pad.Parse(r)
		if !ok {
			return nil, fmt.Errorf("%w %q at position %d", ErrUnknownPad, r, i)
		}
		seq = append(seq, c)
	}
	return seq, nil
}

func compareSequence(want, got []pad.Color) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: want %d pads, got %d", ErrLengthMismatch, len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w at position %d", ErrWrongSequence, i)
		}
	}
	return nil
}

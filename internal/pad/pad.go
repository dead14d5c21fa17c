package pad

import "strings"

type Color string

const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
	Blue   Color = "blue"
)

// All lists the pads in board order: top-left, top-right, bottom-left, bottom-right.
var All = []Color{Red, Yellow, Green, Blue}

var notes = map[Color]string{
	Red:    "C4",
	Yellow: "D4",
	Green:  "E4",
	Blue:   "F4",
}

var keys = map[rune]Color{
	'q': Red,
	'w': Yellow,
	'a': Green,
	's': Blue,
}

func Parse(s string) (Color, bool) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	_, ok := notes[c]
	return c, ok
}

func (c Color) Valid() bool {
	_, ok := notes[c]
	return ok
}

// Note is the scientific pitch name the pad plays.
func (c Color) Note() string { return notes[c] }

func (c Color) ElementID() string { return "pad-" + string(c) }

func (c Color) Key() rune {
	for k, v := range keys {
		if v == c {
			return k
		}
	}
	return 0
}

// ForKey maps the q/w/a/s keyboard layout onto the board. Upper case keys also match.
func ForKey(k rune) (Color, bool) {
	if k >= 'A' && k <= 'Z' {
		k += 'a' - 'A'
	}
	c, ok := keys[k]
	return c, ok
}

func Strings(seq []Color) []string {
	out := make([]string, len(seq))
	for i, c := range seq {
		out[i] = string(c)
	}
	return out
}

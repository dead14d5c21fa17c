package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Oscillator string

const (
	Sine     Oscillator = "sine"
	Square   Oscillator = "square"
	Triangle Oscillator = "triangle"
	Sawtooth Oscillator = "sawtooth"
)

var Oscillators = []Oscillator{Sine, Square, Triangle, Sawtooth}

func ParseOscillator(s string) (Oscillator, error) {
	o := Oscillator(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Oscillators {
		if o == known {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown oscillator %q", s)
}

// Next cycles through Oscillators in order.
func (o Oscillator) Next() Oscillator {
	for i, known := range Oscillators {
		if known == o {
			return Oscillators[(i+1)%len(Oscillators)]
		}
	}
	return Sine
}

// sample is one period-normalised value in [-1, 1]; phase is in [0, 1).
func (o Oscillator) sample(phase float64) float64 {
	switch o {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

var semitones = map[byte]int{'C': -9, 'D': -7, 'E': -5, 'F': -4, 'G': -2, 'A': 0, 'B': 2}

// Frequency converts scientific pitch notation ("C4", "F#3", "Bb5") to Hz with A4 = 440.
func Frequency(note string) (float64, error) {
	n := strings.TrimSpace(note)
	if len(n) < 2 {
		return 0, fmt.Errorf("bad note %q", note)
	}
	base, ok := semitones[n[0]&^0x20] // upper-case the letter
	if !ok {
		return 0, fmt.Errorf("bad note letter in %q", note)
	}
	rest := n[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("bad octave in %q: %w", note, err)
	}
	offset := base + (octave-4)*12
	return 440 * math.Pow(2, float64(offset)/12), nil
}

const (
	amplitude = 0.6 * math.MaxInt16
	attack    = 5 * time.Millisecond
	release   = 40 * time.Millisecond
)

// Render produces mono signed 16-bit samples with a linear attack/release envelope.
func Render(o Oscillator, freq float64, d time.Duration, sampleRate int) []int16 {
	total := int(d.Seconds() * float64(sampleRate))
	if total <= 0 || freq <= 0 {
		return nil
	}
	atk := max(1, int(attack.Seconds()*float64(sampleRate)))
	rel := max(1, int(release.Seconds()*float64(sampleRate)))

	out := make([]int16, total)
	step := freq / float64(sampleRate)
	phase := 0.0
	for i := range out {
		env := 1.0
		if i < atk {
			env = float64(i) / float64(atk)
		}
		if left := total - 1 - i; left < rel {
			env = min(env, float64(left)/float64(rel))
		}
		out[i] = int16(amplitude * env * o.sample(phase))
		phase += step
		phase -= math.Floor(phase)
	}
	return out
}

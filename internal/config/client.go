package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Client struct {
	ServerURL  string
	Player     string
	Oscillator string
	// AudioCommand receives raw signed 16-bit little-endian mono PCM on stdin.
	// Empty rings the terminal bell instead.
	AudioCommand []string
	SampleRate   int
	LogFile      string
	LogLevel     string
	Timing       Timing
}

// Timing mirrors the pacing of the browser client.
type Timing struct {
	PreRound   time.Duration // pause after updating level and high score
	Step       time.Duration // from one sequence pad to the next
	Highlight  time.Duration // how long a pad stays lit
	PostInput  time.Duration // pause before submitting the player's input
	NoteLength time.Duration
}

func DefaultClient() Client {
	return Client{
		ServerURL:  "http://localhost:3000",
		Player:     "default",
		Oscillator: "sine",
		SampleRate: 44100,
		LogFile:    "simon-client.log",
		LogLevel:   "info",
		Timing: Timing{
			PreRound:   500 * time.Millisecond,
			Step:       1000 * time.Millisecond,
			Highlight:  400 * time.Millisecond,
			PostInput:  1000 * time.Millisecond,
			NoteLength: 250 * time.Millisecond, // "8n" at 120 bpm
		},
	}
}

type clientFile struct {
	ServerURL    string   `toml:"server_url"`
	Player       string   `toml:"player"`
	Oscillator   string   `toml:"oscillator"`
	AudioCommand []string `toml:"audio_command"`
	SampleRate   int      `toml:"sample_rate"`
	LogFile      string   `toml:"log_file"`
	LogLevel     string   `toml:"log_level"`
	Timing       struct {
		PreRound   string `toml:"pre_round"`
		Step       string `toml:"step"`
		Highlight  string `toml:"highlight"`
		PostInput  string `toml:"post_input"`
		NoteLength string `toml:"note_length"`
	} `toml:"timing"`
}

// LoadClient overlays the TOML file at path onto DefaultClient. A missing file is not an error.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if path == "" {
		return cfg, nil
	}

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Client{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("server_url") {
		cfg.ServerURL = strings.TrimSpace(raw.ServerURL)
	}
	if meta.IsDefined("player") {
		cfg.Player = strings.TrimSpace(raw.Player)
	}
	if meta.IsDefined("oscillator") {
		cfg.Oscillator = strings.TrimSpace(raw.Oscillator)
	}
	if meta.IsDefined("audio_command") {
		cfg.AudioCommand = raw.AudioCommand
	}
	if meta.IsDefined("sample_rate") {
		cfg.SampleRate = raw.SampleRate
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"pre_round", raw.Timing.PreRound, &cfg.Timing.PreRound},
		{"step", raw.Timing.Step, &cfg.Timing.Step},
		{"highlight", raw.Timing.Highlight, &cfg.Timing.Highlight},
		{"post_input", raw.Timing.PostInput, &cfg.Timing.PostInput},
		{"note_length", raw.Timing.NoteLength, &cfg.Timing.NoteLength},
	}
	for _, d := range durations {
		if !meta.IsDefined("timing", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Client{}, fmt.Errorf("parse timing.%s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, cfg.Validate()
}

func (c Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q is not an absolute URL", c.ServerURL)
	}
	if c.Player == "" {
		return errors.New("player must not be empty")
	}
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample_rate %d too low", c.SampleRate)
	}
	if c.Timing.Highlight > c.Timing.Step {
		return fmt.Errorf("timing.highlight (%s) longer than timing.step (%s)", c.Timing.Highlight, c.Timing.Step)
	}
	return nil
}

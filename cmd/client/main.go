package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/simon-backend/internal/apiclient"
	"github.com/DoyleJ11/simon-backend/internal/config"
	"github.com/DoyleJ11/simon-backend/internal/game"
	"github.com/DoyleJ11/simon-backend/internal/logging"
	"github.com/DoyleJ11/simon-backend/internal/synth"
	"github.com/DoyleJ11/simon-backend/internal/tui"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simon:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "simon.toml", "client config file (TOML)")
	server := flag.String("server", "", "game-state service URL (overrides config)")
	player := flag.String("player", "", "player id (overrides config)")
	osc := flag.String("osc", "", "oscillator: sine, square, triangle or sawtooth (overrides config)")
	flag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *player != "" {
		cfg.Player = *player
	}
	if *osc != "" {
		cfg.Oscillator = *osc
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	oscillator, err := synth.ParseOscillator(cfg.Oscillator)
	if err != nil {
		return err
	}

	// The terminal is the UI, so logs go to a file.
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	var sink synth.Sink = synth.Bell{W: os.Stdout}
	if len(cfg.AudioCommand) > 0 {
		pipe, err := synth.NewPipe(cfg.AudioCommand)
		if err != nil {
			return err
		}
		sink = pipe
	}
	syn := synth.New(sink, cfg.SampleRate, cfg.Timing.NoteLength, oscillator, log.Named("synth"))
	defer syn.Close()

	term, err := tui.OpenTerminal(os.Stdin)
	if err != nil {
		return err
	}
	defer term.Close()
	fmt.Print("\x1b[?25l")
	defer fmt.Print("\x1b[?25h\r\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputs := make(chan game.Input, 16)
	go tui.ReadInputs(ctx, os.Stdin, inputs)

	api := apiclient.New(cfg.ServerURL, cfg.Player, apiclient.WithLogger(log.Named("api")))
	g := game.New(api, syn, tui.NewScreen(os.Stdout), inputs, game.Options{
		Timing: cfg.Timing,
		Log:    log.Named("game"),
	})

	log.Info("starting", zap.String("server", cfg.ServerURL), zap.String("player", cfg.Player))
	if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

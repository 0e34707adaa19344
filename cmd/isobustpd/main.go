package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/openisobus/isobustpd/config"
	"github.com/openisobus/isobustpd/driver"
	"github.com/openisobus/isobustpd/tp"
)

func main() {
	configPath := flag.String("config", "isobustpd.toml", "path to the daemon's TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "isobustpd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	bus := driver.NewSocketCAN(cfg.Bus.Interface)
	if err := bus.Init(); err != nil {
		return fmt.Errorf("initializing %s: %w", cfg.Bus.Interface, err)
	}

	peers := driver.NewPeerTable()
	bridge := driver.NewBridge(bus, peers, uint8(cfg.Bus.SelfAddress), cfg.UpdateInterval(), logger)

	engine, err := tp.NewEngine(engineCfg, bridge.Sink, func(msg tp.ReceivedMessage) {
		logger.Info().
			Uint32("pgn", msg.PGN).
			Uint8("source", msg.Source.Address()).
			Int("bytes", len(msg.Data)).
			Msg("reassembled message")
	})
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	engine.Logger = logger
	bridge.SetEngine(engine)

	if err := bus.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", cfg.Bus.Interface, err)
	}
	defer bus.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("interface", cfg.Bus.Interface).
		Uint8("self_address", uint8(cfg.Bus.SelfAddress)).
		Msg("isobustpd started")

	if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(parsed).
		With().Timestamp().Logger()
}

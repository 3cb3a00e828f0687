package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	Config   string `short:"c" long:"config" default:"./" description:"directory containing usbpanel.yaml"`
	LogLevel string `short:"l" long:"log-level" description:"overrides log_level from the config file"`
	Sim      bool   `long:"sim" description:"simulated outputs and displays, software watchdog, websocket link"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	config, err := loadConfig(opts)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Config).Msg("config")
	}

	level, _ := zerolog.ParseLevel(config.LogLevel)
	zerolog.SetGlobalLevel(level)

	panel, err := New(config, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().
		Str("link", config.Link.Kind).
		Str("actuator", config.Actuator.Driver).
		Str("display", config.Display.Driver).
		Str("watchdog", config.Watchdog.Driver).
		Msg("starting")
	panel.Start(context.Background())

	stop := <-stopCh
	log.Info().Str("signal", stop.String()).Msg("exiting")

	panel.Stop()
}

// loadConfig reads the config file, falling back to the defaults in
// simulation mode, and applies the command line overrides.
func loadConfig(opts options) (*PanelConfig, error) {
	config, err := LoadConfig(opts.Config)
	switch {
	case err == nil:
	case opts.Sim && errors.Is(err, fs.ErrNotExist):
		config = DefaultConfig()
	default:
		return nil, err
	}

	if opts.Sim {
		config.Simulate()
	}
	if opts.LogLevel != "" {
		config.LogLevel = opts.LogLevel
	}

	return config, config.Validate()
}

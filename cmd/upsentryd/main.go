// Command upsentryd supervises a HID UPS device: it polls device state,
// raises events on power transitions and runs configured action
// pipelines in response.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"upsentryd/action"
	"upsentryd/collab"
	"upsentryd/config"
	"upsentryd/hostctl"
	"upsentryd/i18n"
	"upsentryd/runner"
	"upsentryd/store"
	"upsentryd/ups"
	"upsentryd/watcher"
)

func main() {
	configPath := flag.String("config", "upsentryd.toml", "path to the daemon's TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("upsentryd exited with error")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	deviceCreator := ups.NewHIDDeviceCreator()
	defer deviceCreator.Close()

	executorHandle, err := ups.StartExecutor(ctx, deviceCreator, logger)
	if err != nil {
		return err
	}

	pipelineStore, err := store.LoadYAMLFile(cfg.Pipelines.Path)
	if err != nil {
		return err
	}

	history := collab.NewRingHistory(500)

	w := watcher.New(executorHandle, history, cfg.Watcher.PollInterval, logger)
	sub := w.Subscribe()
	go w.Run(ctx)

	eng := &action.Executor{
		UPS:         executorHandle,
		Localizer:   i18n.English{},
		HostControl: hostctl.Host{},
		Processes:   hostctl.Process{},
		History:     history,
		Store:       pipelineStore,
		Notify:      action.NewDesktopNotifier(cfg.Notifications.WebhookURL),
		Log:         logger,
	}

	r := runner.New(pipelineStore, eng, logger)
	return r.Run(ctx, sub)
}

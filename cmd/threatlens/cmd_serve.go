package main

// ---------------------------------------------------------------------------
// cmd_serve.go — run the upload API server
// ---------------------------------------------------------------------------

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/threatlens-project/threatlens/internal/api"
	"github.com/threatlens-project/threatlens/internal/core"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	fs.Parse(args)

	cfg, err := core.LoadConfig(envConfig(*configPath))
	if err != nil {
		errorf("loading config: %v", err)
	}

	logger := core.NewLogger(cfg.Logging)

	var bus *core.EventBus
	if cfg.Bus.Enabled {
		bus, err = core.NewEventBus(&cfg.Bus, logger)
		if err != nil {
			errorf("starting event bus: %v", err)
		}
		defer bus.Close()
	}

	var reporter *core.WebhookReporter
	if len(cfg.Reporting.WebhookURLs) > 0 {
		reporter = core.NewWebhookReporter(logger, cfg.Reporting)
		defer reporter.Close()
	} else {
		warnf("no webhook_urls configured — reports are returned to callers only")
	}

	server := api.NewServer(cfg, logger, bus, reporter)
	if err := server.Start(); err != nil {
		errorf("starting server: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	if bus != nil {
		logger.Info().
			Int64("reports_published", bus.Published()).
			Int64("publish_failures", bus.Failed()).
			Msg("event bus stats")
	}
	if err := server.Stop(); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}

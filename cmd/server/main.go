// Package main is the entry point for the CopilotBridge server. It loads
// the configuration, sets up logging, constructs the token broker and usage
// store, and runs the HTTP server until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/luispater/CopilotBridge/internal/api"
	"github.com/luispater/CopilotBridge/internal/auth/copilot"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/logging"
	"github.com/luispater/CopilotBridge/internal/usage"
	"github.com/luispater/CopilotBridge/internal/util"
	"github.com/luispater/CopilotBridge/internal/watcher"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the configuration file")
	flag.Parse()

	logging.SetupBaseLogger()

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		configPath = filepath.Join(wd, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err = logging.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}
	util.SetLogLevel(cfg)

	cfg.TokenCacheFile = util.ExpandHome(cfg.TokenCacheFile)
	cfg.UsageStatsFile = util.ExpandHome(cfg.UsageStatsFile)
	cfg.CopilotConfigDir = util.ExpandHome(cfg.CopilotConfigDir)

	if cfg.AccessToken == "" {
		log.Fatal("access-token must be set in the configuration")
	}

	broker := copilot.NewTokenBroker(cfg)

	var stats *usage.Statistics
	if cfg.UsageStatsFile != "" {
		stats, err = usage.Open(cfg.UsageStatsFile)
		if err != nil {
			log.Fatalf("failed to open usage statistics: %v", err)
		}
		defer func() {
			_ = stats.Close()
		}()
	}

	server := api.NewServer(cfg, broker, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgWatcher := watcher.NewWatcher(configPath, server.UpdateConfig)
	go func() {
		if errWatch := cfgWatcher.Start(ctx); errWatch != nil {
			log.Warnf("config watcher stopped: %v", errWatch)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errChan:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Infof("received signal %s, shutting down", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err = server.Stop(shutdownCtx); err != nil {
			log.Errorf("graceful shutdown failed: %v", err)
		}
	}
}

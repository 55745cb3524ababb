package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbg-research/SMM4H-2025/internal/api"
	"github.com/rbg-research/SMM4H-2025/internal/app"
)

func main() {
	configFile := flag.String("config", "", "config file (default: ./config.yaml, ./config/config.yaml)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(configFile string) error {
	configManager, err := app.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, configManager)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := configManager.GetConfig()
	a.Logger.WithField("port", cfg.Server.Port).Info("Starting insomnia classifier API server")

	server := api.NewServer(configManager, a.Logger, a.Classifier, a.Store)
	if err := server.Start(ctx); err != nil {
		return err
	}

	a.Logger.Info("Server stopped")
	return nil
}

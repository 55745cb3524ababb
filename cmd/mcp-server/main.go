package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbg-research/SMM4H-2025/internal/app"
	"github.com/rbg-research/SMM4H-2025/internal/mcp"
)

func main() {
	configFile := flag.String("config", "", "config file (default: ./config.yaml, ./config/config.yaml)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}

func run(configFile string) error {
	configManager, err := app.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the MCP protocol; keep logs off it.
	if configManager.GetConfig().Logging.Output == "stdout" {
		if err := configManager.Set("logging.output", "stderr"); err != nil {
			return err
		}
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, configManager)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpServer, err := mcp.NewServer(configManager, a.Logger, a.Classifier, a.Vocab, a.Store)
	if err != nil {
		return err
	}

	if err := mcpServer.Start(ctx); err != nil {
		return err
	}

	a.Logger.Info("MCP server stopped")
	return nil
}

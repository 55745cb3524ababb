package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rbg-research/SMM4H-2025/internal/app"
	"github.com/rbg-research/SMM4H-2025/internal/config"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "classifier",
	Short: "Insomnia classifier for clinical notes",
	Long: `Classifies clinical notes for insomnia using one language-model completion
per note followed by deterministic rules:

  Definition 1  sleep difficulty reported by the model
  Definition 2  daytime impairment reported by the model
  Rule A        both definitions hold
  Rule B        a primary insomnia medication is mentioned
  Rule C        a secondary medication is mentioned and a definition holds

Results are written as a combined CSV and three JSON views.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(vocabularyCmd)
}

// loadConfig reads the config file and applies flag overrides, keyed by
// config path. Empty string values are skipped.
func loadConfig(overrides map[string]interface{}) (*config.Manager, error) {
	manager, err := config.NewManagerWithFile(configFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		overrides["logging.level"] = logLevel
	}
	for key, value := range overrides {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		if err := manager.Set(key, value); err != nil {
			return nil, err
		}
	}

	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newApp is swapped in tests.
var newApp = app.New

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

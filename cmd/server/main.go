package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aspada.com/assistant/internal/config"
	"aspada.com/assistant/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Chat assistant for the Aspada site",
	Long: `Answers visitor questions from a question cache, falling back to Gemini
only when no exact or semantically equivalent answer exists, and records
leads and transcripts in the background.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

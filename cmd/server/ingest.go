package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aspada.com/assistant/internal/core"
	"aspada.com/assistant/internal/store"
)

var (
	ingestFile     string
	ingestInterval time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load projects and FAQ answers from a YAML seed file",
	Long: `Upserts the projects listed in the seed file and embeds every FAQ question
that is not cached yet, so the assistant starts with a warm cache.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "seed.yaml", "path to the seed file")
	ingestCmd.Flags().DurationVar(&ingestInterval, "interval", core.DefaultIngestInterval, "minimum delay between embedding calls")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	seed, err := store.LoadSeedFile(ingestFile)
	if err != nil {
		return err
	}

	dbStore, err := store.NewSQLStore(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbStore.Close()

	llmService, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.EmbeddingModel, log)
	if err != nil {
		return err
	}
	defer llmService.Close()

	bar := progressbar.NewOptions(len(seed.FAQ),
		progressbar.OptionSetDescription("Embedding FAQ"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)

	ingester := core.NewIngester(dbStore, llmService, ingestInterval, log)
	ingester.Progress = func() { _ = bar.Add(1) }

	res, err := ingester.Ingest(ctx, seed)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("data ingestion failed: %w", err)
	}

	log.Info("data ingestion complete",
		zap.String("file", ingestFile),
		zap.Int("projects", res.Projects),
		zap.Int("faqCreated", res.FAQCreated),
		zap.Int("faqSkipped", res.FAQSkipped),
		zap.Int("faqFailed", res.FAQFailed))
	return nil
}

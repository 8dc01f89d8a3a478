package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aspada.com/assistant/internal/api"
	"aspada.com/assistant/internal/core"
	"aspada.com/assistant/internal/leads"
	"aspada.com/assistant/internal/store"
	"aspada.com/assistant/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
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

	queue := tasks.NewQueue(tasks.Config{
		Workers:     cfg.Background.Workers,
		QueueSize:   cfg.Background.QueueSize,
		MaxAttempts: cfg.Background.MaxAttempts,
		TaskTimeout: cfg.Background.TaskTimeout,
	}, log)

	deps := core.Deps{
		Store:      dbStore,
		Embedder:   llmService,
		Generator:  llmService,
		Background: queue,
		Logger:     log,
	}

	if cfg.Redis.Enabled {
		rdb, err := store.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.ExactCache = store.NewRedisExactCache(rdb, cfg.Redis.TTL)
		log.Info("redis exact cache enabled", zap.String("address", cfg.Redis.Address))
	}

	if cfg.Leads.SNSTopicARN != "" {
		notifier, err := leads.NewSNSNotifier(ctx, cfg.Leads.AWSRegion, cfg.Leads.SNSTopicARN)
		if err != nil {
			return err
		}
		deps.Notifier = notifier
		log.Info("lead notifications enabled", zap.String("topic", cfg.Leads.SNSTopicARN))
	}

	chatService := core.NewChatService(deps, core.OptionsFromConfig(cfg.Assistant))
	router := api.NewRouter(api.NewAPIHandler(chatService, dbStore, log))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Assistant.EmbedTimeout + cfg.Assistant.GenerateTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	// Requests are done; let queued transcript and lead writes finish.
	if err := queue.Close(shutdownCtx); err != nil {
		log.Warn("abandoning unfinished background tasks", zap.Error(err))
	}

	log.Info("server exiting gracefully")
	return nil
}

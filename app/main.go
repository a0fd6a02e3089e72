package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/inboxsage/inboxsage/app/ai"
	"github.com/inboxsage/inboxsage/app/api"
	"github.com/inboxsage/inboxsage/app/cfg"
	"github.com/inboxsage/inboxsage/app/database"
	"github.com/inboxsage/inboxsage/app/digest"
	"github.com/inboxsage/inboxsage/app/email"
	"github.com/inboxsage/inboxsage/app/feed"
	"github.com/inboxsage/inboxsage/app/scheduler"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting InboxSage server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied", "version", version, "dirty", dirty)

	userRepo := database.NewUserRepo(db)
	topicRepo := database.NewTopicRepo(db)
	sourceRepo := database.NewSourceRepo(db)
	articleRepo := database.NewArticleRepo(db)
	digestRepo := database.NewDigestRepo(db)

	fetcher := feed.NewFetcher(&http.Client{Timeout: 30 * time.Second}, appCfg.UserAgent)
	aggregator := feed.NewAggregator(fetcher, sourceRepo, articleRepo)

	processor := ai.NewProcessor(openai.NewClient(appCfg.OpenAIAPIKey), appCfg.OpenAIModel, articleRepo, userRepo)

	templates, err := digest.LoadTemplates(appCfg.TemplatesFile)
	if err != nil {
		slog.Error("Failed to load digest templates", "error", err)
		os.Exit(1)
	}
	mailer, err := email.NewService(appCfg.ResendAPIKey, appCfg.EmailFrom, appCfg.BaseUrl)
	if err != nil {
		slog.Error("Failed to initialize email service", "error", err)
		os.Exit(1)
	}
	generator := digest.NewGenerator(userRepo, articleRepo, digestRepo, mailer, templates)

	coordinator := scheduler.NewCoordinator(userRepo, digestRepo, aggregator, processor, generator,
		appCfg.WorkerLimit, appCfg.EnableScheduler)
	if coordinator.Enabled() {
		if err := coordinator.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		slog.Info("Scheduler started", "workers", appCfg.WorkerLimit)
	} else {
		slog.Info("Scheduler disabled (ENABLE_SCHEDULER not set)")
	}

	handler := api.NewHandler(userRepo, sourceRepo, topicRepo, digestRepo, coordinator, aggregator, processor, generator, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		slog.Error("Scheduler shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

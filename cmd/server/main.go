package main

import (
	"SimBot/internal/app"
	_ "SimBot/internal/bot/handlers"
	"SimBot/internal/shared/config"
	"SimBot/internal/shared/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode, cfg.LogLevel)
	baseLogger.Info().Msg("Logger initialized")

	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Bool("telegram", cfg.Telegram.Enabled()).
		Str("telegram_mode", cfg.Telegram.Mode).
		Bool("postgres", cfg.Postgres.Enabled()).
		Dur("session_timeout", cfg.SessionDefaultTimeout).
		Msg("Configuration loaded")

	// 3. Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Run every configured event source
	orchestrator := app.NewOrchestrator(cfg, &baseLogger)
	if err := orchestrator.Start(ctx); err != nil {
		baseLogger.Fatal().Err(err).Msg("Application stopped with error")
	}

	baseLogger.Info().Msg("Application shut down")
}

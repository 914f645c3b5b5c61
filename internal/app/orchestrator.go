package app

import (
	"SimBot/internal/adapters/postgres"
	"SimBot/internal/adapters/telegram"
	"SimBot/internal/bot"
	"SimBot/internal/core/ports"
	"SimBot/internal/interceptor"
	"SimBot/internal/listener"
	"SimBot/internal/processor"
	"SimBot/internal/session"
	"SimBot/internal/shared/config"
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrNoEventSource is returned when neither Telegram nor Postgres is configured.
var ErrNoEventSource = errors.New("no event source configured: set TELEGRAM_TOKEN and/or POSTGRES_URL")

// BuildEngine creates the process-scoped registry, chains, session manager
// and processor, and installs every registered handler into them.
// The caller owns the returned processor and must Close it.
func BuildEngine(cfg *config.Config, baseLogger *zerolog.Logger, botClient ports.BotClientPort) (*processor.Processor, error) {
	registry := listener.NewRegistry(baseLogger)
	processing := interceptor.NewProcessingChain(baseLogger)
	listeners := interceptor.NewListenerChain(baseLogger)
	sessions := session.NewManager(baseLogger)

	deps := bot.Deps{
		Bot:            botClient,
		Sessions:       sessions,
		SessionTimeout: cfg.SessionDefaultTimeout,
		Logger:         baseLogger,
	}
	if err := bot.RegisterAll(registry, processing, listeners, deps); err != nil {
		sessions.Close()
		return nil, err
	}

	return processor.New(registry, processing, listeners, sessions, baseLogger), nil
}

// Orchestrator manages all event sources feeding one processor.
type Orchestrator struct {
	cfg        *config.Config
	baseLogger *zerolog.Logger
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(cfg *config.Config, baseLogger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		baseLogger: baseLogger,
	}
}

// Start launches every configured event source and blocks until ctx is
// cancelled or one of them fails. The processor is closed before Start
// returns.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.cfg.Telegram.Enabled() && !o.cfg.Postgres.Enabled() {
		return ErrNoEventSource
	}

	// 1. Outbound client
	var api *tgbotapi.BotAPI
	var client ports.BotClientPort = newDiscardClient(o.baseLogger)
	if o.cfg.Telegram.Enabled() {
		var err error
		api, err = tgbotapi.NewBotAPI(o.cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("connect telegram bot api: %w", err)
		}
		api.Debug = o.cfg.AppEnv == "dev"
		o.baseLogger.Info().Str("username", api.Self.UserName).Msg("Bot API connected")
		client = telegram.NewClient(api, o.baseLogger)
	}

	// 2. Engine
	proc, err := BuildEngine(o.cfg, o.baseLogger, client)
	if err != nil {
		return err
	}
	defer proc.Close()

	var notifications *postgres.NotificationSource
	if o.cfg.Postgres.Enabled() {
		db, err := postgres.NewDB(ctx, o.cfg.Postgres.URL, o.baseLogger)
		if err != nil {
			return err
		}
		defer db.Close()
		notifications = postgres.NewNotificationSource(db, o.cfg.Postgres.Channel, proc, o.cfg.Postgres.WorkerPoolSize, o.baseLogger)
	}

	// 3. Sources
	sources := pool.New().WithContext(ctx).WithCancelOnError()
	if api != nil {
		sources.Go(func(ctx context.Context) error {
			return o.startTelegram(ctx, api, client, proc)
		})
	}
	if notifications != nil {
		sources.Go(notifications.Start)
	}

	err = sources.Wait()
	o.baseLogger.Info().Err(err).Msg("All event sources stopped")
	return err
}

func (o *Orchestrator) startTelegram(ctx context.Context, api *tgbotapi.BotAPI, client ports.BotClientPort, proc *processor.Processor) error {
	log := o.baseLogger.With().Str("source", "telegram").Logger()

	if err := client.SetMenuCommands(ctx, bot.MenuCommands()); err != nil {
		log.Warn().Err(err).Msg("Failed to set menu commands")
	}

	router := telegram.NewRouter(proc, client, &log)
	server := telegram.NewBotServer(api, router, &o.cfg.Telegram, &log)
	return server.Start(ctx)
}

// discardClient stands in for the bot when only the Postgres source runs.
type discardClient struct {
	log zerolog.Logger
}

func newDiscardClient(baseLogger *zerolog.Logger) *discardClient {
	return &discardClient{log: baseLogger.With().Str("component", "discard_client").Logger()}
}

func (c *discardClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	c.log.Debug().Int64("chat_id", params.ChatID).Str("text", params.Text).Msg("Dropping outgoing message")
	return nil
}

func (c *discardClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	return nil
}

func (c *discardClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	return nil
}

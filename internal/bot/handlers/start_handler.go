package handlers

import (
	"SimBot/internal/bot"
	"SimBot/internal/bot/messages"
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/listener"
	"context"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterListener(NewStartListener)
	bot.RegisterMenuCommand(ports.BotCommand{Command: "start", Description: "Start the bot"})
}

// startHandler is the plugin for the /start command.
type startHandler struct {
	log zerolog.Logger
	bot ports.BotClientPort
}

// NewStartListener creates the listener for the /start command.
func NewStartListener(deps bot.Deps) ports.EventListener {
	h := &startHandler{
		log: deps.Logger.With().Str("component", "start_handler").Logger(),
		bot: deps.Bot,
	}
	return listener.New("start", h.Handle,
		listener.WithPriority(0),
		listener.WithTargets(domain.MessageKey),
		listener.WithCommand("start"),
	)
}

// Handle greets the user.
func (h *startHandler) Handle(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
	msg := pctx.Event().(*domain.MessageEvent)
	ctxLogger := h.log.With().Int64("user_id", msg.UserID).Int64("chat_id", msg.ChatID).Logger()

	text := "👋 Welcome to SimBot\\!\n\n"
	if msg.Key().IsSubFrom(domain.FriendMessageKey) {
		text += "Send /register to create your profile\\."
	} else {
		text += "Message me privately to create your profile\\."
	}

	if err := h.bot.SendMessage(ctx, messages.NewBuilder(msg.ChatID).WithText(text).Build()); err != nil {
		ctxLogger.Error().Err(err).Msg("Failed to send welcome message")
		return domain.Empty(), err
	}

	ctxLogger.Info().Msg("Greeted user")
	return domain.Normal("start"), nil
}

package telegram

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Router converts incoming Telegram updates into events and pushes them
// to the event processor.
type Router struct {
	log       zerolog.Logger
	processor ports.EventProcessor
	botClient ports.BotClientPort
}

// NewRouter creates a new update router.
func NewRouter(
	processor ports.EventProcessor,
	botClient ports.BotClientPort,
	baseLogger *zerolog.Logger,
) *Router {
	return &Router{
		log:       baseLogger.With().Str("component", "tg_router").Logger(),
		processor: processor,
		botClient: botClient,
	}
}

// HandleUpdate is the main entry point for a new update from Telegram.
func (r *Router) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	// 1. Convert to one of our events
	event, isSupported := ToEvent(update)
	if !isSupported {
		r.log.Debug().Int("update_id", update.UpdateID).Msg("Received unsupported update type")
		return
	}

	// 2. Add logger context
	ctxLogger := r.log.With().
		Int("update_id", update.UpdateID).
		Str("event_key", event.Key().ID()).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	// 3. Dispatch
	result, err := r.processor.Push(ctx, event)
	if err != nil {
		ctxLogger.Error().Err(err).Msg("Event dispatch failed")
		return
	}
	for _, lerr := range result.Errors() {
		ctxLogger.Warn().Err(lerr).Msg("Listener reported an error")
	}

	// 4. Stop the client-side spinner if no listener did.
	if cb, ok := event.(*domain.CallbackEvent); ok && !answered(result) {
		if err := r.botClient.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: cb.CallbackQueryID}); err != nil {
			ctxLogger.Warn().Err(err).Msg("Failed to answer callback query")
		}
	}
}

// CallbackAnswered is the result value a listener returns once it has
// answered the callback query itself.
type CallbackAnswered struct{}

func answered(result *domain.ProcessingResult) bool {
	for _, res := range result.Results {
		if _, ok := res.Value.(CallbackAnswered); ok {
			return true
		}
	}
	return false
}

// ToEvent converts a tgbotapi.Update into a domain event. Private chats map
// to friend messages, groups and supergroups to group messages and
// channel posts to channel messages.
func ToEvent(update *tgbotapi.Update) (domain.Event, bool) {
	if update == nil {
		return nil, false
	}

	if cb := update.CallbackQuery; cb != nil {
		var chatID int64
		var messageID int
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
			messageID = cb.Message.MessageID
		}
		var userID int64
		if cb.From != nil {
			userID = cb.From.ID
		}
		ev := domain.NewCallbackEvent(cb.ID, chatID, userID, cb.Data,
			domain.WithEventID(cb.ID),
			domain.WithVisibility(domain.VisibilityPrivate),
		)
		ev.MessageID = messageID
		return ev, true
	}

	if update.Message != nil {
		return messageEvent(update.Message)
	}
	if update.ChannelPost != nil {
		return messageEvent(update.ChannelPost)
	}

	return nil, false // Unsupported update
}

func messageEvent(msg *tgbotapi.Message) (domain.Event, bool) {
	if msg.Chat == nil {
		return nil, false
	}

	key := domain.GroupMessageKey
	visibility := domain.VisibilityPublic
	switch {
	case msg.Chat.IsPrivate():
		key = domain.FriendMessageKey
		visibility = domain.VisibilityPrivate
	case msg.Chat.IsChannel():
		key = domain.ChannelMessageKey
	}

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	opts := []domain.EventOption{domain.WithVisibility(visibility)}
	if msg.Date != 0 {
		opts = append(opts, domain.WithTimestamp(time.Unix(int64(msg.Date), 0)))
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	ev := domain.NewMessageEvent(key, msg.Chat.ID, userID, text, opts...)
	ev.MessageID = msg.MessageID
	ev.Command = msg.Command()
	ev.CommandArgs = msg.CommandArguments()
	return ev, true
}

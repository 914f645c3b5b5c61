package telegram

import (
	"SimBot/internal/bot/messages"
	"SimBot/internal/core/ports"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// botClient sends listener replies through the Bot API.
type botClient struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewClient wraps api as the outbound port listeners reply through.
func NewClient(api *tgbotapi.BotAPI, baseLogger *zerolog.Logger) ports.BotClientPort {
	return &botClient{
		api: api,
		log: baseLogger.With().Str("component", "bot_client").Logger(),
	}
}

func (c *botClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = messages.ParseMode(params)
	if markup := replyMarkup(params); markup != nil {
		msg.ReplyMarkup = markup
	}

	return c.request(ctx, "sendMessage", msg, func(e *zerolog.Event) *zerolog.Event {
		return e.Int64("chat_id", params.ChatID)
	})
}

func (c *botClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	menu := make([]tgbotapi.BotCommand, len(commands))
	for i, cmd := range commands {
		menu[i] = tgbotapi.BotCommand{Command: cmd.Command, Description: cmd.Description}
	}

	return c.request(ctx, "setMyCommands", tgbotapi.NewSetMyCommands(menu...), func(e *zerolog.Event) *zerolog.Event {
		return e.Int("commands", len(menu))
	})
}

// AnswerCallbackQuery stops the client-side spinner of a pressed button.
func (c *botClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	answer := tgbotapi.NewCallback(params.CallbackQueryID, params.Text)
	answer.ShowAlert = params.ShowAlert

	return c.request(ctx, "answerCallbackQuery", answer, func(e *zerolog.Event) *zerolog.Event {
		return e.Str("callback_query_id", params.CallbackQueryID)
	})
}

// request performs one Bot API call. Nothing is sent once ctx has ended.
func (c *botClient) request(ctx context.Context, method string, chattable tgbotapi.Chattable, fields func(*zerolog.Event) *zerolog.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	if _, err := c.api.Request(chattable); err != nil {
		fields(c.log.Error().Err(err).Str("method", method)).Msg("Bot API call failed")
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	return nil
}

// replyMarkup returns nil when the message carries no keyboard change.
// RemoveKeyboard wins over any markup.
func replyMarkup(params ports.SendMessageParams) any {
	switch {
	case params.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	case params.ReplyMarkup == nil:
		return nil
	case params.ReplyMarkup.IsInline:
		return tgbotapi.NewInlineKeyboardMarkup(keyboardRows(params.ReplyMarkup.Buttons, inlineButton)...)
	default:
		keyboard := tgbotapi.NewOneTimeReplyKeyboard(keyboardRows(params.ReplyMarkup.Buttons, func(b ports.Button) tgbotapi.KeyboardButton {
			return tgbotapi.NewKeyboardButton(b.Text)
		})...)
		keyboard.ResizeKeyboard = true
		return keyboard
	}
}

func inlineButton(b ports.Button) tgbotapi.InlineKeyboardButton {
	if b.URL != "" {
		return tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL)
	}
	return tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data)
}

func keyboardRows[T any](buttons [][]ports.Button, convert func(ports.Button) T) [][]T {
	rows := make([][]T, len(buttons))
	for i, row := range buttons {
		rows[i] = make([]T, len(row))
		for j, b := range row {
			rows[i][j] = convert(b)
		}
	}
	return rows
}

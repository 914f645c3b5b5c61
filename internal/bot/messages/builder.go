package messages

import (
	"SimBot/internal/core/ports"
	"fmt"
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// DefaultParseMode applies when a reply leaves ParseMode empty.
	DefaultParseMode = tgbotapi.ModeMarkdownV2
	// ParseModePlain sends the text without any formatting.
	ParseModePlain = "plain"
)

// ParseMode returns the Bot API parse_mode for params.
func ParseMode(params ports.SendMessageParams) string {
	switch params.ParseMode {
	case "":
		return DefaultParseMode
	case ParseModePlain:
		return ""
	default:
		return params.ParseMode
	}
}

// Builder assembles the SendMessageParams of one outgoing reply.
// Text is MarkdownV2 unless WithParseMode says otherwise.
type Builder struct {
	params ports.SendMessageParams
}

// NewBuilder starts a reply to chatID.
func NewBuilder(chatID int64) *Builder {
	return &Builder{
		params: ports.SendMessageParams{
			ChatID:    chatID,
			ParseMode: DefaultParseMode,
		},
	}
}

// WithText sets already formatted text.
func (b *Builder) WithText(text string) *Builder {
	b.params.Text = text
	return b
}

// WithTextf formats text with every argument escaped, so user input can be
// interpolated into a MarkdownV2 template.
func (b *Builder) WithTextf(format string, args ...any) *Builder {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = Escape(fmt.Sprint(a))
	}
	b.params.Text = fmt.Sprintf(format, escaped...)
	return b
}

// WithParseMode switches to "HTML", "Markdown" or ParseModePlain.
func (b *Builder) WithParseMode(mode string) *Builder {
	b.params.ParseMode = mode
	return b
}

// WithRemoveKeyboard hides a previously sent reply keyboard.
func (b *Builder) WithRemoveKeyboard() *Builder {
	b.params.RemoveKeyboard = true
	b.params.ReplyMarkup = nil
	return b
}

// WithInlineButtons attaches an inline keyboard, one slice per row.
func (b *Builder) WithInlineButtons(rows [][]ports.Button) *Builder {
	b.params.RemoveKeyboard = false
	b.params.ReplyMarkup = &ports.ReplyMarkup{IsInline: true, Buttons: rows}
	return b
}

// WithReplyButtons lays labels out as a reply keyboard with the given
// number of columns.
func (b *Builder) WithReplyButtons(labels []string, columns int) *Builder {
	var rows [][]ports.Button
	for chunk := range slices.Chunk(labels, max(columns, 1)) {
		row := make([]ports.Button, len(chunk))
		for i, label := range chunk {
			row[i] = ports.Button{Text: label}
		}
		rows = append(rows, row)
	}

	b.params.RemoveKeyboard = false
	b.params.ReplyMarkup = &ports.ReplyMarkup{IsInline: false, Buttons: rows}
	return b
}

func (b *Builder) Build() ports.SendMessageParams {
	return b.params
}

// Escape makes user-supplied text safe inside a MarkdownV2 message.
func Escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

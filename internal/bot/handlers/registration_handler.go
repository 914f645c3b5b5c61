package handlers

import (
	"SimBot/internal/bot"
	"SimBot/internal/bot/messages"
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/listener"
	"SimBot/internal/session"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterListener(NewRegistrationListener)
	bot.RegisterListener(NewCancelListener)
	bot.RegisterMenuCommand(ports.BotCommand{Command: "register", Description: "Create your profile"})
	bot.RegisterMenuCommand(ports.BotCommand{Command: "cancel", Description: "Cancel the current conversation"})
}

const (
	maxNameAttempts = 3
	confirmYes      = "register:yes"
	confirmNo       = "register:no"
)

var (
	errCancelledByUser    = errors.New("cancelled by user")
	errTooManyAttempts    = errors.New("too many invalid answers")
	errUnexpectedCallback = errors.New("unexpected confirmation payload")
)

// Profile is what a completed registration yields.
type Profile struct {
	FirstName string
	LastName  string
}

func registrationSessionID(chatID, userID int64) string {
	return fmt.Sprintf("register:%d:%d", chatID, userID)
}

// registrationHandler runs the /register conversation. Every answer is
// collected through a continuous session keyed by chat and user, so a second
// /register replaces the running conversation.
type registrationHandler struct {
	log      zerolog.Logger
	bot      ports.BotClientPort
	sessions *session.Manager
	timeout  time.Duration
}

// NewRegistrationListener creates the async listener for /register.
func NewRegistrationListener(deps bot.Deps) ports.EventListener {
	h := &registrationHandler{
		log:      deps.Logger.With().Str("component", "reg_handler").Logger(),
		bot:      deps.Bot,
		sessions: deps.Sessions,
		timeout:  deps.SessionTimeout,
	}
	return listener.New("register", h.Handle,
		listener.WithAsync(),
		listener.WithTargets(domain.FriendMessageKey),
		listener.WithCommand("register"),
	)
}

// Handle is the main entry point of the conversation.
func (h *registrationHandler) Handle(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
	msg := pctx.Event().(*domain.MessageEvent)
	sid := registrationSessionID(msg.ChatID, msg.UserID)
	log := h.log.With().Str("session_id", sid).Int64("user_id", msg.UserID).Logger()

	log.Info().Msg("Registration started")

	first, err := h.askName(ctx, msg, sid, "Please reply with your *first name*\\.")
	if err != nil {
		return h.abort(ctx, msg.ChatID, err, log)
	}

	last, err := h.askName(ctx, msg, sid, fmt.Sprintf("Thanks, %s\\. Now your *last name*\\.", messages.Escape(first)))
	if err != nil {
		return h.abort(ctx, msg.ChatID, err, log)
	}

	profile := Profile{FirstName: first, LastName: last}
	confirmed, err := h.confirm(ctx, msg, sid, profile)
	if err != nil {
		return h.abort(ctx, msg.ChatID, err, log)
	}
	if !confirmed {
		log.Info().Msg("Registration discarded")
		return domain.Empty(), h.send(ctx, messages.NewBuilder(msg.ChatID).WithText("Registration discarded\\."))
	}

	welcome := messages.NewBuilder(msg.ChatID).WithTextf("✅ Welcome aboard, %s %s\\!", first, last)
	if err := h.send(ctx, welcome); err != nil {
		return domain.Empty(), err
	}
	log.Info().Msg("Registration completed")
	return domain.Normal(profile), nil
}

// askName prompts until a valid name arrives or the attempts run out.
func (h *registrationHandler) askName(ctx context.Context, msg *domain.MessageEvent, sid, prompt string) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name, err := h.ask(ctx, sid, messages.NewBuilder(msg.ChatID).WithText(prompt), replyFrom(msg.ChatID, msg.UserID))
		if err != nil {
			return "", err
		}
		name = strings.TrimSpace(name)
		if n := utf8.RuneCountInString(name); n >= 2 && n <= 50 {
			return name, nil
		}
		prompt = "Invalid name\\. Please enter between 2 and 50 characters\\."
	}
	return "", errTooManyAttempts
}

// confirm asks the user to approve the profile with an inline keyboard.
func (h *registrationHandler) confirm(ctx context.Context, msg *domain.MessageEvent, sid string, p Profile) (bool, error) {
	prompt := messages.NewBuilder(msg.ChatID).
		WithTextf("Register as *%s %s*?", p.FirstName, p.LastName).
		WithInlineButtons([][]ports.Button{{
			{Text: "Yes", Data: confirmYes},
			{Text: "No", Data: confirmNo},
		}})

	data, err := h.ask(ctx, sid, prompt, buttonFrom(msg.ChatID, msg.UserID, "register:"))
	if err != nil {
		return false, err
	}
	switch data {
	case confirmYes:
		return true, nil
	case confirmNo:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errUnexpectedCallback, data)
	}
}

// ask registers the reply session before the prompt goes out so a fast
// answer cannot slip past it.
func (h *registrationHandler) ask(ctx context.Context, sid string, prompt *messages.Builder, matcher session.Matcher) (string, error) {
	r, err := h.sessions.Waiting(sid, h.timeout, matcher)
	if err != nil {
		return "", err
	}
	if err := h.send(ctx, prompt); err != nil {
		r.Cancel(err)
		return "", err
	}
	return session.ReceiveAs[string](ctx, r)
}

func (h *registrationHandler) send(ctx context.Context, b *messages.Builder) error {
	params := b.Build()
	if err := h.bot.SendMessage(ctx, params); err != nil {
		h.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return err
	}
	return nil
}

// abort tells the user why the conversation ended. Replacement and
// shutdown end it silently.
func (h *registrationHandler) abort(ctx context.Context, chatID int64, cause error, log zerolog.Logger) (domain.EventResult, error) {
	var timeout *domain.SessionTimeoutError
	var replaced *domain.SessionReplacedError

	var text string
	switch {
	case errors.As(cause, &replaced), errors.Is(cause, domain.ErrManagerClosed):
		log.Info().Err(cause).Msg("Registration superseded")
		return domain.Empty(), nil
	case errors.As(cause, &timeout):
		text = "⌛ Registration timed out\\. Send /register to start again\\."
	case errors.Is(cause, errCancelledByUser):
		text = "Registration cancelled\\."
	case errors.Is(cause, errTooManyAttempts):
		text = "Too many invalid answers\\. Send /register to start again\\."
	case errors.Is(cause, domain.ErrSessionCancelled):
		log.Warn().Err(cause).Msg("Registration cancelled")
		return domain.Empty(), nil
	default:
		// Send failures and unexpected input
		return domain.Empty(), cause
	}

	log.Info().Err(cause).Msg("Registration aborted")
	return domain.Empty(), h.send(ctx, messages.NewBuilder(chatID).WithText(text).WithRemoveKeyboard())
}

// replyFrom matches plain text messages of one user in one chat.
func replyFrom(chatID, userID int64) session.Matcher {
	return session.ForKey(domain.MessageKey, func(ctx context.Context, pctx *domain.ProcessingContext, p *session.Provider) error {
		m, ok := pctx.Event().(*domain.MessageEvent)
		if !ok || m.ChatID != chatID || m.UserID != userID || m.IsCommand() {
			return nil
		}
		p.Push(m.Content)
		return nil
	})
}

// buttonFrom matches presses of buttons whose payload starts with prefix.
func buttonFrom(chatID, userID int64, prefix string) session.Matcher {
	return session.ForKey(domain.CallbackKey, func(ctx context.Context, pctx *domain.ProcessingContext, p *session.Provider) error {
		cb, ok := pctx.Event().(*domain.CallbackEvent)
		if !ok || cb.ChatID != chatID || cb.UserID != userID || !strings.HasPrefix(cb.Data, prefix) {
			return nil
		}
		p.Push(cb.Data)
		return nil
	})
}

// cancelHandler is the plugin for /cancel.
type cancelHandler struct {
	log      zerolog.Logger
	bot      ports.BotClientPort
	sessions *session.Manager
}

// NewCancelListener creates the listener for /cancel.
func NewCancelListener(deps bot.Deps) ports.EventListener {
	h := &cancelHandler{
		log:      deps.Logger.With().Str("component", "cancel_handler").Logger(),
		bot:      deps.Bot,
		sessions: deps.Sessions,
	}
	return listener.New("cancel", h.Handle,
		listener.WithPriority(0),
		listener.WithTargets(domain.FriendMessageKey),
		listener.WithCommand("cancel"),
	)
}

// Handle cancels the caller's running conversation, if any.
func (h *cancelHandler) Handle(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
	msg := pctx.Event().(*domain.MessageEvent)

	if r, ok := h.sessions.Receiver(registrationSessionID(msg.ChatID, msg.UserID)); ok && r.TryCancel(errCancelledByUser) {
		h.log.Info().Int64("user_id", msg.UserID).Msg("Conversation cancelled")
		// The conversation itself reports the cancellation.
		return domain.Truncated("cancelled"), nil
	}

	err := h.bot.SendMessage(ctx, messages.NewBuilder(msg.ChatID).WithText("Nothing to cancel\\.").Build())
	if err != nil {
		return domain.Empty(), err
	}
	return domain.Normal("idle"), nil
}

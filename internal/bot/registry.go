package bot

import (
	"SimBot/internal/core/ports"
	"SimBot/internal/interceptor"
	"SimBot/internal/listener"
	"SimBot/internal/session"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Deps is passed to every registered constructor.
type Deps struct {
	Bot            ports.BotClientPort
	Sessions       *session.Manager
	SessionTimeout time.Duration
	Logger         *zerolog.Logger
}

// --- Define types for handler "constructors" ---

type ListenerConstructor func(Deps) ports.EventListener
type ProcessingInterceptorConstructor func(Deps) ports.ProcessingInterceptor
type ListenerInterceptorConstructor func(Deps) ports.ListenerInterceptor

// --- Create the global registries ---

var (
	listenerRegistry              []ListenerConstructor
	processingInterceptorRegistry []ProcessingInterceptorConstructor
	listenerInterceptorRegistry   []ListenerInterceptorConstructor
	menuCommands                  []ports.BotCommand
)

// RegisterListener is called by handlers in their init() function
func RegisterListener(constructor ListenerConstructor) {
	listenerRegistry = append(listenerRegistry, constructor)
}

// RegisterProcessingInterceptor is called by interceptors in their init() function
func RegisterProcessingInterceptor(constructor ProcessingInterceptorConstructor) {
	processingInterceptorRegistry = append(processingInterceptorRegistry, constructor)
}

// RegisterListenerInterceptor is called by interceptors in their init() function
func RegisterListenerInterceptor(constructor ListenerInterceptorConstructor) {
	listenerInterceptorRegistry = append(listenerInterceptorRegistry, constructor)
}

// RegisterMenuCommand adds an entry to the bot's command menu.
func RegisterMenuCommand(cmd ports.BotCommand) {
	menuCommands = append(menuCommands, cmd)
}

// MenuCommands returns the registered command menu in registration order.
func MenuCommands() []ports.BotCommand {
	return append([]ports.BotCommand(nil), menuCommands...)
}

// RegisterAll builds everything registered so far and installs it into
// the process-scoped registry and chains.
func RegisterAll(
	registry *listener.Registry,
	processing *interceptor.ProcessingChain,
	listeners *interceptor.ListenerChain,
	deps Deps,
) error {
	log := deps.Logger.With().Str("component", "handler_registry").Logger()

	for _, constructor := range processingInterceptorRegistry {
		if err := processing.Register(constructor(deps)); err != nil {
			return fmt.Errorf("register processing interceptor: %w", err)
		}
	}
	for _, constructor := range listenerInterceptorRegistry {
		if err := listeners.Register(constructor(deps)); err != nil {
			return fmt.Errorf("register listener interceptor: %w", err)
		}
	}
	for _, constructor := range listenerRegistry {
		if err := registry.Register(constructor(deps)); err != nil {
			return fmt.Errorf("register listener: %w", err)
		}
	}

	log.Info().
		Int("listeners", len(listenerRegistry)).
		Int("processing_interceptors", len(processingInterceptorRegistry)).
		Int("listener_interceptors", len(listenerInterceptorRegistry)).
		Msg("Registered all handlers")
	return nil
}

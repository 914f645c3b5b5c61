package app

import (
	_ "SimBot/internal/bot/handlers"
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/shared/config"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine(t *testing.T) {
	nopLogger := zerolog.Nop()
	cfg := &config.Config{SessionDefaultTimeout: time.Minute}

	proc, err := BuildEngine(cfg, &nopLogger, newDiscardClient(&nopLogger))
	require.NoError(t, err)
	defer proc.Close()

	for _, id := range []string{"start", "register", "cancel"} {
		_, ok := proc.Registry().Get(id)
		assert.True(t, ok, "listener %q is registered", id)
	}
	assert.True(t, proc.IsProcessable(domain.FriendMessageKey))
	assert.False(t, proc.IsProcessable(domain.CallbackKey))

	ev := domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, "/start")
	ev.Command = "start"
	res, err := proc.Push(context.Background(), ev)
	require.NoError(t, err)

	var values []any
	for _, r := range res.Results {
		if r.Kind == domain.ResultNormal {
			values = append(values, r.Value)
		}
	}
	assert.Equal(t, []any{"start"}, values)
	assert.Empty(t, res.Errors())
}

func TestBuildEngine_EachCallIsIsolated(t *testing.T) {
	nopLogger := zerolog.Nop()
	cfg := &config.Config{SessionDefaultTimeout: time.Minute}

	first, err := BuildEngine(cfg, &nopLogger, newDiscardClient(&nopLogger))
	require.NoError(t, err)
	first.Close()

	second, err := BuildEngine(cfg, &nopLogger, newDiscardClient(&nopLogger))
	require.NoError(t, err)
	defer second.Close()

	_, err = first.Push(context.Background(), domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, "hi"))
	assert.ErrorIs(t, err, domain.ErrProcessorClosed)
	_, err = second.Push(context.Background(), domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, "hi"))
	assert.NoError(t, err)
}

func TestOrchestrator_NoSources(t *testing.T) {
	nopLogger := zerolog.Nop()
	o := NewOrchestrator(&config.Config{}, &nopLogger)

	assert.ErrorIs(t, o.Start(context.Background()), ErrNoEventSource)
}

func TestDiscardClient(t *testing.T) {
	nopLogger := zerolog.Nop()
	var client ports.BotClientPort = newDiscardClient(&nopLogger)

	assert.NoError(t, client.SendMessage(context.Background(), ports.SendMessageParams{ChatID: 1, Text: "x"}))
	assert.NoError(t, client.AnswerCallbackQuery(context.Background(), ports.AnswerCallbackParams{CallbackQueryID: "q"}))
	assert.NoError(t, client.SetMenuCommands(context.Background(), nil))
}

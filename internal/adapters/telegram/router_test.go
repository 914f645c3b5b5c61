package telegram

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"SimBot/internal/shared/config"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockEventProcessor is a mock for ports.EventProcessor
type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Push(ctx context.Context, event domain.Event) (*domain.ProcessingResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingResult), args.Error(1)
}

// MockBotClient is a mock for the BotClientPort
type MockBotClient struct {
	mock.Mock
}

func (m *MockBotClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBotClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBotClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	args := m.Called(ctx, commands)
	return args.Error(0)
}

// --- Fixtures ---

func commandMessage(chatType string, text string, cmdLen int) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 42},
		Date:      1700000000,
		Chat:      &tgbotapi.Chat{ID: 1001, Type: chatType},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func textMessage(chatType string, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 8,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 1001, Type: chatType},
		Text:      text,
	}
}

// --- Tests ---

func TestToEvent_Messages(t *testing.T) {
	cases := []struct {
		chatType   string
		key        *domain.Key
		visibility domain.Visibility
	}{
		{"private", domain.FriendMessageKey, domain.VisibilityPrivate},
		{"group", domain.GroupMessageKey, domain.VisibilityPublic},
		{"supergroup", domain.GroupMessageKey, domain.VisibilityPublic},
		{"channel", domain.ChannelMessageKey, domain.VisibilityPublic},
	}
	for _, tc := range cases {
		t.Run(tc.chatType, func(t *testing.T) {
			ev, ok := ToEvent(&tgbotapi.Update{Message: textMessage(tc.chatType, "hello")})
			require.True(t, ok)

			msg, ok := ev.(*domain.MessageEvent)
			require.True(t, ok)
			assert.Same(t, tc.key, msg.Key())
			assert.Equal(t, tc.visibility, msg.Visibility())
			assert.Equal(t, "hello", msg.Text())
			assert.Equal(t, int64(1001), msg.ChatID)
			assert.Equal(t, int64(42), msg.UserID)
			assert.Equal(t, 8, msg.MessageID)
			assert.False(t, msg.IsCommand())
		})
	}
}

func TestToEvent_Command(t *testing.T) {
	ev, ok := ToEvent(&tgbotapi.Update{Message: commandMessage("private", "/start ref42", 6)})
	require.True(t, ok)

	msg := ev.(*domain.MessageEvent)
	assert.Equal(t, "start", msg.Command)
	assert.Equal(t, "ref42", msg.CommandArgs)
	assert.Equal(t, "/start ref42", msg.Text())
	assert.Equal(t, time.Unix(1700000000, 0), msg.Timestamp())
}

func TestToEvent_ChannelPost(t *testing.T) {
	post := textMessage("channel", "news")
	post.From = nil

	ev, ok := ToEvent(&tgbotapi.Update{ChannelPost: post})
	require.True(t, ok)
	msg := ev.(*domain.MessageEvent)
	assert.Same(t, domain.ChannelMessageKey, msg.Key())
	assert.Zero(t, msg.UserID)
}

func TestToEvent_Callback(t *testing.T) {
	ev, ok := ToEvent(&tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cbq-1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 1001, Type: "private"}},
		Data:    "confirm:yes",
	}})
	require.True(t, ok)

	cb, ok := ev.(*domain.CallbackEvent)
	require.True(t, ok)
	assert.Equal(t, "cbq-1", cb.ID())
	assert.Equal(t, "cbq-1", cb.CallbackQueryID)
	assert.Equal(t, "confirm:yes", cb.Text())
	assert.Equal(t, 9, cb.MessageID)
	assert.True(t, cb.Key().IsSubFrom(domain.RootKey))
}

func TestToEvent_Unsupported(t *testing.T) {
	_, ok := ToEvent(&tgbotapi.Update{UpdateID: 1})
	assert.False(t, ok)
	_, ok = ToEvent(nil)
	assert.False(t, ok)
	_, ok = ToEvent(&tgbotapi.Update{Message: &tgbotapi.Message{Text: "no chat"}})
	assert.False(t, ok)
}

func TestRouter_HandleUpdate(t *testing.T) {
	nopLogger := zerolog.Nop()

	t.Run("pushes converted event", func(t *testing.T) {
		proc := new(MockEventProcessor)
		client := new(MockBotClient)
		r := NewRouter(proc, client, &nopLogger)

		proc.On("Push", mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
			msg, ok := ev.(*domain.MessageEvent)
			return ok && msg.Command == "start" && msg.Key() == domain.FriendMessageKey
		})).Return(domain.NewProcessingResult(nil, []domain.EventResult{domain.Normal("ok")}), nil).Once()

		r.HandleUpdate(context.Background(), &tgbotapi.Update{Message: commandMessage("private", "/start", 6)})

		proc.AssertExpectations(t)
		client.AssertNotCalled(t, "AnswerCallbackQuery", mock.Anything, mock.Anything)
	})

	t.Run("ignores unsupported updates", func(t *testing.T) {
		proc := new(MockEventProcessor)
		r := NewRouter(proc, new(MockBotClient), &nopLogger)

		r.HandleUpdate(context.Background(), &tgbotapi.Update{UpdateID: 3})
		proc.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
	})

	t.Run("dispatch error is logged only", func(t *testing.T) {
		proc := new(MockEventProcessor)
		r := NewRouter(proc, new(MockBotClient), &nopLogger)
		proc.On("Push", mock.Anything, mock.Anything).Return(nil, errors.New("interceptor said no")).Once()

		assert.NotPanics(t, func() {
			r.HandleUpdate(context.Background(), &tgbotapi.Update{Message: textMessage("group", "hi")})
		})
		proc.AssertExpectations(t)
	})

	t.Run("unanswered callback gets answered", func(t *testing.T) {
		proc := new(MockEventProcessor)
		client := new(MockBotClient)
		r := NewRouter(proc, client, &nopLogger)

		proc.On("Push", mock.Anything, mock.Anything).Return(domain.NewProcessingResult(nil, nil), nil).Once()
		client.On("AnswerCallbackQuery", mock.Anything, ports.AnswerCallbackParams{CallbackQueryID: "cbq-2"}).Return(nil).Once()

		r.HandleUpdate(context.Background(), &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cbq-2", Data: "x"}})
		client.AssertExpectations(t)
	})

	t.Run("answered callback is left alone", func(t *testing.T) {
		proc := new(MockEventProcessor)
		client := new(MockBotClient)
		r := NewRouter(proc, client, &nopLogger)

		proc.On("Push", mock.Anything, mock.Anything).
			Return(domain.NewProcessingResult(nil, []domain.EventResult{domain.Normal(CallbackAnswered{})}), nil).Once()

		r.HandleUpdate(context.Background(), &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cbq-3", Data: "x"}})
		client.AssertNotCalled(t, "AnswerCallbackQuery", mock.Anything, mock.Anything)
	})
}

func TestBotServer_Dispatch(t *testing.T) {
	nopLogger := zerolog.Nop()
	proc := new(MockEventProcessor)

	var mu sync.Mutex
	seen := map[int]bool{}
	proc.On("Push", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		msg := args.Get(1).(*domain.MessageEvent)
		mu.Lock()
		seen[msg.MessageID] = true
		mu.Unlock()
	}).Return(domain.NewProcessingResult(nil, nil), nil)

	s := NewBotServer(nil, NewRouter(proc, new(MockBotClient), &nopLogger), &config.TelegramConfig{WorkerPoolSize: 3}, &nopLogger)

	updates := make(chan tgbotapi.Update, 10)
	for i := 1; i <= 10; i++ {
		msg := textMessage("group", "hi")
		msg.MessageID = i
		updates <- tgbotapi.Update{UpdateID: i, Message: msg}
	}
	close(updates)

	// Returns once the channel is drained and every worker finished.
	s.dispatch(context.Background(), updates)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10)
	proc.AssertNumberOfCalls(t, "Push", 10)
}

func TestBotServer_DispatchStopsOnCancel(t *testing.T) {
	nopLogger := zerolog.Nop()
	s := NewBotServer(nil, NewRouter(new(MockEventProcessor), new(MockBotClient), &nopLogger), &config.TelegramConfig{WorkerPoolSize: 1}, &nopLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.dispatch(ctx, make(chan tgbotapi.Update))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not stop after cancel")
	}
}

package postgres

import (
	"SimBot/internal/core/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification_Message(t *testing.T) {
	ev, err := ParseNotification(`{
		"key": "api.group_message",
		"id": "evt-1",
		"text": "hello bot",
		"chat_id": -100123,
		"user_id": 42,
		"message_id": 7,
		"visibility": "internal",
		"timestamp": 1700000000
	}`)
	require.NoError(t, err)

	msg, ok := ev.(*domain.MessageEvent)
	require.True(t, ok)
	assert.Same(t, domain.GroupMessageKey, msg.Key())
	assert.Equal(t, "evt-1", msg.ID())
	assert.Equal(t, "hello bot", msg.Text())
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, int64(42), msg.UserID)
	assert.Equal(t, 7, msg.MessageID)
	assert.Equal(t, domain.VisibilityInternal, msg.Visibility())
	assert.Equal(t, time.Unix(1700000000, 0), msg.Timestamp())
}

func TestParseNotification_NonMessage(t *testing.T) {
	ev, err := ParseNotification(`{"key":"api.friend_request","timestamp":"2024-01-02T15:04:05Z"}`)
	require.NoError(t, err)

	_, isMessage := ev.(*domain.MessageEvent)
	assert.False(t, isMessage)
	assert.True(t, ev.Key().IsSubFrom(domain.RequestKey))
	assert.NotEmpty(t, ev.ID())
	assert.Equal(t, domain.VisibilityPublic, ev.Visibility())
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), ev.Timestamp().UTC())
}

func TestParseNotification_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":       `hello`,
		"missing key":    `{"text":"x"}`,
		"unknown key":    `{"key":"api.nope"}`,
		"bad visibility": `{"key":"api.root","visibility":"secret"}`,
		"bad timestamp":  `{"key":"api.root","timestamp":"yesterday"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNotification(payload)
			assert.Error(t, err)
		})
	}
}

func TestEncodeNotification_ReadBack(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	original := domain.NewMessageEvent(domain.FriendMessageKey, 1001, 42, `say "hi"`,
		domain.WithEventID("evt-9"),
		domain.WithVisibility(domain.VisibilityPrivate),
		domain.WithTimestamp(ts),
	)
	original.MessageID = 3

	payload, err := EncodeNotification(original)
	require.NoError(t, err)

	ev, err := ParseNotification(payload)
	require.NoError(t, err)
	msg := ev.(*domain.MessageEvent)
	assert.Equal(t, "evt-9", msg.ID())
	assert.Same(t, domain.FriendMessageKey, msg.Key())
	assert.Equal(t, `say "hi"`, msg.Text())
	assert.Equal(t, int64(1001), msg.ChatID)
	assert.Equal(t, 3, msg.MessageID)
	assert.Equal(t, domain.VisibilityPrivate, msg.Visibility())
	assert.True(t, ts.Equal(msg.Timestamp()))
}

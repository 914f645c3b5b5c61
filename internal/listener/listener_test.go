package listener

import (
	"SimBot/internal/core/domain"
	"SimBot/internal/core/ports"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	l := New("", noop)

	assert.NotEmpty(t, l.ID())
	assert.Equal(t, ports.PriorityLast, l.Priority())
	assert.False(t, l.IsAsync())
	assert.True(t, l.IsTarget(domain.FriendRequestKey))
	assert.False(t, l.IsTarget(nil))
}

func TestNew_Attributes(t *testing.T) {
	owner := domain.NewAttributeKey[string]("owner")
	l := New("l", noop, WithAttribute(owner, "ops"), WithAsync())

	v, ok := domain.GetAttribute(l, owner)
	assert.True(t, ok)
	assert.Equal(t, "ops", v)
	assert.True(t, l.IsAsync())
}

func TestKeyword_Match(t *testing.T) {
	cases := []struct {
		mode  MatchMode
		text  string
		input string
		want  bool
	}{
		{MatchEquals, "hi", "hi", true},
		{MatchEquals, "hi", "Hi", false},
		{MatchEqualsIgnoreCase, "hi", "Hi", true},
		{MatchStartsWith, "/echo", "/echo hello", true},
		{MatchEndsWith, "?", "why?", true},
		{MatchContains, "bot", "hello bot!", true},
		{MatchRegex, `\d+`, "123", true},
		{MatchRegex, `\d+`, "a123", false},
		{MatchRegexContains, `\d+`, "a123", true},
	}
	for _, tc := range cases {
		k := MustKeyword(tc.mode, tc.text)
		assert.Equal(t, tc.want, k.Match(tc.input), "mode=%d text=%q input=%q", tc.mode, tc.text, tc.input)
	}

	_, err := NewKeyword(MatchRegex, "(")
	assert.Error(t, err)
}

func TestWithKeyword_Filter(t *testing.T) {
	called := 0
	l := New("kw", func(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
		called++
		return domain.Normal("matched"), nil
	}, WithKeyword(MustKeyword(MatchStartsWith, "ping")))

	ctx := context.Background()

	res, err := l.Invoke(ctx, domain.NewProcessingContext(domain.NewMessageEvent(domain.GroupMessageKey, 1, 2, "  ping please")))
	require.NoError(t, err)
	assert.Equal(t, "matched", res.Value)

	res, err = l.Invoke(ctx, domain.NewProcessingContext(domain.NewMessageEvent(domain.GroupMessageKey, 1, 2, "pong")))
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())

	// No text content at all
	res, err = l.Invoke(ctx, domain.NewProcessingContext(domain.NewEvent(domain.RequestKey)))
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())

	assert.Equal(t, 1, called)
}

func TestWithCommand_Filter(t *testing.T) {
	l := New("cmd", func(ctx context.Context, pctx *domain.ProcessingContext) (domain.EventResult, error) {
		return domain.Normal("start"), nil
	}, WithCommand("start"))

	ev := domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, "/start")
	ev.Command = "start"
	res, err := l.Invoke(context.Background(), domain.NewProcessingContext(ev))
	require.NoError(t, err)
	assert.Equal(t, "start", res.Value)

	plain := domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, "start")
	res, err = l.Invoke(context.Background(), domain.NewProcessingContext(plain))
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
}

package session

import (
	"SimBot/internal/core/domain"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	nopLogger := zerolog.Nop()
	return NewManager(&nopLogger)
}

// pushText completes the session with the event text.
func pushText(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error {
	if text, ok := pctx.TextContent(); ok {
		p.Push(text)
	}
	return nil
}

func textContext(text string) *domain.ProcessingContext {
	return domain.NewProcessingContext(domain.NewMessageEvent(domain.FriendMessageKey, 1, 2, text))
}

func TestManager_WaitingThenProcess_RoundTrip(t *testing.T) {
	m := newTestManager()

	r, err := m.Waiting("s1", 0, pushText)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	_, hasDeadline := r.Deadline()
	assert.False(t, hasDeadline)

	m.Process(context.Background(), textContext("hello"))

	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, StateCompleted, r.State())

	// Removed once terminal
	assert.Equal(t, 0, m.Len())
	_, ok := m.Provider("s1")
	assert.False(t, ok)
	_, ok = m.Receiver("s1")
	assert.False(t, ok)
}

func TestManager_UnmatchedStaysPending(t *testing.T) {
	m := newTestManager()

	r, err := m.Waiting("s1", 0, ForKey(domain.GroupMessageKey, pushText))
	require.NoError(t, err)

	m.Process(context.Background(), textContext("private"))
	assert.Equal(t, StatePending, r.State())

	_, ok := m.Provider("s1")
	assert.True(t, ok)

	m.Process(context.Background(), domain.NewProcessingContext(domain.NewMessageEvent(domain.GroupMessageKey, 1, 2, "group")))
	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "group", v)
}

func TestManager_PushError(t *testing.T) {
	m := newTestManager()
	boom := errors.New("bad reply")

	r, err := m.Waiting("s1", 0, func(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error {
		p.PushError(boom)
		return nil
	})
	require.NoError(t, err)

	m.Process(context.Background(), textContext("x"))

	_, err = r.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateCompleted, r.State())
}

func TestManager_OneEventResolvesMany(t *testing.T) {
	m := newTestManager()

	r1, err := m.Waiting("a", 0, pushText)
	require.NoError(t, err)
	r2, err := m.Waiting("b", 0, pushText)
	require.NoError(t, err)
	r3, err := m.Waiting("c", 0, ForKey(domain.RequestKey, pushText))
	require.NoError(t, err)

	m.Process(context.Background(), textContext("hi"))

	assert.Equal(t, StateCompleted, r1.State())
	assert.Equal(t, StateCompleted, r2.State())
	assert.Equal(t, StatePending, r3.State())
	assert.Equal(t, 1, m.Len())
}

func TestManager_Replacement(t *testing.T) {
	m := newTestManager()

	var oldCompletion atomic.Value
	old, err := m.Waiting("S", 0, pushText)
	require.NoError(t, err)
	oldProvider, ok := m.Provider("S")
	require.True(t, ok)
	oldProvider.OnCompletion(func(s State) { oldCompletion.Store(s) })

	fresh, err := m.Waiting("S", 0, pushText)
	require.NoError(t, err)

	// The old one is already cancelled when Waiting returns
	select {
	case <-old.Done():
	default:
		t.Fatal("old session still pending after replacement")
	}
	_, err = old.Await(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionCancelled)
	var replaced *domain.SessionReplacedError
	assert.ErrorAs(t, err, &replaced)
	assert.Equal(t, StateReplaced, old.State())
	assert.Equal(t, StateReplaced, oldCompletion.Load())

	// Pushing through the stale provider is a no-op
	assert.False(t, oldProvider.Push("late"))

	// Only the new session is resolvable under S
	assert.Equal(t, 1, m.Len())
	m.Process(context.Background(), textContext("answer"))
	v, err := fresh.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "answer", v)
}

func TestManager_Timeout(t *testing.T) {
	m := newTestManager()

	start := time.Now()
	r, err := m.Waiting("slow", 100*time.Millisecond, pushText)
	require.NoError(t, err)
	deadline, ok := r.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, start.Add(100*time.Millisecond), deadline, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = r.Await(ctx)

	var timeout *domain.SessionTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.ErrorIs(t, err, domain.ErrSessionCancelled)
	assert.LessOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, StateTimedOut, r.State())
	assert.Equal(t, 0, m.Len())
}

func TestManager_TimerDisarmedOnCompletion(t *testing.T) {
	m := newTestManager()

	r, err := m.Waiting("quick", 30*time.Millisecond, pushText)
	require.NoError(t, err)
	m.Process(context.Background(), textContext("done"))

	time.Sleep(60 * time.Millisecond)
	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, StateCompleted, r.State())
}

func TestManager_ReceiverCancel(t *testing.T) {
	m := newTestManager()
	r, err := m.Waiting("s", 0, pushText)
	require.NoError(t, err)

	reason := errors.New("user left")
	assert.True(t, r.TryCancel(reason))
	assert.False(t, r.TryCancel(reason))

	_, err = r.Await(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionCancelled)
	assert.ErrorIs(t, err, reason)
	assert.Equal(t, StateCancelled, r.State())
	assert.Equal(t, 0, m.Len())
}

func TestManager_WaitingFor(t *testing.T) {
	m := newTestManager()

	t.Run("resolves with pushed value", func(t *testing.T) {
		done := make(chan string, 1)
		go func() {
			v, err := WaitFor[string](context.Background(), m, "wf", 0, pushText)
			assert.NoError(t, err)
			done <- v
		}()

		require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
		m.Process(context.Background(), textContext("reply"))

		select {
		case v := <-done:
			assert.Equal(t, "reply", v)
		case <-time.After(time.Second):
			t.Fatal("WaitFor did not return")
		}
	})

	t.Run("ctx cancellation cancels the session", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := m.WaitingFor(ctx, "wf2", 0, pushText)
		assert.ErrorIs(t, err, domain.ErrSessionCancelled)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("wrong value type", func(t *testing.T) {
		go func() {
			require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
			p, ok := m.Provider("typed")
			if ok {
				p.Push(42)
			}
		}()
		_, err := WaitFor[string](context.Background(), m, "typed", time.Second, pushText)
		assert.Error(t, err)
	})
}

func TestManager_MatcherFailuresKeepSessionPending(t *testing.T) {
	m := newTestManager()

	r1, err := m.Waiting("err", 0, func(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error {
		return errors.New("matcher failed")
	})
	require.NoError(t, err)
	r2, err := m.Waiting("panic", 0, func(ctx context.Context, pctx *domain.ProcessingContext, p *Provider) error {
		panic("matcher panicked")
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() { m.Process(context.Background(), textContext("x")) })
	assert.Equal(t, StatePending, r1.State())
	assert.Equal(t, StatePending, r2.State())
}

func TestManager_Close(t *testing.T) {
	m := newTestManager()
	r, err := m.Waiting("s", time.Minute, pushText)
	require.NoError(t, err)

	m.Close()
	m.Close()

	_, err = r.Await(context.Background())
	assert.ErrorIs(t, err, domain.ErrManagerClosed)
	assert.Equal(t, StateCancelled, r.State())

	_, err = m.Waiting("again", 0, pushText)
	assert.ErrorIs(t, err, domain.ErrManagerClosed)

	_, err = m.Waiting("nil-matcher", 0, nil)
	assert.Error(t, err)
}

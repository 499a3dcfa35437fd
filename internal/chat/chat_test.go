package chat

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replies with the queued results in order, echoing once the queue is empty.
type scripted struct {
	mu      sync.Mutex
	results []error
	prompts []string
	regens  int
	block   chan struct{}
}

func (s *scripted) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if IsRegenerate(ctx) {
		s.regens++
	}
	if len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if err != nil {
			return "", err
		}
	}
	return "reply to " + prompt, nil
}

func newTestService(r Responder, perMinute int) *Service {
	return NewService(r, Options{MessagesPerMinute: perMinute, Logger: shared.NewLogger(&bytes.Buffer{})})
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("History Starts With Greeting", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)

		history := svc.History("s1")
		require.Len(t, history, 1)
		assert.Equal(t, models.RoleAssistant, history[0].Role)
		assert.Equal(t, Greeting, history[0].Content)
	})

	t.Run("Send Appends Both Messages", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)

		reply, err := svc.Send(ctx, "s1", "  什么是整流电路？ ")
		require.NoError(t, err)
		assert.Equal(t, "reply to 什么是整流电路？", reply.Content)

		history := svc.History("s1")
		require.Len(t, history, 3)
		assert.Equal(t, models.RoleUser, history[1].Role)
		assert.Equal(t, "什么是整流电路？", history[1].Content)
		assert.Equal(t, reply.ID, history[2].ID)
	})

	t.Run("Send Failure Restores Input", func(t *testing.T) {
		svc := newTestService(&scripted{results: []error{errors.New("network down")}}, 0)

		_, err := svc.Send(ctx, "s1", "hello")
		require.Error(t, err)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, "hello", sendErr.Input)
		assert.True(t, sendErr.Retryable)
		assert.ErrorIs(t, err, shared.ErrTransientSend)

		assert.Len(t, svc.History("s1"), 1, "failed user message should be removed")

		_, err = svc.Send(ctx, "s1", sendErr.Input)
		require.NoError(t, err)
		assert.Len(t, svc.History("s1"), 3)
	})

	t.Run("Send Rejects Empty Input", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)

		_, err := svc.Send(ctx, "s1", "   ")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Sessions Are Independent", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)

		_, err := svc.Send(ctx, "a", "one")
		require.NoError(t, err)

		assert.Len(t, svc.History("a"), 3)
		assert.Len(t, svc.History("b"), 1)
		assert.Equal(t, 2, svc.Len())
	})

	t.Run("Rate Limited", func(t *testing.T) {
		svc := newTestService(&scripted{}, 2)

		_, err := svc.Send(ctx, "s1", "one")
		require.NoError(t, err)
		_, err = svc.Send(ctx, "s1", "two")
		require.NoError(t, err)

		_, err = svc.Send(ctx, "s1", "three")
		assert.ErrorIs(t, err, shared.ErrRateLimited)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, "three", sendErr.Input)

		_, err = svc.Send(ctx, "s2", "other session")
		assert.NoError(t, err)
	})

	t.Run("Concurrent Send Rejected While Pending", func(t *testing.T) {
		r := &scripted{block: make(chan struct{})}
		svc := newTestService(r, 0)

		done := make(chan error, 1)
		go func() {
			_, err := svc.Send(ctx, "s1", "first")
			done <- err
		}()

		require.Eventually(t, func() bool { return len(svc.History("s1")) == 2 }, time.Second, time.Millisecond)

		_, err := svc.Send(ctx, "s1", "second")
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		close(r.block)
		require.NoError(t, <-done)
		assert.Len(t, svc.History("s1"), 3)
	})

	t.Run("Regenerate", func(t *testing.T) {
		r := &scripted{}
		svc := newTestService(r, 0)

		first, err := svc.Send(ctx, "s1", "question")
		require.NoError(t, err)

		regenerated, err := svc.Regenerate(ctx, "s1", 2)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, regenerated.ID)
		assert.Equal(t, 1, r.regens)

		history := svc.History("s1")
		require.Len(t, history, 3)
		assert.Equal(t, regenerated.ID, history[2].ID)
	})

	t.Run("Regenerate Invalid Index", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)
		_, err := svc.Send(ctx, "s1", "question")
		require.NoError(t, err)

		for _, idx := range []int{-1, 0, 1, 3} {
			_, err := svc.Regenerate(ctx, "s1", idx)
			assert.ErrorIs(t, err, shared.ErrInvalidInput, "index %d", idx)
		}
	})

	t.Run("Regenerate Failure Is Not Retryable", func(t *testing.T) {
		r := &scripted{}
		svc := newTestService(r, 0)
		original, err := svc.Send(ctx, "s1", "question")
		require.NoError(t, err)

		r.results = []error{errors.New("boom")}
		_, err = svc.Regenerate(ctx, "s1", 2)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.False(t, sendErr.Retryable)
		assert.Equal(t, original.ID, svc.History("s1")[2].ID, "failed regenerate keeps the old reply")
	})

	t.Run("Reset And Prune", func(t *testing.T) {
		svc := newTestService(&scripted{}, 0)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		svc.History("old")
		now = now.Add(time.Hour)
		svc.History("new")

		assert.Equal(t, 1, svc.Prune(30*time.Minute))
		assert.Equal(t, 1, svc.Len())

		svc.Reset("new")
		assert.Equal(t, 0, svc.Len())
	})
}

func TestMockResponder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		m := NewMockResponder(0, 0.2).WithRand(func() float64 { return 0.5 })

		reply, err := m.Reply(ctx, nil, "电力电子")
		require.NoError(t, err)
		assert.Contains(t, reply, "电力电子")
		assert.Contains(t, reply, "模拟回复")
	})

	t.Run("Failure", func(t *testing.T) {
		m := NewMockResponder(0, 0.2).WithRand(func() float64 { return 0.1 })

		_, err := m.Reply(ctx, nil, "x")
		assert.ErrorIs(t, err, shared.ErrTransientSend)
	})

	t.Run("Regenerate Text", func(t *testing.T) {
		m := NewMockResponder(0, 0).WithRand(func() float64 { return 0.9 })

		reply, err := m.Reply(WithRegenerate(ctx), nil, "x")
		require.NoError(t, err)
		assert.Contains(t, reply, "重新生成的回复")
	})

	t.Run("Latency Honors Context", func(t *testing.T) {
		m := NewMockResponder(time.Hour, 0)
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := m.Reply(ctx, nil, "x")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Clamps Failure Rate", func(t *testing.T) {
		m := NewMockResponder(-time.Second, 5)
		assert.Equal(t, time.Duration(0), m.latency)
		assert.Equal(t, 1.0, m.failureRate)
	})
}

func TestNewResponder(t *testing.T) {
	ctx := context.Background()

	r, err := NewResponder(ctx, shared.ChatConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockResponder{}, r)

	_, err = NewResponder(ctx, shared.ChatConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, shared.ErrMissingCredentials)

	_, err = NewResponder(ctx, shared.ChatConfig{Provider: "openai"})
	assert.ErrorIs(t, err, shared.ErrInvalidConfig)
}

func TestContents(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleAssistant, Content: Greeting},
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
	}

	contents := Contents(history, "q2")
	require.Len(t, contents, 3)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "q2", contents[2].Parts[0].Text)
}

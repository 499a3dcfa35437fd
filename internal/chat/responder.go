package chat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
)

// Responder produces the assistant reply to prompt given the conversation so far.
type Responder interface {
	Reply(ctx context.Context, history []models.Message, prompt string) (string, error)
}

type regenerateKey struct{}

// WithRegenerate marks ctx as asking for an alternative to an existing reply.
func WithRegenerate(ctx context.Context) context.Context {
	return context.WithValue(ctx, regenerateKey{}, true)
}

// IsRegenerate reports whether ctx was marked by [WithRegenerate].
func IsRegenerate(ctx context.Context) bool {
	v, _ := ctx.Value(regenerateKey{}).(bool)
	return v
}

const (
	DefaultLatency     = time.Second
	DefaultFailureRate = 0.2
)

// MockResponder stands in for a real model: it waits, then fails at random or echoes the prompt.
type MockResponder struct {
	latency     time.Duration
	failureRate float64

	mu    sync.Mutex
	float func() float64
}

// NewMockResponder creates a mock that answers after latency and fails with probability failureRate.
func NewMockResponder(latency time.Duration, failureRate float64) *MockResponder {
	return &MockResponder{
		latency:     max(latency, 0),
		failureRate: min(max(failureRate, 0), 1),
		float:       rand.Float64,
	}
}

// WithRand replaces the random source, returning values in [0, 1).
func (m *MockResponder) WithRand(fn func() float64) *MockResponder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.float = fn
	return m
}

func (m *MockResponder) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	roll := m.float()
	m.mu.Unlock()

	regenerate := IsRegenerate(ctx)
	if roll < m.failureRate {
		if regenerate {
			return "", fmt.Errorf("%w: 重新生成失败，请重试", shared.ErrTransientSend)
		}
		return "", fmt.Errorf("%w: 网络连接失败，请重试", shared.ErrTransientSend)
	}

	if regenerate {
		return fmt.Sprintf("重新生成的回复：%s。这是一个不同的AI回复示例。", prompt), nil
	}
	return fmt.Sprintf("我收到了你的消息：\"%s\"。这是一个模拟回复，实际使用时可以接入真实的AI服务。", prompt), nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
)

// Greeting opens every conversation.
const Greeting = "你好！我是AI助手，很高兴为你服务。有什么问题可以问我？"

// MaxInputLength bounds a single prompt in runes.
const MaxInputLength = 4000

// SendError reports a reply that could not be produced.
//
// Input is the text the user submitted, to be restored in the input box.
// Retryable is false for regeneration failures.
type SendError struct {
	Input     string
	Retryable bool
	Err       error
}

func (e *SendError) Error() string {
	return e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Options configure a [Service].
type Options struct {
	// MessagesPerMinute limits sends and regenerations per session. Zero disables the limit.
	MessagesPerMinute int
	Logger            *log.Logger
}

type conversation struct {
	messages []models.Message
	pending  bool
	lastUsed time.Time
}

// Service holds one conversation per session key.
type Service struct {
	responder Responder
	limiter   *shared.KeyedRateLimiter
	logger    *log.Logger
	now       func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewService creates a chat service answering with responder.
func NewService(responder Responder, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var limiter *shared.KeyedRateLimiter
	if opts.MessagesPerMinute > 0 {
		limiter = shared.PerMinute(opts.MessagesPerMinute)
	}

	return &Service{
		responder:     responder,
		limiter:       limiter,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[string]*conversation),
	}
}

// NewResponder picks the responder named by cfg.Provider.
func NewResponder(ctx context.Context, cfg shared.ChatConfig) (Responder, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockResponder(cfg.Latency(), cfg.FailureRate), nil
	case "gemini":
		return NewGeminiResponder(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}

// History returns a copy of the conversation for key, starting one if needed.
func (s *Service) History(key string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Message(nil), s.get(key).messages...)
}

// Send appends content as a user message and asks the responder for a reply.
//
// On failure the user message is removed again and a [*SendError] with Retryable set is returned.
func (s *Service) Send(ctx context.Context, key, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", shared.ErrInvalidInput)
	}
	if len([]rune(content)) > MaxInputLength {
		return nil, &SendError{Input: content, Retryable: false,
			Err: fmt.Errorf("%w: message longer than %d characters", shared.ErrInvalidInput, MaxInputLength)}
	}
	if !s.limiter.Allow(key) {
		return nil, &SendError{Input: content, Retryable: true, Err: fmt.Errorf("%w: too many messages", shared.ErrRateLimited)}
	}

	userMsg := s.newMessage(models.RoleUser, content)

	s.mu.Lock()
	conv := s.get(key)
	if conv.pending {
		s.mu.Unlock()
		return nil, &SendError{Input: content, Retryable: true, Err: fmt.Errorf("%w: a reply is already pending", shared.ErrInvalidState)}
	}
	history := append([]models.Message(nil), conv.messages...)
	conv.messages = append(conv.messages, userMsg)
	conv.pending = true
	s.mu.Unlock()

	reply, err := s.responder.Reply(ctx, history, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	conv.pending = false

	if err != nil {
		conv.messages = removeMessage(conv.messages, userMsg.ID)
		s.logger.Warn("chat reply failed", "session", key, "error", err)
		return nil, &SendError{Input: content, Retryable: true, Err: transient(err)}
	}

	assistant := s.newMessage(models.RoleAssistant, reply)
	conv.messages = append(conv.messages, assistant)
	return &assistant, nil
}

// Regenerate replaces the assistant message at index with a fresh reply to the user message before it.
//
// Failures leave the conversation unchanged and are not retryable.
func (s *Service) Regenerate(ctx context.Context, key string, index int) (*models.Message, error) {
	if !s.limiter.Allow(key) {
		return nil, &SendError{Err: fmt.Errorf("%w: too many messages", shared.ErrRateLimited)}
	}

	s.mu.Lock()
	conv := s.get(key)
	if index <= 0 || index >= len(conv.messages) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no message at index %d", shared.ErrInvalidInput, index)
	}

	target := conv.messages[index]
	prompt := conv.messages[index-1]
	if target.Role != models.RoleAssistant || prompt.Role != models.RoleUser {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %d is not a reply", shared.ErrInvalidInput, index)
	}
	if conv.pending {
		s.mu.Unlock()
		return nil, &SendError{Err: fmt.Errorf("%w: a reply is already pending", shared.ErrInvalidState)}
	}
	history := append([]models.Message(nil), conv.messages[:index-1]...)
	conv.pending = true
	s.mu.Unlock()

	reply, err := s.responder.Reply(WithRegenerate(ctx), history, prompt.Content)

	s.mu.Lock()
	defer s.mu.Unlock()
	conv.pending = false

	if err != nil {
		s.logger.Warn("chat regenerate failed", "session", key, "index", index, "error", err)
		return nil, &SendError{Retryable: false, Err: transient(err)}
	}

	// the conversation may have been reset while waiting
	i := indexOf(conv.messages, target.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: message %d no longer exists", shared.ErrInvalidState, index)
	}

	msg := s.newMessage(models.RoleAssistant, reply)
	conv.messages[i] = msg
	return &msg, nil
}

// Reset discards the conversation for key.
func (s *Service) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, key)
}

// Prune drops conversations idle for longer than idle and returns how many were removed.
func (s *Service) Prune(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, conv := range s.conversations {
		if !conv.pending && conv.lastUsed.Before(cutoff) {
			delete(s.conversations, key)
			removed++
		}
	}
	if s.limiter != nil {
		s.limiter.Sweep(idle)
	}
	return removed
}

// Len returns the number of live conversations.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// get must be called with s.mu held.
func (s *Service) get(key string) *conversation {
	conv, ok := s.conversations[key]
	if !ok {
		conv = &conversation{messages: []models.Message{s.newMessage(models.RoleAssistant, Greeting)}}
		s.conversations[key] = conv
	}
	conv.lastUsed = s.now()
	return conv
}

func (s *Service) newMessage(role models.Role, content string) models.Message {
	return models.Message{ID: shared.GenerateID(), Role: role, Content: content, Timestamp: s.now()}
}

func transient(err error) error {
	if errors.Is(err, shared.ErrTransientSend) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrTransientSend, err)
}

func removeMessage(messages []models.Message, id string) []models.Message {
	if i := indexOf(messages, id); i >= 0 {
		return append(messages[:i], messages[i+1:]...)
	}
	return messages
}

func indexOf(messages []models.Message, id string) int {
	for i, m := range messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

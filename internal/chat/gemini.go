package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"

	systemInstruction = "你是电力电子技术课程的助教。请用简洁的中文回答学生的问题，必要时给出公式和示例。"
)

// GeminiResponder generates replies with the Gemini API.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// NewGeminiResponder creates a responder for the configured API key and model.
func NewGeminiResponder(ctx context.Context, cfg shared.ChatConfig) (*GeminiResponder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", shared.ErrMissingCredentials)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiResponder{client: client, model: model}, nil
}

func (g *GeminiResponder) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	if IsRegenerate(ctx) {
		temp := float32(1.2)
		config.Temperature = &temp
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, Contents(history, prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTransientSend, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: no content from gemini", shared.ErrTransientSend)
	}
	return text, nil
}

// Contents converts the conversation and the new prompt into Gemini turns.
//
// Leading assistant messages (the greeting) are dropped since a Gemini conversation starts with the user.
func Contents(history []models.Message, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleAssistant {
			if len(contents) == 0 {
				continue
			}
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

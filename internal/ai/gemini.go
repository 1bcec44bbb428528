// Package ai wraps the Gemini API behind a small Generator interface so the
// chat service can be tested without network access.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"storefront/internal/config"
)

// Generator produces a support reply for a customer message.
type Generator interface {
	Generate(ctx context.Context, userPrompt string) (string, error)
	Close() error
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client       *genai.Client
	modelName    string
	systemPrompt string
}

// NewGeminiGenerator creates a Gemini-backed generator. An empty API key
// falls back to the GEMINI_API_KEY environment variable.
func NewGeminiGenerator(ctx context.Context, cfg *config.AIConfig) (*GeminiGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiGenerator{
		client:       cl,
		modelName:    modelName,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate produces a reply to the customer's message.
func (g *GeminiGenerator) Generate(ctx context.Context, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if g.systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(g.systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ Generator = (*GeminiGenerator)(nil)

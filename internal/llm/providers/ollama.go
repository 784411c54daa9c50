// File path: internal/llm/providers/ollama.go
package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/clearscribe/notewright/internal/common"
)

// OllamaProvider serves generations from a local Ollama daemon through
// langchaingo. It backs the secondary/fallback generation path so a hosted
// provider outage degrades to local inference instead of a failed merge.
type OllamaProvider struct {
	model llms.Model
	name  string
}

// NewOllamaProvider connects to the Ollama server at serverURL (default used
// when empty) with the given model name.
func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	common.Logger().Info("llm: ollama provider configured", "model", model, "server", serverURL)
	return &OllamaProvider{model: llm, name: "ollama"}, nil
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := schema.ChatMessageTypeHuman
		switch msg.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	resp, err := p.model.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		common.Logger().Error("llm: ollama generation failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func (p *OllamaProvider) Name() string {
	return p.name
}

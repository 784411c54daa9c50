// File path: internal/llm/llm.go
package llm

import (
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider selects the primary generation provider from the environment:
// OpenAI when OPENAI_API_KEY is set, otherwise Ollama when OLLAMA_HOST is
// set, otherwise the local stub.
func NewProvider() Provider {
	logger := common.Logger()
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
			timeout, err := time.ParseDuration(timeoutStr)
			if err != nil {
				logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
			} else {
				opts = append(opts, option.WithRequestTimeout(timeout))
			}
		}
		if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
			logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
			opts = append(opts, option.WithBaseURL(endpoint))
		}
		client := openai.NewClient(opts...)
		logger.Info("llm: OpenAI primary provider selected")
		return providers.NewOpenAIProvider(client)
	}
	if p := ollamaFromEnv(); p != nil {
		logger.Info("llm: ollama primary provider selected")
		return p
	}
	logger.Warn("llm: no provider configured; using local stub")
	return providers.NewLocalProvider()
}

// NewFallbackProvider selects the secondary provider used after the primary
// fails: Ollama when configured, otherwise the local stub.
func NewFallbackProvider() Provider {
	logger := common.Logger()
	if p := ollamaFromEnv(); p != nil {
		logger.Info("llm: ollama fallback provider selected")
		return p
	}
	logger.Info("llm: local stub fallback provider selected")
	return providers.NewLocalProvider()
}

func ollamaFromEnv() Provider {
	host := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	if host == "" {
		return nil
	}
	model := strings.TrimSpace(os.Getenv("OLLAMA_MODEL"))
	if model == "" {
		model = "llama3"
	}
	p, err := providers.NewOllamaProvider(host, model)
	if err != nil {
		common.Logger().Warn("llm: ollama provider unavailable", "error", err)
		return nil
	}
	return p
}

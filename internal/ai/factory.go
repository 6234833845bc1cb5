package ai

import (
	"context"
	"fmt"

	"github.com/jobsuitex/autoapply/internal/ai/langchain"
	"github.com/jobsuitex/autoapply/internal/config"
	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// vllmToken is sent to OpenAI-compatible servers that do not check keys.
const vllmToken = "EMPTY"

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "gemini":
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.Gemini.APIKey),
			googleai.WithDefaultModel(cfg.Gemini.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return langchain.New("gemini", llm, langchain.WithInlineSystem()), nil
	case "openai":
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithModel(cfg.OpenAI.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return langchain.New("openai", llm), nil
	case "anthropic":
		llm, err := anthropic.New(
			anthropic.WithToken(cfg.Anthropic.APIKey),
			anthropic.WithModel(cfg.Anthropic.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return langchain.New("anthropic", llm), nil
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.Ollama.BaseURL),
			ollama.WithModel(cfg.Ollama.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return langchain.New("ollama", llm), nil
	case "vllm":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.VLLM.BaseURL),
			openai.WithToken(vllmToken),
			openai.WithModel(cfg.VLLM.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create vllm client: %w", err)
		}
		return langchain.New("vllm", llm), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of gemini, ollama, vllm, openai, anthropic", cfg.Provider)
	}
}

package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pizzeria-rag/internal/config"
)

// NewGenerator builds the completion backend named by kind
func NewGenerator(kind string, llmConfig config.LLMConfig) (Generator, error) {
	log.Debug().
		Str("generator", kind).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating generator")

	switch kind {
	case config.GeneratorChain, "":
		return NewChainGenerator(llmConfig)
	case config.GeneratorHTTP:
		return NewHTTPGenerator(llmConfig), nil
	case config.GeneratorOpenAI:
		return NewOpenAIGenerator(llmConfig)
	default:
		return nil, fmt.Errorf("unknown generator %q", kind)
	}
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator sends the prompt as a single human message through a langchaingo model.
// Errors from the client are returned unchanged.
type LLMGenerator struct {
	llm llms.Model
}

func NewLLMGenerator(llm llms.Model) *LLMGenerator {
	return &LLMGenerator{llm: llm}
}

// NewChainGenerator talks to Ollama's native chat API
func NewChainGenerator(llmConfig config.LLMConfig) (*LLMGenerator, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return NewLLMGenerator(llm), nil
}

// NewOpenAIGenerator talks to an OpenAI compatible endpoint (Ollama serves one under /v1)
func NewOpenAIGenerator(llmConfig config.LLMConfig) (*LLMGenerator, error) {
	key := strings.TrimPrefix(llmConfig.Key, "Bearer ")
	if key == "" {
		key = "ollama"
	}
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(key),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return NewLLMGenerator(llm), nil
}

func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return res.Choices[0].Content, nil
}

package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/helper"
	"pizzeria-rag/internal/models"
)

// NewEmbedder creates an embedder for the configured provider
func NewEmbedder(llmConfig config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	switch llmConfig.Provider {
	case config.ProviderOllama, "":
		return NewOllamaEmbedder(llmConfig)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(llmConfig)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", llmConfig.Provider)
	}
}

// new ollama embedder
func NewOllamaEmbedder(llmConfig config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder targets any OpenAI compatible endpoint, including Ollama's /v1.
func NewOpenAIEmbedder(llmConfig config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(apiToken(llmConfig.Key)),
		openai.WithEmbeddingModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// StoreEmbeddingFunc returns the function a chromem collection uses to embed
// query texts on its own.
func StoreEmbeddingFunc(llmConfig config.LLMConfig) chromem.EmbeddingFunc {
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		return chromem.NewEmbeddingFuncOpenAICompat(llmConfig.BaseURL, apiToken(llmConfig.Key), llmConfig.Model, nil)
	default:
		return chromem.NewEmbeddingFuncOllama(llmConfig.Model, strings.TrimRight(llmConfig.BaseURL, "/")+"/api")
	}
}

// GenerateEmbedding embeds every chunk and returns documents ready to be stored.
// Each document gets a fresh id, so the same chunk ingested twice is stored twice.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.Document, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]models.Document, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		docs[i] = models.Document{
			ID:        id,
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: vectors[i],
		}
	}
	log.Debug().Int("documents", len(docs)).Msg("Generated embeddings")
	return docs, nil
}

func apiToken(key string) string {
	key = strings.TrimPrefix(key, "Bearer ")
	if key == "" {
		// local OpenAI compatible servers ignore the token but the client requires one
		return "ollama"
	}
	return key
}

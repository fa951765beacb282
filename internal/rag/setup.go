package rag

import (
	"context"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/embedding"
	"pizzeria-rag/internal/llmservice"
	"pizzeria-rag/internal/vectorstore"
)

// Setup builds every client of the named pipeline from configuration.
func Setup(ctx context.Context, cfg *config.Config, name string) (*Pipeline, error) {
	pc, err := cfg.Pipeline(name)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("pipeline", name).Interface("config", pc).Msg("Setting up pipeline")

	tmpl, err := ResolveTemplate(pc)
	if err != nil {
		return nil, err
	}

	embedCfg := cfg.EmbedConfig(pc)
	embedder, err := embedding.NewEmbedder(embedCfg)
	if err != nil {
		return nil, err
	}

	var embedFunc chromem.EmbeddingFunc = embedder.EmbedQuery
	if pc.StoreEmbeds {
		embedFunc = embedding.StoreEmbeddingFunc(embedCfg)
	}

	generator, err := llmservice.NewGenerator(pc.Generator, cfg.ChatConfig(pc))
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.Open(ctx, cfg, pc, embedFunc)
	if err != nil {
		return nil, err
	}

	p, err := New(embedder, store, generator, Options{
		Name:           name,
		EmbeddingModel: pc.EmbeddingModel,
		TopK:           cfg.RAG.TopK,
		StoreEmbeds:    pc.StoreEmbeds,
		TemplateText:   tmpl,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return p, nil
}

package ingest

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/embedding"
	"pizzeria-rag/internal/helper"
	"pizzeria-rag/internal/menu"
	"pizzeria-rag/internal/models"
	"pizzeria-rag/internal/parser"
	"pizzeria-rag/internal/vectorstore"
)

type Options struct {
	// Reset empties the collection before inserting. Without it every run appends.
	Reset bool
	// DryRun only builds the chunks, printing them to Preview when set.
	DryRun  bool
	Preview io.Writer
}

// Ingester embeds chunks and appends them to a collection.
type Ingester struct {
	embedder       embeddings.Embedder
	store          vectorstore.Store
	embeddingModel string
}

func New(embedder embeddings.Embedder, store vectorstore.Store, embeddingModel string) *Ingester {
	return &Ingester{embedder: embedder, store: store, embeddingModel: embeddingModel}
}

// IngestMenu stores one document per dish and returns how many were added.
func (i *Ingester) IngestMenu(ctx context.Context, dishes []models.Dish, table models.AllergenTable, opts Options) (int, error) {
	return i.ingest(ctx, menu.Chunks(dishes, table), opts)
}

// IngestFiles parses documents (pdf, docx, pptx, xlsx, txt, md) into chunks and stores them.
func (i *Ingester) IngestFiles(ctx context.Context, paths []string, ragCfg config.RAGConfig, opts Options) (int, error) {
	p := parser.New(ragCfg)
	var chunks []models.Chunk
	for _, path := range paths {
		fileChunks, err := p.ParseFile(path)
		if err != nil {
			return 0, err
		}
		log.Info().Str("file", path).Int("chunks", len(fileChunks)).Msg("Parsed document")
		chunks = append(chunks, fileChunks...)
	}
	return i.ingest(ctx, chunks, opts)
}

func (i *Ingester) ingest(ctx context.Context, chunks []models.Chunk, opts Options) (int, error) {
	if opts.DryRun {
		log.Info().Int("chunks", len(chunks)).Msg("Dry run, nothing stored")
		if opts.Preview != nil {
			helper.PrettyPrint(opts.Preview, chunks)
		}
		return 0, nil
	}

	if opts.Reset {
		if err := i.store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset collection: %w", err)
		}
		log.Info().Msg("Collection cleared")
	}

	if i.embeddingModel != "" {
		for j := range chunks {
			meta := make(map[string]string, len(chunks[j].Metadata)+1)
			maps.Copy(meta, chunks[j].Metadata)
			meta[models.MetaEmbeddingModel] = i.embeddingModel
			chunks[j].Metadata = meta
		}
	}

	docs, err := embedding.GenerateEmbedding(ctx, i.embedder, chunks)
	if err != nil {
		return 0, err
	}

	log.Info().Msgf("Adding %d documents to vector database", len(docs))
	if err := i.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to add documents to vector database: %w", err)
	}
	return len(docs), nil
}

package vectorstore

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/chromemdb"
	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/db"
	"pizzeria-rag/internal/helper"
	"pizzeria-rag/internal/models"
)

// Store persists documents of one collection and supports similarity search.
type Store interface {
	AddDocuments(ctx context.Context, docs []models.Document) error
	// Search returns at most k documents ordered by descending similarity.
	Search(ctx context.Context, embedding []float32, k int) ([]models.Match, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

// TextSearcher is implemented by stores able to embed the query themselves.
type TextSearcher interface {
	SearchText(ctx context.Context, query string, k int) ([]models.Match, error)
}

// Open returns the store backing a pipeline's collection.
// embedFunc is only used by the chromem backend and may be nil.
func Open(ctx context.Context, cfg *config.Config, p config.PipelineConfig, embedFunc chromem.EmbeddingFunc) (Store, error) {
	log.Debug().
		Str("type", cfg.Store.Type).
		Str("path", p.Path).
		Str("collection", p.Collection).
		Msg("Opening vector store")

	switch cfg.Store.Type {
	case config.StoreChromem, "":
		if !cfg.Store.InMemory {
			if err := helper.CreateFolder(p.Path); err != nil {
				return nil, err
			}
		}
		return chromemdb.NewVectorDBManager(p.Path, p.Collection, chromemdb.Options{
			InMemory:      cfg.Store.InMemory,
			Compress:      cfg.Store.Compress,
			EncryptionKey: cfg.RAG.EncryptionKey,
			EmbedFunc:     embedFunc,
		})
	case config.StorePGVector:
		return db.NewStore(ctx, cfg.Database, p.Collection)
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Store.Type)
	}
}

var (
	_ Store        = (*chromemdb.VectorDBManager)(nil)
	_ TextSearcher = (*chromemdb.VectorDBManager)(nil)
	_ Store        = (*db.Store)(nil)
)

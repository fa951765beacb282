package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/models"
)

var errNoEmbeddingFunc = errors.New("collection has no embedding function, provide embeddings explicitly")

// VectorDBManager encapsulates the chromem-go database operations on one collection
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embedFunc     chromem.EmbeddingFunc
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
}

type Options struct {
	InMemory      bool
	Compress      bool
	EncryptionKey string
	// EmbedFunc lets the collection embed query texts itself. May be nil.
	EmbedFunc chromem.EmbeddingFunc
}

// NewVectorDBManager opens (or creates) the database at dbPath and the named collection
func NewVectorDBManager(dbPath, collectionName string, opts Options) (*VectorDBManager, error) {
	var db *chromem.DB
	if opts.InMemory {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dbPath, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	embedFunc := opts.EmbedFunc
	if embedFunc == nil {
		embedFunc = func(context.Context, string) ([]float32, error) {
			return nil, errNoEmbeddingFunc
		}
	}

	m := &VectorDBManager{
		db:            db,
		embedFunc:     embedFunc,
		dbPath:        dbPath,
		compress:      opts.Compress,
		encryptionKey: opts.EncryptionKey,
		filePath:      filepath.Join(dbPath, collectionName+".chromem"),
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, m.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// AddDocuments stores documents together with their precomputed embeddings
func (m *VectorDBManager) AddDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns the k documents closest to embedding, most similar first
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	n := m.limit(k)
	if n == 0 {
		return nil, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return toMatches(results), nil
}

// SearchText lets the collection embed the query with its own embedding function
func (m *VectorDBManager) SearchText(ctx context.Context, query string, k int) ([]models.Match, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	n := m.limit(k)
	if n == 0 {
		return nil, nil
	}
	results, err := m.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return toMatches(results), nil
}

// chromem refuses nResults larger than the collection
func (m *VectorDBManager) limit(k int) int {
	return max(0, min(k, m.collection.Count()))
}

func (m *VectorDBManager) Count(context.Context) (int, error) {
	return m.collection.Count(), nil
}

// Reset drops every document of the collection
func (m *VectorDBManager) Reset(context.Context) error {
	name := m.collection.Name
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	_, err := m.GetOrCreateCollection(name)
	return err
}

func (m *VectorDBManager) Close() error {
	return nil
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	if filePath == "" {
		filePath = m.filePath
	}
	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", filePath).
		Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")

	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	if filePath == "" {
		filePath = m.filePath
	}
	name := m.collection.Name
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	// imported collections come back without an embedding function
	if c := m.db.GetCollection(name, m.embedFunc); c != nil {
		m.collection = c
	}
	return nil
}

func toMatches(results []chromem.Result) []models.Match {
	matches := make([]models.Match, len(results))
	for i, r := range results {
		matches[i] = models.Match{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return matches
}

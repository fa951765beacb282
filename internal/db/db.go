package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string            `bun:"id,pk"`
	Collection    string            `bun:"collection,notnull"`
	Content       string            `bun:"content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	// pgvector text form, e.g. [0.1,0.2]
	Embedding  string  `bun:"embedding,notnull,type:vector"`
	Similarity float32 `bun:"similarity,scanonly"`
}

// Store keeps the documents of one collection in a pgvector table
type Store struct {
	db         *bun.DB
	collection string
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required for the pgvector store")
	}
	dsn := cfg.DSN
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

// NewStore connects to postgres and makes sure the documents table exists
func NewStore(ctx context.Context, cfg config.DatabaseConfig, collection string) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{db: NewDB(sqldb, cfg.Debug), collection: collection}
	if err := s.InitDB(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("documents_collection_idx").
		IfNotExists().
		Column("collection").
		Exec(ctx)
	return err
}

func (s *Store) AddDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]Document, len(docs))
	for i, doc := range docs {
		rows[i] = Document{
			ID:         doc.ID,
			Collection: s.collection,
			Content:    doc.Content,
			Metadata:   doc.Metadata,
			Embedding:  VectorLiteral(doc.Embedding),
		}
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	log.Debug().Int("documents", len(rows)).Str("collection", s.collection).Msg("Stored documents")
	return nil
}

// Search orders by cosine distance; similarity is 1 - distance
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if k <= 0 {
		return nil, nil
	}
	var docs []Document
	if err := s.searchQuery(embedding, k).Model(&docs).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	matches := make([]models.Match, len(docs))
	for i, d := range docs {
		matches[i] = models.Match{ID: d.ID, Content: d.Content, Metadata: d.Metadata, Similarity: d.Similarity}
	}
	return matches, nil
}

func (s *Store) searchQuery(embedding []float32, k int) *bun.SelectQuery {
	vec := VectorLiteral(embedding)
	return s.db.NewSelect().
		Model((*Document)(nil)).
		Column("id", "content", "metadata").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", vec).
		Where("collection = ?", s.collection).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(k)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Where("collection = ?", s.collection).Count(ctx)
}

// drop the documents of the collection
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.NewDelete().Model((*Document)(nil)).Where("collection = ?", s.collection).Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// VectorLiteral renders an embedding in pgvector's text input format
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

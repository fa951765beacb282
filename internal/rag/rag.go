package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/prompts"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/llmservice"
	"pizzeria-rag/internal/models"
	"pizzeria-rag/internal/vectorstore"
)

const DefaultTopK = 3

var ErrEmptyQuestion = errors.New("question is empty")

type Options struct {
	Name           string
	EmbeddingModel string
	TopK           int
	// StoreEmbeds delegates query embedding to the store when it supports it.
	StoreEmbeds  bool
	TemplateText string
}

// Pipeline is one retrieval-augmentation-generation use case: a collection,
// the embedder that filled it, a completion backend and a prompt template.
type Pipeline struct {
	name           string
	embeddingModel string
	embedder       embeddings.Embedder
	store          vectorstore.Store
	generator      llmservice.Generator
	template       prompts.PromptTemplate
	topK           int
	storeEmbeds    bool
}

func New(embedder embeddings.Embedder, store vectorstore.Store, generator llmservice.Generator, opts Options) (*Pipeline, error) {
	if strings.TrimSpace(opts.TemplateText) == "" {
		return nil, fmt.Errorf("pipeline %q has an empty prompt template", opts.Name)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Pipeline{
		name:           opts.Name,
		embeddingModel: opts.EmbeddingModel,
		embedder:       embedder,
		store:          store,
		generator:      generator,
		template:       prompts.NewPromptTemplate(opts.TemplateText, []string{"context", "question"}),
		topK:           opts.TopK,
		storeEmbeds:    opts.StoreEmbeds,
	}, nil
}

func (p *Pipeline) Name() string                  { return p.name }
func (p *Pipeline) EmbeddingModel() string        { return p.embeddingModel }
func (p *Pipeline) Embedder() embeddings.Embedder { return p.embedder }
func (p *Pipeline) Store() vectorstore.Store      { return p.store }
func (p *Pipeline) Close() error                  { return p.store.Close() }

// Retrieve returns at most top_k stored documents, most similar first. There is no
// relevance threshold.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]models.Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var (
		matches []models.Match
		err     error
	)
	if ts, ok := p.store.(vectorstore.TextSearcher); ok && p.storeEmbeds {
		matches, err = ts.SearchText(ctx, question, p.topK)
	} else {
		var embedding []float32
		embedding, err = p.embedder.EmbedQuery(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("failed to embed question: %w", err)
		}
		matches, err = p.store.Search(ctx, embedding, p.topK)
	}
	if err != nil {
		return nil, err
	}

	p.checkEmbeddingModel(matches)
	log.Debug().Str("pipeline", p.name).Int("matches", len(matches)).Msg("Retrieved context")
	return matches, nil
}

// Documents record the model that embedded them; a different model makes the
// similarity scores meaningless.
func (p *Pipeline) checkEmbeddingModel(matches []models.Match) {
	if p.embeddingModel == "" {
		return
	}
	for _, m := range matches {
		if stored := m.Metadata[models.MetaEmbeddingModel]; stored != "" && stored != p.embeddingModel {
			log.Warn().
				Str("pipeline", p.name).
				Str("stored_model", stored).
				Str("query_model", p.embeddingModel).
				Msg("Collection was embedded with a different model")
			return
		}
	}
}

// Augment fills the prompt template with the retrieved texts and the question.
func (p *Pipeline) Augment(question string, matches []models.Match) (string, error) {
	prompt, err := p.template.Format(map[string]any{
		"context":  JoinContext(matches),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}
	return prompt, nil
}

// Query runs retrieval, augmentation and generation for one question.
func (p *Pipeline) Query(ctx context.Context, question string) (*models.PromptResponse, error) {
	matches, err := p.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	prompt, err := p.Augment(question, matches)
	if err != nil {
		return nil, err
	}

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &models.PromptResponse{
		Query:   question,
		Source:  JoinContext(matches),
		Content: strings.TrimSpace(answer),
		Matches: matches,
	}, nil
}

// Answer is Query reduced to the answer text, the shape the front ends need.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	res, err := p.Query(ctx, question)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func JoinContext(matches []models.Match) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Content
	}
	return strings.Join(texts, models.ContextSeparator)
}

// ResolveTemplate returns the inline template text, or the built-in template it names.
func ResolveTemplate(p config.PipelineConfig) (string, error) {
	if p.TemplateText != "" {
		return p.TemplateText, nil
	}
	text, ok := models.PromptTemplates[p.Template]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", p.Template)
	}
	return text, nil
}

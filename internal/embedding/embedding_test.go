package embedding

import (
	"context"
	"errors"
	"testing"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/models"
)

type fakeEmbedder struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, f.err
}

func TestGenerateEmbedding(t *testing.T) {
	chunks := []models.Chunk{
		{Content: "Margherita", Metadata: map[string]string{models.MetaDish: "Margherita"}},
		{Content: "Diavola"},
	}
	docs, err := GenerateEmbedding(context.Background(), &fakeEmbedder{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID == "" || docs[0].ID == docs[1].ID {
		t.Fatalf("expected distinct ids, got %q and %q", docs[0].ID, docs[1].ID)
	}
	if docs[0].Metadata[models.MetaDish] != "Margherita" || docs[1].Embedding[0] != 7 {
		t.Fatalf("documents do not carry chunk data: %+v", docs)
	}
}

func TestGenerateEmbedding_Empty(t *testing.T) {
	e := &fakeEmbedder{}
	docs, err := GenerateEmbedding(context.Background(), e, nil)
	if err != nil || docs != nil {
		t.Fatalf("expected nil, nil; got %v, %v", docs, err)
	}
	if e.calls != 0 {
		t.Fatalf("embedder should not be called for no chunks")
	}
}

func TestGenerateEmbedding_Errors(t *testing.T) {
	boom := errors.New("ollama down")
	if _, err := GenerateEmbedding(context.Background(), &fakeEmbedder{err: boom}, []models.Chunk{{Content: "x"}}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped embedder error, got %v", err)
	}

	short := &fakeEmbedder{vectors: [][]float32{{1}}}
	if _, err := GenerateEmbedding(context.Background(), short, []models.Chunk{{Content: "a"}, {Content: "b"}}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	if _, err := NewEmbedder(config.LLMConfig{Provider: "bert"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewEmbedder_Ollama(t *testing.T) {
	e, err := NewEmbedder(config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "mxbai-embed-large"})
	if err != nil || e == nil {
		t.Fatalf("expected embedder, got %v, %v", e, err)
	}
}

func TestAPIToken(t *testing.T) {
	if apiToken("") != "ollama" {
		t.Errorf("expected placeholder token")
	}
	if apiToken("Bearer sk-1") != "sk-1" {
		t.Errorf("expected bearer prefix to be stripped")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAG.TopK != 3 {
		t.Fatalf("expected default top_k 3, got %d", cfg.RAG.TopK)
	}
	if cfg.EmbedLLM.Model != "mxbai-embed-large" || cfg.ChatLLM.Model != "mistral" {
		t.Fatalf("unexpected default models: %q / %q", cfg.EmbedLLM.Model, cfg.ChatLLM.Model)
	}
	if _, ok := cfg.Pipelines["menu"]; !ok {
		t.Fatalf("expected built-in menu pipeline")
	}
}

func TestLoadConfig_ExpandsEnvAndKeepsBuiltins(t *testing.T) {
	t.Setenv("PIZZA_OLLAMA", "http://ollama:11434")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
chat_llm:
  base_url: ${PIZZA_OLLAMA}
  model: llama3.2
rag:
  top_k: 5
pipelines:
  desserts:
    collection: dolci
    template: simple
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChatLLM.BaseURL != "http://ollama:11434" {
		t.Fatalf("env not expanded: %q", cfg.ChatLLM.BaseURL)
	}
	if cfg.RAG.TopK != 5 {
		t.Fatalf("expected top_k 5, got %d", cfg.RAG.TopK)
	}
	names := cfg.PipelineNames()
	want := []string{"course", "desserts", "menu"}
	if len(names) != len(want) {
		t.Fatalf("expected pipelines %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected pipelines %v, got %v", want, names)
		}
	}
}

func TestPipeline_FillsFromGlobals(t *testing.T) {
	cfg := Default()
	cfg.Pipelines["bare"] = PipelineConfig{}

	p, err := cfg.Pipeline("bare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Collection != "bare" {
		t.Errorf("collection = %q, want bare", p.Collection)
	}
	if p.Path != cfg.Store.Path {
		t.Errorf("path = %q, want %q", p.Path, cfg.Store.Path)
	}
	if p.EmbeddingModel != "mxbai-embed-large" || p.ChatModel != "mistral" {
		t.Errorf("models not inherited: %q / %q", p.EmbeddingModel, p.ChatModel)
	}
	if p.Template != "simple" || p.Generator != GeneratorChain {
		t.Errorf("unexpected template/generator: %q / %q", p.Template, p.Generator)
	}

	if cfg.ChatConfig(p).Model != "mistral" || cfg.EmbedConfig(p).BaseURL != cfg.EmbedLLM.BaseURL {
		t.Errorf("endpoint configs not derived from pipeline")
	}
}

func TestPipeline_Unknown(t *testing.T) {
	if _, err := Default().Pipeline("sushi"); err == nil {
		t.Fatal("expected error for unknown pipeline")
	}
}

func TestLoadConfig_BaseURLWithoutScheme(t *testing.T) {
	t.Setenv("PIZZA_OLLAMA", "127.0.0.1:11434")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
embed_llm:
  base_url: ${PIZZA_OLLAMA}
chat_llm:
  base_url: https://ollama.example.com
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EmbedLLM.BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("embed base url = %q, want http://127.0.0.1:11434", cfg.EmbedLLM.BaseURL)
	}
	if cfg.ChatLLM.BaseURL != "https://ollama.example.com" {
		t.Errorf("chat base url = %q, want it unchanged", cfg.ChatLLM.BaseURL)
	}
}

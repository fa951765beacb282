package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StoreChromem  = "chromem"
	StorePGVector = "pgvector"

	GeneratorChain  = "chain"
	GeneratorHTTP   = "http"
	GeneratorOpenAI = "openai"

	defaultOllamaURL      = "http://localhost:11434"
	defaultEmbeddingModel = "mxbai-embed-large"
	defaultChatModel      = "mistral"
	defaultChunkSize      = 1000 // bytes
	defaultChunkOverlap   = 500  // bytes
	defaultTopK           = 3
	defaultStorePath      = "./chroma_db"
	defaultServerAddr     = ":7860"
)

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
	// TimeoutSecs bounds a single HTTP completion call. Zero means no timeout.
	TimeoutSecs int `yaml:"timeout_secs"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	TopK          int    `yaml:"top_k"`
	EncryptionKey string `yaml:"encryption_key"`
}

type StoreConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
	InMemory bool   `yaml:"in_memory"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Title string `yaml:"title"`
}

// MenuConfig points at the three tables the menu ingestion reads.
// Column overrides are optional; empty values keep the default headers.
type MenuConfig struct {
	MenuFile          string            `yaml:"menu_file"`
	AllergensFile     string            `yaml:"allergens_file"`
	DishAllergensFile string            `yaml:"dish_allergens_file"`
	Columns           map[string]string `yaml:"columns"`
}

// PipelineConfig describes one retrieval-augmentation-generation use case.
type PipelineConfig struct {
	Collection     string `yaml:"collection"`
	Path           string `yaml:"path"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	Template       string `yaml:"template"`
	TemplateText   string `yaml:"template_text"`
	Generator      string `yaml:"generator"`
	StoreEmbeds    bool   `yaml:"store_embeds"`
}

type Config struct {
	LogLevel  string                    `yaml:"log_level"`
	EmbedLLM  LLMConfig                 `yaml:"embed_llm"`
	ChatLLM   LLMConfig                 `yaml:"chat_llm"`
	RAG       RAGConfig                 `yaml:"rag"`
	Store     StoreConfig               `yaml:"store"`
	Database  DatabaseConfig            `yaml:"database"`
	Server    ServerConfig              `yaml:"server"`
	Menu      MenuConfig                `yaml:"menu"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// LoadConfig reads a YAML config, expanding ${VAR} references from the environment.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	applyLLMDefaults(&cfg.EmbedLLM, defaultEmbeddingModel)
	applyLLMDefaults(&cfg.ChatLLM, defaultChatModel)

	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap <= 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = defaultTopK
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreChromem
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = "Chatbot Polo"
	}
	if cfg.Menu.MenuFile == "" {
		cfg.Menu.MenuFile = "Menu_Vapiano.csv"
	}
	if cfg.Menu.AllergensFile == "" {
		cfg.Menu.AllergensFile = "Liste_allergenes.csv"
	}
	if cfg.Menu.DishAllergensFile == "" {
		cfg.Menu.DishAllergensFile = "Dishes_Allergens.csv"
	}

	if cfg.Pipelines == nil {
		cfg.Pipelines = map[string]PipelineConfig{}
	}
	for name, p := range builtinPipelines() {
		if _, ok := cfg.Pipelines[name]; !ok {
			cfg.Pipelines[name] = p
		}
	}
}

func applyLLMDefaults(c *LLMConfig, model string) {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultOllamaURL
	}
	// OLLAMA_HOST style values come as host:port
	if !strings.Contains(c.BaseURL, "://") {
		c.BaseURL = "http://" + c.BaseURL
	}
	if c.Model == "" {
		c.Model = model
	}
}

func builtinPipelines() map[string]PipelineConfig {
	return map[string]PipelineConfig{
		"menu": {
			Collection: "pizzeria_rag_collection",
			Path:       "./chroma_db2",
			Template:   "menu",
			Generator:  GeneratorChain,
		},
		"course": {
			Collection:  "cours_rag_collection",
			Path:        "./chroma_db",
			Template:    "course",
			Generator:   GeneratorHTTP,
			StoreEmbeds: true,
		},
	}
}

// Pipeline resolves a named profile, filling empty fields from the global sections.
func (c *Config) Pipeline(name string) (PipelineConfig, error) {
	p, ok := c.Pipelines[name]
	if !ok {
		return PipelineConfig{}, fmt.Errorf("unknown pipeline %q (available: %v)", name, c.PipelineNames())
	}
	if p.Collection == "" {
		p.Collection = name
	}
	if p.Path == "" {
		p.Path = c.Store.Path
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = c.EmbedLLM.Model
	}
	if p.ChatModel == "" {
		p.ChatModel = c.ChatLLM.Model
	}
	if p.Template == "" && p.TemplateText == "" {
		p.Template = "simple"
	}
	if p.Generator == "" {
		p.Generator = GeneratorChain
	}
	return p, nil
}

func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EmbedConfig returns the embedding endpoint with the pipeline's model.
func (c *Config) EmbedConfig(p PipelineConfig) LLMConfig {
	llm := c.EmbedLLM
	llm.Model = p.EmbeddingModel
	return llm
}

// ChatConfig returns the completion endpoint with the pipeline's model.
func (c *Config) ChatConfig(p PipelineConfig) LLMConfig {
	llm := c.ChatLLM
	llm.Model = p.ChatModel
	return llm
}

// Package config loads service configuration from a TOML file and the
// environment. Environment variables override file values so that deployed
// instances can be configured without shipping a file.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Defaults for tunables that are rarely overridden.
const (
	DefaultAddr           = ":8080"
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 5
	DefaultIndexName      = "resume-index"
	DefaultCloud          = "aws"
	DefaultRegion         = "us-east-1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultPDFParseURL    = "https://jobtalk-backend.onrender.com"

	// OpenAIEmbeddingDim is the vector length of the production embedder.
	OpenAIEmbeddingDim = 1536

	// FallbackEmbeddingDim is the vector length of the deterministic hash
	// embedder used when no embedding credential is configured.
	FallbackEmbeddingDim = 128
)

// Config holds all service configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `toml:"addr"`

	// Provider selects the generation backend: "openai", "anthropic",
	// "google". Empty means infer from whichever API key is present.
	Provider string `toml:"provider"`

	OpenAI    OpenAIConfig    `toml:"openai"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Google    GoogleConfig    `toml:"google"`
	Pinecone  PineconeConfig  `toml:"pinecone"`

	// PDFParseURL is the base URL of the hosted PDF parsing service.
	PDFParseURL string `toml:"pdf_parse_url"`

	// Chunking parameters for uploaded resumes.
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// TopK is the number of matches retrieved per chat turn.
	TopK int `toml:"top_k"`
}

// OpenAIConfig holds OpenAI settings for both generation and embeddings.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
	EmbeddingDim   int    `toml:"embedding_dim"`
}

// AnthropicConfig holds Anthropic generation settings.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// GoogleConfig holds Google Gemini generation settings.
type GoogleConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// PineconeConfig holds vector store settings.
type PineconeConfig struct {
	APIKey string `toml:"api_key"`
	Index  string `toml:"index"`
	Cloud  string `toml:"cloud"`
	Region string `toml:"region"`
}

// StandardPaths returns the standard config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"jobtalk.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "jobtalk", "config.toml"))
	}
	return paths
}

// Load loads configuration from the first available standard location, then
// applies environment overrides and defaults. A missing file is not an error.
func Load() (*Config, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFile loads configuration from a specific file, then applies environment
// overrides and defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	setString(&c.Addr, "JOBTALK_ADDR")
	setString(&c.Provider, "LLM_PROVIDER")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.ChatModel, "OPENAI_CHAT_MODEL")
	setString(&c.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setInt(&c.OpenAI.EmbeddingDim, "OPENAI_EMBEDDING_DIM")
	setString(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Anthropic.Model, "ANTHROPIC_MODEL")
	setString(&c.Google.APIKey, "GOOGLE_API_KEY")
	setString(&c.Google.Model, "GOOGLE_MODEL")
	setString(&c.Pinecone.APIKey, "PINECONE_API_KEY")
	setString(&c.Pinecone.Index, "PINECONE_INDEX")
	setString(&c.Pinecone.Cloud, "PINECONE_CLOUD")
	setString(&c.Pinecone.Region, "PINECONE_REGION")
	setString(&c.PDFParseURL, "PDF_PARSE_URL")
}

// applyDefaults fills zero values.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = DefaultChatModel
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.Pinecone.Index == "" {
		c.Pinecone.Index = DefaultIndexName
	}
	if c.Pinecone.Cloud == "" {
		c.Pinecone.Cloud = DefaultCloud
	}
	if c.Pinecone.Region == "" {
		c.Pinecone.Region = DefaultRegion
	}
	if c.PDFParseURL == "" {
		c.PDFParseURL = DefaultPDFParseURL
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
}

// EmbeddingDimension returns the vector length of the active embedder: the
// configured OpenAI dimension when a key is present, otherwise the hash
// fallback dimension. All vectors written to one index must share this length.
func (c *Config) EmbeddingDimension() int {
	if c.OpenAI.APIKey == "" {
		return FallbackEmbeddingDim
	}
	if c.OpenAI.EmbeddingDim > 0 {
		return c.OpenAI.EmbeddingDim
	}
	return OpenAIEmbeddingDim
}

// GenerationProvider resolves which generation backend to use. Returns the
// provider name and its API key, or empty strings when none is configured.
func (c *Config) GenerationProvider() (provider, apiKey string) {
	switch c.Provider {
	case "openai":
		return "openai", c.OpenAI.APIKey
	case "anthropic":
		return "anthropic", c.Anthropic.APIKey
	case "google":
		return "google", c.Google.APIKey
	}
	// Infer from available keys, OpenAI first to match the embedder.
	if c.OpenAI.APIKey != "" {
		return "openai", c.OpenAI.APIKey
	}
	if c.Anthropic.APIKey != "" {
		return "anthropic", c.Anthropic.APIKey
	}
	if c.Google.APIKey != "" {
		return "google", c.Google.APIKey
	}
	return "", ""
}

// GenerationModel returns the model name for the resolved provider.
func (c *Config) GenerationModel() string {
	provider, _ := c.GenerationProvider()
	switch provider {
	case "anthropic":
		return c.Anthropic.Model
	case "google":
		return c.Google.Model
	default:
		return c.OpenAI.ChatModel
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

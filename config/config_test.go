package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobtalk.toml")
	content := `
addr = ":9090"
chunk_size = 500
chunk_overlap = 100

[openai]
api_key = "sk-test"
chat_model = "gpt-4o"

[pinecone]
api_key = "pc-test"
index = "my-index"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("addr: got %q", cfg.Addr)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("chat model: got %q", cfg.OpenAI.ChatModel)
	}
	if cfg.Pinecone.Index != "my-index" {
		t.Errorf("index: got %q", cfg.Pinecone.Index)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 100 {
		t.Errorf("chunking: got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	// Defaults fill unset fields
	if cfg.TopK != DefaultTopK {
		t.Errorf("top_k default: got %d", cfg.TopK)
	}
	if cfg.Pinecone.Cloud != DefaultCloud {
		t.Errorf("cloud default: got %q", cfg.Pinecone.Cloud)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobtalk.toml")
	if err := os.WriteFile(path, []byte("[pinecone]\nindex = \"from-file\"\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PINECONE_INDEX", "from-env")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pinecone.Index != "from-env" {
		t.Errorf("env should override file, got %q", cfg.Pinecone.Index)
	}
}

func TestEmbeddingDimension(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"no key uses fallback dim", Config{}, FallbackEmbeddingDim},
		{"key uses openai dim", Config{OpenAI: OpenAIConfig{APIKey: "sk"}}, OpenAIEmbeddingDim},
		{"explicit dim wins", Config{OpenAI: OpenAIConfig{APIKey: "sk", EmbeddingDim: 3072}}, 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EmbeddingDimension(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerationProvider(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
	}{
		{"none configured", Config{}, ""},
		{"openai inferred", Config{OpenAI: OpenAIConfig{APIKey: "sk"}}, "openai"},
		{"anthropic inferred", Config{Anthropic: AnthropicConfig{APIKey: "ak"}}, "anthropic"},
		{
			"explicit provider wins over inference order",
			Config{
				Provider:  "google",
				OpenAI:    OpenAIConfig{APIKey: "sk"},
				Google:    GoogleConfig{APIKey: "gk"},
				Anthropic: AnthropicConfig{APIKey: "ak"},
			},
			"google",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := tt.cfg.GenerationProvider()
			if provider != tt.wantProvider {
				t.Errorf("got %q, want %q", provider, tt.wantProvider)
			}
		})
	}
}

package interpret

import (
	"os"

	"github.com/m-mizutani/cultra/pkg/agent/fallback"
	"github.com/m-mizutani/cultra/pkg/chunkstore"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of the pipeline
type Config struct {
	ChunkSize           int    `yaml:"chunk_size"`
	ChunkOverlap        int    `yaml:"chunk_overlap"`
	TopK                int    `yaml:"top_k"`
	MaxOutputTokens     int32  `yaml:"max_output_tokens"`
	MaxIterations       int    `yaml:"max_iterations"`
	GenerativeModel     string `yaml:"generative_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int32  `yaml:"embedding_dimensions"`
}

// DefaultConfig returns the settings used when no config file is given
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:           chunkstore.DefaultChunkSize,
		ChunkOverlap:        chunkstore.DefaultChunkOverlap,
		TopK:                4,
		MaxOutputTokens:     512,
		MaxIterations:       fallback.DefaultMaxIterations,
		GenerativeModel:     "gemini-2.5-flash",
		EmbeddingModel:      "gemini-embedding-001",
		EmbeddingDimensions: 768,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("file", path))
	}

	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML config", goerr.V("file", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config", goerr.V("file", path))
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return goerr.New("chunk_size must be positive", goerr.V("chunk_size", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return goerr.New("chunk_overlap must be in [0, chunk_size)",
			goerr.V("chunk_overlap", c.ChunkOverlap),
			goerr.V("chunk_size", c.ChunkSize))
	}
	if c.TopK <= 0 {
		return goerr.New("top_k must be positive", goerr.V("top_k", c.TopK))
	}
	if c.MaxOutputTokens <= 0 {
		return goerr.New("max_output_tokens must be positive", goerr.V("max_output_tokens", c.MaxOutputTokens))
	}
	if c.MaxIterations <= 0 {
		return goerr.New("max_iterations must be positive", goerr.V("max_iterations", c.MaxIterations))
	}
	if c.EmbeddingDimensions <= 0 {
		return goerr.New("embedding_dimensions must be positive", goerr.V("embedding_dimensions", c.EmbeddingDimensions))
	}
	return nil
}

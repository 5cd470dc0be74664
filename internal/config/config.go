// Package config provides configuration loading and structs for the Papyra server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Graph      GraphConfig      `yaml:"graph"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
}

// ServerConfig holds HTTP server settings. CORSOrigin is the single origin
// allowed to call the API.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// StorageConfig holds paths for the offline pipeline files.
type StorageConfig struct {
	RawPDFDir          string `yaml:"raw_pdf_dir"`
	ProcessedDir       string `yaml:"processed_dir"`
	ChunksPath         string `yaml:"chunks_path"`
	EmbeddedChunksPath string `yaml:"embedded_chunks_path"`
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// PauseMs is the pause between embedding calls in the offline embed stage.
	PauseMs int `yaml:"pause_ms"`
}

// GenerationConfig holds LLM settings for extraction and answer synthesis.
type GenerationConfig struct {
	// ExtractionBaseURL/ExtractionModel drive graph extraction and graph
	// answer synthesis (chat-completions API).
	ExtractionBaseURL string `yaml:"extraction_base_url"`
	ExtractionModel   string `yaml:"extraction_model"`
	// AnswerBaseURL/AnswerModel drive final answer generation (messages API).
	AnswerBaseURL string `yaml:"answer_base_url"`
	AnswerModel   string `yaml:"answer_model"`
	MaxTokens     int    `yaml:"max_tokens"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	// ExtractionPauseMs is the pause between extraction calls in the graph
	// build stage.
	ExtractionPauseMs int `yaml:"extraction_pause_ms"`
}

// GraphConfig holds graph store settings. Credentials come from the
// environment, not the file.
type GraphConfig struct {
	URI       string `yaml:"uri"`
	IndexName string `yaml:"index_name"`
	// MergeKey selects the entity upsert key: "name" (entity name + type,
	// stable across chunks) or "id" (extraction-local E<n> ids).
	MergeKey string `yaml:"merge_key"`
	TopK     int    `yaml:"top_k"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	MaxTopK      int `yaml:"max_top_k"`
	PreviewChars int `yaml:"preview_chars"`
}

// Secrets holds credentials read from the environment (optionally seeded from
// a .env file by the caller).
type Secrets struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GraphUser       string
	GraphPassword   string
}

// SecretsFromEnv reads credentials from the process environment.
func SecretsFromEnv() Secrets {
	return Secrets{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GraphUser:       os.Getenv("NEO4J_USER"),
		GraphPassword:   os.Getenv("NEO4J_PASSWORD"),
	}
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.RawPDFDir = expandPath(cfg.Storage.RawPDFDir, configDir)
	cfg.Storage.ProcessedDir = expandPath(cfg.Storage.ProcessedDir, configDir)
	cfg.Storage.ChunksPath = expandPath(cfg.Storage.ChunksPath, configDir)
	cfg.Storage.EmbeddedChunksPath = expandPath(cfg.Storage.EmbeddedChunksPath, configDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.ChunkSize <= 0 {
		return fmt.Errorf("storage.chunk_size must be positive")
	}
	if c.Storage.ChunkOverlap < 0 || c.Storage.ChunkOverlap >= c.Storage.ChunkSize {
		return fmt.Errorf("storage.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Graph.MergeKey != "name" && c.Graph.MergeKey != "id" {
		return fmt.Errorf("graph.merge_key must be %q or %q", "name", "id")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "http://localhost:3000"
	}
	if cfg.Storage.RawPDFDir == "" {
		cfg.Storage.RawPDFDir = "./data/raw_pdfs"
	}
	if cfg.Storage.ProcessedDir == "" {
		cfg.Storage.ProcessedDir = "./data/processed"
	}
	if cfg.Storage.ChunksPath == "" {
		cfg.Storage.ChunksPath = "./data/chunks.json"
	}
	if cfg.Storage.EmbeddedChunksPath == "" {
		cfg.Storage.EmbeddedChunksPath = "./data/chunks_with_embeddings.json"
	}
	if cfg.Storage.ChunkSize == 0 {
		cfg.Storage.ChunkSize = 1000
	}
	if cfg.Storage.ChunkOverlap == 0 {
		cfg.Storage.ChunkOverlap = 200
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.TimeoutSec == 0 {
		cfg.Embedding.TimeoutSec = 60
	}
	if cfg.Embedding.PauseMs == 0 {
		cfg.Embedding.PauseMs = 100
	}
	if cfg.Generation.ExtractionBaseURL == "" {
		cfg.Generation.ExtractionBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.ExtractionModel == "" {
		cfg.Generation.ExtractionModel = "gpt-4o-mini"
	}
	if cfg.Generation.AnswerBaseURL == "" {
		cfg.Generation.AnswerBaseURL = "https://api.anthropic.com"
	}
	if cfg.Generation.AnswerModel == "" {
		cfg.Generation.AnswerModel = "claude-3-5-haiku-20241022"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Generation.TimeoutSec == 0 {
		cfg.Generation.TimeoutSec = 120
	}
	if cfg.Generation.ExtractionPauseMs == 0 {
		cfg.Generation.ExtractionPauseMs = 300
	}
	if cfg.Graph.URI == "" {
		cfg.Graph.URI = "neo4j://localhost:7687"
	}
	if cfg.Graph.IndexName == "" {
		cfg.Graph.IndexName = "entity_embeddings"
	}
	if cfg.Graph.MergeKey == "" {
		cfg.Graph.MergeKey = "name"
	}
	if cfg.Graph.TopK == 0 {
		cfg.Graph.TopK = 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 50
	}
	if cfg.Retrieval.PreviewChars == 0 {
		cfg.Retrieval.PreviewChars = 200
	}
}

// Package main is the Papyra CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/papyra/papyra/internal/chunker"
	"github.com/papyra/papyra/internal/config"
	"github.com/papyra/papyra/internal/embedding"
	"github.com/papyra/papyra/internal/engine"
	"github.com/papyra/papyra/internal/extract"
	"github.com/papyra/papyra/internal/extraction"
	"github.com/papyra/papyra/internal/graph"
	"github.com/papyra/papyra/internal/llm"
	"github.com/papyra/papyra/internal/models"
	"github.com/papyra/papyra/internal/server"
	"github.com/papyra/papyra/internal/storage"
	"github.com/papyra/papyra/internal/vector"
	"github.com/papyra/papyra/internal/watcher"
	"github.com/papyra/papyra/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/papyra/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "chunk":
		runChunk()
	case "embed":
		runEmbed()
	case "graph":
		runGraph()
	case "index":
		runIndex()
	case "query":
		runQuery()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("papyra version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: papyra <command> [flags]

Commands:
  server   Serve the query API
  ingest   Extract text from PDFs into processed documents
  chunk    Split processed documents into chunks
  embed    Attach embeddings to chunks
  graph    Build the knowledge graph from chunks
  index    Create (or drop) the graph store's entity vector index
  query    Ask a question against a running server
  watch    Watch the raw PDF directory and ingest new papers
  version  Print version
`)
}

// setup loads config and builds the logger shared by every command.
func setup(fs *flag.FlagSet, args []string) (*config.Config, config.Secrets, *zap.Logger) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode),
	)
	return cfg, config.SecretsFromEnv(), logger
}

func newEmbedder(cfg *config.Config, secrets config.Secrets) (*embedding.OpenAIEmbedder, error) {
	return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:     secrets.OpenAIAPIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	})
}

func newGraphStore(ctx context.Context, cfg *config.Config, secrets config.Secrets, logger *zap.Logger) (*graph.Store, error) {
	return graph.NewStore(ctx, graph.Config{
		URI:        cfg.Graph.URI,
		User:       secrets.GraphUser,
		Password:   secrets.GraphPassword,
		IndexName:  cfg.Graph.IndexName,
		MergeKey:   cfg.Graph.MergeKey,
		Dimensions: cfg.Embedding.Dimensions,
	}, logger)
}

func newExtractionClient(cfg *config.Config, secrets config.Secrets) *llm.OpenAIClient {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: cfg.Generation.ExtractionBaseURL,
		APIKey:  secrets.OpenAIAPIKey,
		Model:   cfg.Generation.ExtractionModel,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	})
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	cfg, secrets, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	embedder, err := newEmbedder(cfg, secrets)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}

	chunks, err := storage.LoadChunks(cfg.Storage.EmbeddedChunksPath)
	if err != nil {
		logger.Fatal("Failed to load embedded chunks", zap.Error(err))
	}
	index, err := vector.NewFlatIndex(chunks)
	if err != nil {
		logger.Fatal("Failed to build vector index", zap.Error(err))
	}
	logger.Info("vector index built",
		zap.Int("chunks", index.Size()),
		zap.Int("dimensions", index.Dimensions()),
	)

	ctx := context.Background()
	store, err := newGraphStore(ctx, cfg, secrets, logger)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", zap.Error(err))
	}
	defer store.Close(ctx)

	retriever := graph.NewRetriever(store, embedder, newExtractionClient(cfg, secrets), cfg.Graph.TopK)
	generator := llm.NewAnthropicClient(llm.AnthropicConfig{
		BaseURL:   cfg.Generation.AnswerBaseURL,
		APIKey:    secrets.AnthropicAPIKey,
		Model:     cfg.Generation.AnswerModel,
		MaxTokens: cfg.Generation.MaxTokens,
		Timeout:   time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	})

	eng := engine.New(index, embedder, retriever, generator, engine.Options{
		TopK:         cfg.Retrieval.TopK,
		MaxTopK:      cfg.Retrieval.MaxTopK,
		PreviewChars: cfg.Retrieval.PreviewChars,
		CallTimeout:  time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	}, logger)

	srv := server.NewServer(eng, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfg, _, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	n, err := extract.ProcessDirectory(cfg.Storage.RawPDFDir, cfg.Storage.ProcessedDir, logger)
	if err != nil {
		logger.Fatal("Ingest failed", zap.Error(err))
	}
	logger.Info("ingest complete", zap.Int("documents", n))
}

func runChunk() {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	cfg, _, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	docs, err := storage.LoadProcessedDocuments(cfg.Storage.ProcessedDir)
	if err != nil {
		logger.Fatal("Failed to load processed documents", zap.Error(err))
	}
	c, err := chunker.New(cfg.Storage.ChunkSize, cfg.Storage.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}
	var all []*models.Chunk
	for _, doc := range docs {
		chunks := c.Chunk(doc.FullText, doc.Metadata.Filename)
		logger.Debug("chunked document",
			zap.String("file", doc.Metadata.Filename),
			zap.Int("chunks", len(chunks)),
		)
		all = append(all, chunks...)
	}
	if err := storage.SaveChunks(cfg.Storage.ChunksPath, all); err != nil {
		logger.Fatal("Failed to save chunks", zap.Error(err))
	}
	logger.Info("chunking complete",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(all)),
	)
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	cfg, secrets, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	embedder, err := newEmbedder(cfg, secrets)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	chunks, err := storage.LoadChunks(cfg.Storage.ChunksPath)
	if err != nil {
		logger.Fatal("Failed to load chunks", zap.Error(err))
	}
	report, err := embedding.Annotate(context.Background(), embedder, chunks,
		time.Duration(cfg.Embedding.PauseMs)*time.Millisecond, logger)
	if err != nil {
		logger.Fatal("Embedding run aborted", zap.Error(err))
	}
	if err := storage.SaveChunks(cfg.Storage.EmbeddedChunksPath, chunks); err != nil {
		logger.Fatal("Failed to save embedded chunks", zap.Error(err))
	}
	logger.Info("embedding complete",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failures)),
	)
}

func runGraph() {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	cfg, secrets, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	embedder, err := newEmbedder(cfg, secrets)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	chunks, err := storage.LoadChunks(cfg.Storage.ChunksPath)
	if err != nil {
		logger.Fatal("Failed to load chunks", zap.Error(err))
	}

	ctx := context.Background()
	store, err := newGraphStore(ctx, cfg, secrets, logger)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", zap.Error(err))
	}
	defer store.Close(ctx)

	builder := extraction.NewBuilder(
		extraction.NewExtractor(newExtractionClient(cfg, secrets)),
		embedder,
		store,
		time.Duration(cfg.Generation.ExtractionPauseMs)*time.Millisecond,
		logger,
	)
	report, err := builder.Build(ctx, chunks)
	if err != nil {
		logger.Fatal("Graph build aborted", zap.Error(err))
	}
	logger.Info("graph build complete",
		zap.String("report_id", report.ID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("elapsed", report.Elapsed),
	)
	for _, f := range report.Failures {
		logger.Warn("chunk failed", zap.String("chunk_id", f.ChunkID), zap.String("reason", f.Reason))
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	drop := fs.Bool("drop", false, "drop the vector index instead of creating it")
	cfg, secrets, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	ctx := context.Background()
	store, err := newGraphStore(ctx, cfg, secrets, logger)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", zap.Error(err))
	}
	defer store.Close(ctx)

	if *drop {
		if err := store.DropVectorIndex(ctx); err != nil {
			logger.Fatal("Failed to drop vector index", zap.Error(err))
		}
		logger.Info("vector index dropped", zap.String("index", cfg.Graph.IndexName))
		return
	}
	if err := store.EnsureVectorIndex(ctx); err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	topK := fs.Int("top-k", 0, "number of sources (0 = server default)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: papyra query [flags] <question>")
		os.Exit(1)
	}
	question := fs.Arg(0)
	for _, a := range fs.Args()[1:] {
		question += " " + a
	}

	body, _ := json.Marshal(models.QueryRequest{Question: question, TopK: *topK})
	resp, err := http.Post(*serverURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Query failed (status %d): %s\n", resp.StatusCode, string(respBody))
		os.Exit(1)
	}
	var result models.QueryResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Bad response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Question: %s\n\nAnswer:\n%s\n\nSources (%d):\n", result.Question, result.Answer, result.NumSources)
	for _, s := range result.Sources {
		fmt.Printf("  [%d] %s (relevance %s)\n", s.Rank, s.File, s.Relevance)
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, _, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	w := watcher.New(cfg.Storage.RawPDFDir, func(path string) {
		doc, err := extract.ExtractPDF(path)
		if err != nil {
			logger.Warn("PDF extraction failed", zap.String("path", path), zap.Error(err))
			return
		}
		if err := storage.SaveProcessedDocument(cfg.Storage.ProcessedDir, doc); err != nil {
			logger.Warn("save processed document failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("paper ingested",
			zap.String("file", doc.Metadata.Filename),
			zap.Int("pages", doc.Metadata.NumPages),
		)
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	w.Stop()
}

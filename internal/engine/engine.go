// Package engine fuses vector-retrieved passages with graph-retrieved
// insight and generates a cited answer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/papyra/papyra/internal/embedding"
	"github.com/papyra/papyra/internal/llm"
	"github.com/papyra/papyra/internal/models"
	"github.com/papyra/papyra/internal/vector"
	"go.uber.org/zap"
)

// Sentinel errors surfaced to the API layer.
var (
	// ErrEmptyQuestion is returned before any retrieval work when the
	// question is empty or whitespace-only.
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrNotReady is returned when the engine was constructed without a
	// vector index.
	ErrNotReady = errors.New("engine not initialized")
)

const sectionRule = "============================================================"

// GraphRetriever produces a graph-grounded answer fragment for a question.
type GraphRetriever interface {
	Retrieve(ctx context.Context, question string) (string, error)
}

// Options tunes engine behavior. Zero values fall back to defaults.
type Options struct {
	// TopK is the default number of vector results per query.
	TopK int
	// MaxTopK caps the per-request top_k.
	MaxTopK int
	// PreviewChars is the source text preview length.
	PreviewChars int
	// CallTimeout bounds each external call so one slow dependency cannot
	// hang a request.
	CallTimeout time.Duration
}

// Engine is the retrieval fusion core. It holds no per-query mutable state
// and is safe for concurrent use once constructed.
type Engine struct {
	index     *vector.FlatIndex
	embedder  embedding.Embedder
	graph     GraphRetriever
	generator llm.ChatClient
	opts      Options
	logger    *zap.Logger
}

// New creates a fusion engine. The index must be non-nil; a nil index marks
// the engine as permanently not ready.
func New(index *vector.FlatIndex, embedder embedding.Embedder, graph GraphRetriever, generator llm.ChatClient, opts Options, logger *zap.Logger) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 50
	}
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = 200
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	return &Engine{
		index:     index,
		embedder:  embedder,
		graph:     graph,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Ready reports whether the engine can serve queries.
func (e *Engine) Ready() bool {
	return e != nil && e.index != nil
}

// IndexSize returns the number of indexed chunks, or 0 when not ready.
func (e *Engine) IndexSize() int {
	if e == nil || e.index == nil {
		return 0
	}
	return e.index.Size()
}

// Query answers a question using both vector and graph retrieval. topK <= 0
// uses the configured default. Any failure from an external dependency is
// returned as-is; no partial answer is fabricated.
func (e *Engine) Query(ctx context.Context, question string, topK int) (*models.QueryResult, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = e.opts.TopK
	}
	if topK > e.opts.MaxTopK {
		topK = e.opts.MaxTopK
	}
	e.logger.Debug("processing query", zap.String("question", question), zap.Int("top_k", topK))

	// The vector and graph branches are independent; run them concurrently
	// and join before context assembly.
	var (
		hits         []*vector.Hit
		graphInsight string
		errChan      = make(chan error, 2)
		wg           sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := e.vectorBranch(ctx, question, topK)
		if err != nil {
			errChan <- fmt.Errorf("vector retrieval failed: %w", err)
			return
		}
		hits = results
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
		insight, err := e.graph.Retrieve(callCtx, question)
		if err != nil {
			errChan <- fmt.Errorf("graph retrieval failed: %w", err)
			return
		}
		graphInsight = insight
	}()
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	answer, err := e.generate(ctx, question, hits, graphInsight)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &models.QueryResult{
		Question:      question,
		Answer:        answer,
		Sources:       e.shapeSources(hits),
		NumSources:    len(hits),
		GraphInsights: graphInsight,
	}, nil
}

// vectorBranch embeds the question and searches the flat index.
func (e *Engine) vectorBranch(ctx context.Context, question string, topK int) ([]*vector.Hit, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	queryVec, err := e.embedder.Embed(callCtx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return e.index.Search(queryVec, topK)
}

// generate assembles the combined context and makes the single generation
// call.
func (e *Engine) generate(ctx context.Context, question string, hits []*vector.Hit, graphInsight string) (string, error) {
	prompt := buildPrompt(question, assembleContext(hits, graphInsight))
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return e.generator.Complete(callCtx, prompt)
}

// assembleContext concatenates the labeled vector passages and the delimited
// graph-insight block.
func assembleContext(hits []*vector.Hit, graphInsight string) string {
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = fmt.Sprintf("[Source %d: %s]\n%s", i+1, h.Chunk.SourceFile, h.Chunk.Text)
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(passages, "\n\n"))
	sb.WriteString("\n\n")
	sb.WriteString(sectionRule)
	sb.WriteString("\nKnowledge Graph Insights:\n")
	sb.WriteString(sectionRule)
	sb.WriteString("\n\n[Graph Knowledge Base]\n")
	sb.WriteString(graphInsight)
	return sb.String()
}

func buildPrompt(question, context string) string {
	return fmt.Sprintf(`You are a research assistant. Answer the question based ONLY on the provided research papers and knowledge graph.

Context from research papers:
%s

Question: %s

Instructions:
- Answer based only on the provided context
- Cite sources using [Source 1], [Source 2], etc. for paper references
- Use insights from the Knowledge Graph to provide connected information
- If the context doesn't contain enough information, say so
- Be precise and include specific findings when available

Answer:`, context, question)
}

// shapeSources converts vector hits into the cited-source records of the
// response: relevance is 1 - distance formatted as a percentage, the preview
// is the first PreviewChars characters of the chunk text.
func (e *Engine) shapeSources(hits []*vector.Hit) []models.Source {
	sources := make([]models.Source, len(hits))
	for i, h := range hits {
		preview := h.Chunk.Text
		if len(preview) > e.opts.PreviewChars {
			preview = preview[:e.opts.PreviewChars]
		}
		sources[i] = models.Source{
			Rank:        h.Rank,
			File:        h.Chunk.SourceFile,
			Relevance:   fmt.Sprintf("%.2f%%", (1-h.Distance)*100),
			TextPreview: preview + "...",
		}
	}
	return sources
}

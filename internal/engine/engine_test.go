package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/papyra/papyra/internal/models"
	"github.com/papyra/papyra/internal/vector"
	"go.uber.org/zap"
)

type countingEmbedder struct {
	calls int32
	vec   []float32
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	return e.vec, e.err
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vec
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return len(e.vec) }
func (e *countingEmbedder) Close() error    { return nil }

type fakeGraph struct {
	calls   int32
	insight string
	err     error
}

func (g *fakeGraph) Retrieve(ctx context.Context, question string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	return g.insight, g.err
}

type fakeChat struct {
	calls   int32
	answer  string
	err     error
	prompts []string
}

func (c *fakeChat) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

func testIndex(t *testing.T) *vector.FlatIndex {
	t.Helper()
	idx, err := vector.NewFlatIndex([]*models.Chunk{
		{ChunkID: "a.pdf_chunk_0", SourceFile: "a.pdf", Text: "Transformers use attention.", CharCount: 27,
			Embedding: []float32{1, 0}},
		{ChunkID: "b.pdf_chunk_0", SourceFile: "b.pdf", Text: "Scaling laws hold broadly.", CharCount: 26,
			Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func newTestEngine(t *testing.T, emb *countingEmbedder, graph *fakeGraph, chat *fakeChat) *Engine {
	t.Helper()
	return New(testIndex(t), emb, graph, chat, Options{PreviewChars: 10}, zap.NewNop())
}

func TestQuery_EmptyQuestion(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1, 0}}
	graph := &fakeGraph{insight: "none"}
	chat := &fakeChat{answer: "x"}
	e := newTestEngine(t, emb, graph, chat)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := e.Query(context.Background(), q, 5); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("question %q: err=%v, want ErrEmptyQuestion", q, err)
		}
	}
	if emb.calls != 0 || graph.calls != 0 || chat.calls != 0 {
		t.Errorf("empty question must be rejected before any external call: emb=%d graph=%d chat=%d",
			emb.calls, graph.calls, chat.calls)
	}
}

func TestQuery_NotReady(t *testing.T) {
	e := New(nil, &countingEmbedder{}, &fakeGraph{}, &fakeChat{}, Options{}, zap.NewNop())
	if e.Ready() {
		t.Error("engine without index should not be ready")
	}
	if _, err := e.Query(context.Background(), "q", 5); !errors.Is(err, ErrNotReady) {
		t.Errorf("err=%v, want ErrNotReady", err)
	}
	if e.IndexSize() != 0 {
		t.Errorf("IndexSize=%d", e.IndexSize())
	}
}

func TestQuery_FullFlow(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{0.9, 0.1}}
	graph := &fakeGraph{insight: "Transformers relate to attention."}
	chat := &fakeChat{answer: "Answer citing [Source 1]."}
	e := newTestEngine(t, emb, graph, chat)

	result, err := e.Query(context.Background(), "What uses attention?", 2)
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "Answer citing [Source 1]." {
		t.Errorf("answer=%q", result.Answer)
	}
	if result.NumSources != 2 || len(result.Sources) != 2 {
		t.Fatalf("num_sources=%d sources=%d", result.NumSources, len(result.Sources))
	}
	if result.Sources[0].File != "a.pdf" || result.Sources[0].Rank != 1 {
		t.Errorf("first source=%+v", result.Sources[0])
	}
	if result.GraphInsights != graph.insight {
		t.Errorf("graph_insights=%q", result.GraphInsights)
	}

	// Sources are shaped for display.
	src := result.Sources[0]
	if !strings.HasSuffix(src.Relevance, "%") {
		t.Errorf("relevance should be a percentage, got %q", src.Relevance)
	}
	if !strings.HasSuffix(src.TextPreview, "...") {
		t.Errorf("preview should end with ellipsis, got %q", src.TextPreview)
	}
	if len(src.TextPreview) != 10+3 {
		t.Errorf("preview length=%d, want preview chars plus ellipsis", len(src.TextPreview))
	}

	// The generation prompt carries both retrieval branches.
	prompt := chat.prompts[0]
	if !strings.Contains(prompt, "[Source 1: a.pdf]") || !strings.Contains(prompt, "[Source 2: b.pdf]") {
		t.Errorf("prompt missing labeled passages:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Knowledge Graph Insights:") || !strings.Contains(prompt, graph.insight) {
		t.Errorf("prompt missing graph insight:\n%s", prompt)
	}
	if !strings.Contains(prompt, "What uses attention?") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
}

func TestQuery_DefaultAndClampedTopK(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1, 0}}
	e := New(testIndex(t), emb, &fakeGraph{insight: "i"}, &fakeChat{answer: "a"},
		Options{TopK: 1, MaxTopK: 2}, zap.NewNop())

	result, err := e.Query(context.Background(), "q", 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.NumSources != 1 {
		t.Errorf("default top_k should apply, got %d sources", result.NumSources)
	}

	result, err = e.Query(context.Background(), "q", 100)
	if err != nil {
		t.Fatal(err)
	}
	if result.NumSources != 2 {
		t.Errorf("top_k should clamp to index size via max, got %d", result.NumSources)
	}
}

func TestQuery_BranchErrorsPropagate(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1, 0}}

	e := newTestEngine(t, &countingEmbedder{err: errors.New("embed down")}, &fakeGraph{insight: "i"}, &fakeChat{answer: "a"})
	if _, err := e.Query(context.Background(), "q", 1); err == nil || !strings.Contains(err.Error(), "vector retrieval failed") {
		t.Errorf("err=%v, want vector retrieval failure", err)
	}

	e = newTestEngine(t, emb, &fakeGraph{err: errors.New("graph down")}, &fakeChat{answer: "a"})
	if _, err := e.Query(context.Background(), "q", 1); err == nil || !strings.Contains(err.Error(), "graph retrieval failed") {
		t.Errorf("err=%v, want graph retrieval failure", err)
	}

	e = newTestEngine(t, emb, &fakeGraph{insight: "i"}, &fakeChat{err: errors.New("llm down")})
	if _, err := e.Query(context.Background(), "q", 1); err == nil || !strings.Contains(err.Error(), "answer generation failed") {
		t.Errorf("err=%v, want generation failure", err)
	}
}

func TestQuery_ShortPreviewNotTruncated(t *testing.T) {
	idx, err := vector.NewFlatIndex([]*models.Chunk{
		{ChunkID: "s.pdf_chunk_0", SourceFile: "s.pdf", Text: "tiny", CharCount: 4, Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	e := New(idx, &countingEmbedder{vec: []float32{1, 0}}, &fakeGraph{insight: "i"},
		&fakeChat{answer: "a"}, Options{PreviewChars: 200}, zap.NewNop())
	result, err := e.Query(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Sources[0].TextPreview != "tiny..." {
		t.Errorf("preview=%q", result.Sources[0].TextPreview)
	}
}

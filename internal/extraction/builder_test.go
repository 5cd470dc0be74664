package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/papyra/papyra/internal/embedding"
	"github.com/papyra/papyra/internal/models"
	"go.uber.org/zap"
)

// recordingWriter captures writes and can be set to fail.
type recordingWriter struct {
	writes []string
	err    error
}

func (w *recordingWriter) WriteExtraction(ctx context.Context, chunk *models.Chunk, x *models.Extraction, embeddings map[string][]float32) error {
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, chunk.ChunkID)
	return nil
}

func buildChunks(n int) []*models.Chunk {
	chunks := make([]*models.Chunk, n)
	for i := range chunks {
		chunks[i] = &models.Chunk{
			ChunkID:    "p.pdf_chunk_" + string(rune('0'+i)),
			SourceFile: "p.pdf",
			Text:       "chunk text",
			CharCount:  10,
		}
	}
	return chunks
}

func TestBuild_AllSucceed(t *testing.T) {
	chat := &scriptedChat{responses: []string{validExtraction}}
	writer := &recordingWriter{}
	b := NewBuilder(NewExtractor(chat), embedding.NewMockEmbedder(8), writer, 0, zap.NewNop())

	report, err := b.Build(context.Background(), buildChunks(3))
	if err != nil {
		t.Fatal(err)
	}
	if report.Succeeded != 3 || len(report.Failures) != 0 {
		t.Errorf("succeeded=%d failures=%d", report.Succeeded, len(report.Failures))
	}
	if len(writer.writes) != 3 {
		t.Errorf("expected 3 writes, got %d", len(writer.writes))
	}
	if report.ID == "" {
		t.Error("report ID should be set")
	}
}

func TestBuild_PerChunkFailureContinues(t *testing.T) {
	// Second response is garbage; the batch must finish anyway.
	chat := &scriptedChat{responses: []string{validExtraction, "not json", validExtraction}}
	writer := &recordingWriter{}
	b := NewBuilder(NewExtractor(chat), embedding.NewMockEmbedder(8), writer, 0, zap.NewNop())

	report, err := b.Build(context.Background(), buildChunks(3))
	if err != nil {
		t.Fatal(err)
	}
	if report.Succeeded != 2 {
		t.Errorf("succeeded=%d, want 2", report.Succeeded)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures=%d, want 1", len(report.Failures))
	}
	if report.Failures[0].ChunkID != "p.pdf_chunk_1" {
		t.Errorf("failed chunk=%s", report.Failures[0].ChunkID)
	}
	if report.Failures[0].Reason == "" {
		t.Error("failure reason should be recorded")
	}
}

func TestBuild_WriterFailureRecorded(t *testing.T) {
	chat := &scriptedChat{responses: []string{validExtraction}}
	writer := &recordingWriter{err: errors.New("graph store unavailable")}
	b := NewBuilder(NewExtractor(chat), embedding.NewMockEmbedder(8), writer, 0, zap.NewNop())

	report, err := b.Build(context.Background(), buildChunks(2))
	if err != nil {
		t.Fatal(err)
	}
	if report.Succeeded != 0 || len(report.Failures) != 2 {
		t.Errorf("succeeded=%d failures=%d", report.Succeeded, len(report.Failures))
	}
}

func TestBuild_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chat := &scriptedChat{responses: []string{validExtraction}}
	// The chat fake ignores ctx, so the cancellation surfaces through the
	// writer instead.
	writer := &recordingWriter{err: ctx.Err()}
	b := NewBuilder(NewExtractor(chat), embedding.NewMockEmbedder(8), writer, 0, zap.NewNop())
	if _, err := b.Build(ctx, buildChunks(2)); err == nil {
		t.Error("expected context error to abort the batch")
	}
}

func TestBuild_Empty(t *testing.T) {
	b := NewBuilder(NewExtractor(&scriptedChat{responses: []string{validExtraction}}),
		embedding.NewMockEmbedder(8), &recordingWriter{}, 0, zap.NewNop())
	report, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Succeeded != 0 || len(report.Failures) != 0 {
		t.Errorf("empty batch should report nothing, got %+v", report)
	}
}

package embedding

import (
	"context"
	"time"

	"github.com/papyra/papyra/internal/models"
	"go.uber.org/zap"
)

// AnnotateFailure records one chunk that could not be embedded.
type AnnotateFailure struct {
	ChunkID string
	Reason  string
}

// AnnotateReport summarizes an offline embedding run.
type AnnotateReport struct {
	Succeeded int
	Failures  []AnnotateFailure
}

// Annotate attaches an embedding to each chunk in place, pausing between
// calls to respect service throughput limits. Per-chunk failures are recorded
// and leave the chunk without an embedding; they do not stop the run.
func Annotate(ctx context.Context, embedder Embedder, chunks []*models.Chunk, pause time.Duration, logger *zap.Logger) (*AnnotateReport, error) {
	report := &AnnotateReport{}
	for i, chunk := range chunks {
		vec, err := embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("embedding failed",
				zap.String("chunk_id", chunk.ChunkID),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, AnnotateFailure{ChunkID: chunk.ChunkID, Reason: err.Error()})
			continue
		}
		chunk.Embedding = vec
		report.Succeeded++
		if pause > 0 && i < len(chunks)-1 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}
	return report, nil
}

package extraction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/papyra/papyra/internal/embedding"
	"github.com/papyra/papyra/internal/models"
	"go.uber.org/zap"
)

// GraphWriter persists one chunk's extraction into the graph store. Entity
// embeddings are keyed by the extraction-local entity ID.
type GraphWriter interface {
	WriteExtraction(ctx context.Context, chunk *models.Chunk, extraction *models.Extraction, embeddings map[string][]float32) error
}

// Failure records one chunk whose extraction or persistence failed.
type Failure struct {
	ChunkID string
	Reason  string
}

// BatchReport summarizes one graph build run.
type BatchReport struct {
	ID        string
	Succeeded int
	Failures  []Failure
	Elapsed   time.Duration
}

// Builder drives graph extraction over a chunk corpus.
type Builder struct {
	extractor *Extractor
	embedder  embedding.Embedder
	writer    GraphWriter
	pause     time.Duration
	logger    *zap.Logger
}

// NewBuilder creates a batch builder. pause is the delay between extraction
// calls, required to respect the generation service's throughput limits.
func NewBuilder(extractor *Extractor, embedder embedding.Embedder, writer GraphWriter, pause time.Duration, logger *zap.Logger) *Builder {
	return &Builder{
		extractor: extractor,
		embedder:  embedder,
		writer:    writer,
		pause:     pause,
		logger:    logger,
	}
}

// Build extracts and persists a knowledge graph for every chunk, one at a
// time. Per-chunk failures are recorded in the report and do not stop the
// batch; only context cancellation aborts the run.
func (b *Builder) Build(ctx context.Context, chunks []*models.Chunk) (*BatchReport, error) {
	report := &BatchReport{ID: uuid.New().String()}
	start := time.Now()
	for i, chunk := range chunks {
		if err := b.buildOne(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				report.Elapsed = time.Since(start)
				return report, ctx.Err()
			}
			b.logger.Warn("graph extraction failed",
				zap.String("chunk_id", chunk.ChunkID),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, Failure{ChunkID: chunk.ChunkID, Reason: err.Error()})
		} else {
			report.Succeeded++
		}
		if b.pause > 0 && i < len(chunks)-1 {
			select {
			case <-time.After(b.pause):
			case <-ctx.Done():
				report.Elapsed = time.Since(start)
				return report, ctx.Err()
			}
		}
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

func (b *Builder) buildOne(ctx context.Context, chunk *models.Chunk) error {
	extraction, err := b.extractor.Extract(ctx, chunk.Text)
	if err != nil {
		return err
	}
	embeddings, err := b.embedEntities(ctx, extraction.Entities)
	if err != nil {
		return err
	}
	return b.writer.WriteExtraction(ctx, chunk, extraction, embeddings)
}

// embedEntities embeds entity names so the graph store's vector index has
// data to search.
func (b *Builder) embedEntities(ctx context.Context, entities []models.Entity) (map[string][]float32, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	vectors, err := b.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(entities))
	for i, e := range entities {
		out[e.ID] = vectors[i]
	}
	return out, nil
}

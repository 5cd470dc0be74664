// Package graph persists extracted entities and relations in a Neo4j
// property graph and retrieves graph-grounded answers at query time.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/papyra/papyra/internal/models"
	"go.uber.org/zap"
)

// Entity merge key strategies. Merging by extraction-local id reproduces the
// original pipeline but can fuse unrelated entities from different chunks
// that both happen to emit E1; merging by name+type keys on the stable
// identity instead.
const (
	MergeByName = "name"
	MergeByID   = "id"
)

// Config holds connection and schema settings for the graph store.
type Config struct {
	URI       string
	User      string
	Password  string
	IndexName string
	// MergeKey is MergeByName or MergeByID.
	MergeKey string
	// Dimensions of entity embeddings, used when creating the vector index.
	Dimensions int
}

// Store is a long-lived client for the graph database. It is safe to share:
// sessions are per-call and writes use idempotent MERGE upserts.
type Store struct {
	driver    neo4j.DriverWithContext
	indexName string
	mergeKey  string
	dims      int
	logger    *zap.Logger
}

// EntityHit is one entity returned by vector-indexed lookup, with its
// outgoing relations and chunk provenance.
type EntityHit struct {
	Name      string
	Type      string
	Score     float64
	Relations []string
	Sources   []string
}

// NewStore connects to the graph database and verifies connectivity.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.MergeKey != MergeByName && cfg.MergeKey != MergeByID {
		return nil, fmt.Errorf("unknown merge key %q", cfg.MergeKey)
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph store unreachable: %w", err)
	}
	return &Store{
		driver:    driver,
		indexName: cfg.IndexName,
		mergeKey:  cfg.MergeKey,
		dims:      cfg.Dimensions,
		logger:    logger,
	}, nil
}

// EnsureVectorIndex creates the entity-embedding vector index (cosine
// similarity) if it does not exist.
func (s *Store) EnsureVectorIndex(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (e:Entity) ON e.embedding
OPTIONS {indexConfig: {
  `+"`vector.dimensions`"+`: %d,
  `+"`vector.similarity_function`"+`: 'cosine'
}}`, s.indexName, s.dims)
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	s.logger.Info("vector index ensured",
		zap.String("index", s.indexName),
		zap.Int("dimensions", s.dims),
	)
	return nil
}

// DropVectorIndex removes the entity-embedding vector index if present.
func (s *Store) DropVectorIndex(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	if _, err := session.Run(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", s.indexName), nil); err != nil {
		return fmt.Errorf("drop vector index: %w", err)
	}
	return nil
}

// WriteExtraction upserts one chunk's extraction in a single transaction:
// the Chunk node, each Entity with its embedding and a MENTIONED_IN edge,
// and a RELATED_TO edge per relation. Repeating the call with the same data
// creates no duplicate nodes or edges.
func (s *Store) WriteExtraction(ctx context.Context, chunk *models.Chunk, extraction *models.Extraction, embeddings map[string][]float32) error {
	byID := make(map[string]models.Entity, len(extraction.Entities))
	for _, e := range extraction.Entities {
		byID[e.ID] = e
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"MERGE (c:Chunk {id: $cid}) SET c.source = $file",
			map[string]any{"cid": chunk.ChunkID, "file": chunk.SourceFile},
		); err != nil {
			return nil, fmt.Errorf("upsert chunk: %w", err)
		}
		for _, e := range extraction.Entities {
			params := map[string]any{
				"id":        e.ID,
				"name":      e.Name,
				"type":      e.Type,
				"cid":       chunk.ChunkID,
				"embedding": toFloat64(embeddings[e.ID]),
			}
			if _, err := tx.Run(ctx, s.entityUpsertQuery(), params); err != nil {
				return nil, fmt.Errorf("upsert entity %s: %w", e.ID, err)
			}
		}
		for _, r := range extraction.Relations {
			src, dst := byID[r.Source], byID[r.Target]
			params := map[string]any{
				"sid": src.ID, "sname": src.Name, "stype": src.Type,
				"tid": dst.ID, "tname": dst.Name, "ttype": dst.Type,
				"relation": r.Relation,
			}
			if _, err := tx.Run(ctx, s.relationUpsertQuery(), params); err != nil {
				return nil, fmt.Errorf("upsert relation %s-%s: %w", r.Source, r.Target, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	return nil
}

// entityUpsertQuery merges the entity on the configured key and links it to
// its chunk. A null embedding parameter leaves any existing embedding alone.
func (s *Store) entityUpsertQuery() string {
	if s.mergeKey == MergeByID {
		return `MERGE (n:Entity {id: $id})
SET n.name = $name, n.type = $type
SET n.embedding = coalesce($embedding, n.embedding)
WITH n
MATCH (c:Chunk {id: $cid})
MERGE (n)-[:MENTIONED_IN]->(c)`
	}
	return `MERGE (n:Entity {name: $name, type: $type})
SET n.id = $id
SET n.embedding = coalesce($embedding, n.embedding)
WITH n
MATCH (c:Chunk {id: $cid})
MERGE (n)-[:MENTIONED_IN]->(c)`
}

// relationUpsertQuery matches both endpoints by the configured key and
// merges the edge. Distinct relation labels between the same pair yield
// distinct edges.
func (s *Store) relationUpsertQuery() string {
	if s.mergeKey == MergeByID {
		return `MATCH (a:Entity {id: $sid})
MATCH (b:Entity {id: $tid})
MERGE (a)-[:RELATED_TO {type: $relation}]->(b)`
	}
	return `MATCH (a:Entity {name: $sname, type: $stype})
MATCH (b:Entity {name: $tname, type: $ttype})
MERGE (a)-[:RELATED_TO {type: $relation}]->(b)`
}

// SearchEntities runs vector-indexed entity lookup for the query embedding
// and expands each hit with its outgoing relations and source chunks.
func (s *Store) SearchEntities(ctx context.Context, embedding []float32, topK int) ([]*EntityHit, error) {
	query := `CALL db.index.vector.queryNodes($index, $k, $embedding)
YIELD node, score
OPTIONAL MATCH (node)-[r:RELATED_TO]->(m:Entity)
WITH node, score, collect(DISTINCT node.name + ' ' + r.type + ' ' + m.name) AS relations
OPTIONAL MATCH (node)-[:MENTIONED_IN]->(c:Chunk)
RETURN node.name AS name, node.type AS type, score, relations,
       collect(DISTINCT c.source) AS sources
ORDER BY score DESC`
	params := map[string]any{
		"index":     s.indexName,
		"k":         topK,
		"embedding": toFloat64(embedding),
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	hits, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var out []*EntityHit
		for result.Next(ctx) {
			rec := result.Record()
			hit := &EntityHit{
				Name:      stringValue(rec, "name"),
				Type:      stringValue(rec, "type"),
				Relations: stringListValue(rec, "relations"),
				Sources:   stringListValue(rec, "sources"),
			}
			if v, ok := rec.Get("score"); ok {
				if f, ok := v.(float64); ok {
					hit.Score = f
				}
			}
			out = append(out, hit)
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("entity vector search: %w", err)
	}
	return hits.([]*EntityHit), nil
}

// Stats returns entity and chunk node counts.
func (s *Store) Stats(ctx context.Context) (entities, chunks int64, err error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	result, err := session.Run(ctx,
		`MATCH (e:Entity) WITH count(e) AS entities
MATCH (c:Chunk) RETURN entities, count(c) AS chunks`, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("graph stats: %w", err)
	}
	if result.Next(ctx) {
		rec := result.Record()
		if v, ok := rec.Get("entities"); ok {
			entities, _ = v.(int64)
		}
		if v, ok := rec.Get("chunks"); ok {
			chunks, _ = v.(int64)
		}
	}
	return entities, chunks, result.Err()
}

// Close shuts down the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func toFloat64(v []float32) any {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func stringValue(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringListValue(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

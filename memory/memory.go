package memory

import (
	"context"

	"github.com/mindwell-ai/mindwell/core"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local MiniLM), API embedders in
// production. Embedders are an implementation detail of the gate and the
// refresher; nothing else talks to them.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Scorer computes a relevance confidence between a normalized query and a
// candidate artifact. Scores are in [0,1], deterministic for identical
// inputs, and never increase when unrelated content is appended to the
// candidate.
type Scorer interface {
	Score(query *Query, artifact *core.Artifact, entries []*core.ArtifactEntry) float64
}

// Index is an optional per-user vector index over artifact embeddings. The
// gate uses it to shortlist candidates before full scoring; the refresher
// keeps it in sync with stored embeddings.
type Index interface {
	// Upsert records (or replaces) the embedding for an artifact.
	Upsert(ctx context.Context, userID, artifactID string, embedding []float32) error

	// Shortlist returns up to limit artifact ids most similar to the query
	// embedding, best first.
	Shortlist(ctx context.Context, userID string, embedding []float32, limit int) ([]string, error)
}

// Query is a normalized retrieval query. Embedding may be nil when the
// embedder was unavailable; scorers then use the lexical path only.
type Query struct {
	Text      string
	Tokens    []string
	Embedding []float32
}

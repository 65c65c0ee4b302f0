// Package chromem implements the memory.Index shortlist contract on
// chromem-go, a pure Go embedded vector database. Each user gets their own
// collection for namespace isolation.
package chromem

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mindwell-ai/mindwell/memory"
)

// Index keeps one chromem collection per user holding artifact embeddings.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

var _ memory.Index = (*Index)(nil)

func (x *Index) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	x.mu.RLock()
	col, exists := x.collections[userID]
	x.mu.RUnlock()
	if exists {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// Double-check after acquiring the write lock.
	if col, exists := x.collections[userID]; exists {
		return col, nil
	}

	col, err := x.db.CreateCollection(
		fmt.Sprintf("user_%s", userID),
		nil, // embeddings are always provided by the caller
		nil, // default cosine distance
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	x.collections[userID] = col
	return col, nil
}

// Upsert records (or replaces) the embedding for an artifact.
func (x *Index) Upsert(ctx context.Context, userID, artifactID string, embedding []float32) error {
	col, err := x.getOrCreateCollection(userID)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        artifactID,
		Content:   artifactID, // content is unused; retrieval goes through the store
		Embedding: embedding,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Shortlist returns up to limit artifact ids most similar to the query
// embedding, best first.
func (x *Index) Shortlist(ctx context.Context, userID string, embedding []float32, limit int) ([]string, error) {
	col, err := x.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size.
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

package memory

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
)

// Refresher recomputes an artifact's embedding after its entries change.
// Recomputation is fire-and-forget: the triggering request never waits on it
// and errors only feed the log, never the caller's result path. A retrieval
// performed right after a write may therefore use a stale embedding.
type Refresher struct {
	store    store.ArtifactStore
	embedder Embedder
	index    Index // optional

	// timeout bounds one background refresh.
	timeout time.Duration
}

// NewRefresher creates a refresher. index may be nil.
func NewRefresher(s store.ArtifactStore, embedder Embedder, index Index) *Refresher {
	return &Refresher{
		store:    s,
		embedder: embedder,
		index:    index,
		timeout:  30 * time.Second,
	}
}

// Trigger schedules a background refresh for the artifact and returns
// immediately.
func (r *Refresher) Trigger(artifactID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.Refresh(ctx, artifactID); err != nil {
			log.Printf("[MEMORY] embedding refresh failed for artifact %s: %v", artifactID, err)
		}
	}()
}

// Refresh recomputes the embedding synchronously. Exposed for the refresh
// goroutine and for tests.
func (r *Refresher) Refresh(ctx context.Context, artifactID string) error {
	artifact, err := r.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return err
	}
	entries, err := r.store.ListEntries(ctx, artifactID, store.EntryFilter{Limit: 20})
	if err != nil {
		return err
	}

	embedding, err := r.embedder.Embed(ctx, embeddingText(artifact, entries))
	if err != nil {
		return err
	}

	artifact.Embedding = embedding
	artifact.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateArtifact(ctx, artifact); err != nil {
		return err
	}

	if r.index != nil {
		if err := r.index.Upsert(ctx, artifact.UserID, artifact.ID, embedding); err != nil {
			// The stored embedding is authoritative; a stale index only
			// weakens shortlisting.
			log.Printf("[MEMORY] index upsert failed for artifact %s: %v", artifact.ID, err)
		}
	}
	return nil
}

// embeddingText is the canonical text an artifact is embedded from: title,
// summary, tags and recent entry content.
func embeddingText(artifact *core.Artifact, entries []*core.ArtifactEntry) string {
	var parts []string
	parts = append(parts, artifact.Title)
	if artifact.Summary != "" {
		parts = append(parts, artifact.Summary)
	}
	if len(artifact.Tags) > 0 {
		parts = append(parts, strings.Join(artifact.Tags, " "))
	}
	for _, e := range entries {
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, "\n")
}

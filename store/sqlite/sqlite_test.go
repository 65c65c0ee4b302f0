package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
	"github.com/mindwell-ai/mindwell/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLite_ArtifactRoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &core.Artifact{
		ID: "a1", UserID: "u1", Title: "Q3 Roadmap Doc",
		Summary:   "Planning notes",
		Tags:      []string{"planning", "q3"},
		Embedding: []float32{0.25, -1.5, 3.75},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.CreateArtifact(ctx, a))

	got, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Summary, got.Summary)
	assert.Equal(t, a.Tags, got.Tags)
	assert.Equal(t, a.Embedding, got.Embedding)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestSQLite_NotFound(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	_, err := st.GetArtifact(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.FindArtifactByTitle(ctx, "u1", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = st.UpdateArtifact(ctx, &core.Artifact{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = st.UpdateEntry(ctx, &core.ArtifactEntry{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLite_EntryLifecycle(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.CreateArtifact(ctx, &core.Artifact{
		ID: "a1", UserID: "u1", Title: "Notes", CreatedAt: now, UpdatedAt: now,
	}))

	base := now.Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, st.CreateEntry(ctx, &core.ArtifactEntry{
			ID: content, ArtifactID: "a1", Content: content,
			Provenance: core.ProvenanceConversation,
			WorkflowID: "wf-1",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := st.ListEntries(ctx, "a1", store.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Content)
	assert.Equal(t, core.ProvenanceConversation, all[0].Provenance)
	assert.Equal(t, "wf-1", all[0].WorkflowID)

	since := base.Add(1500 * time.Millisecond)
	recent, err := st.ListEntries(ctx, "a1", store.EntryFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "third", recent[0].Content)

	require.NoError(t, st.UpdateEntry(ctx, &core.ArtifactEntry{
		ID: "first", ArtifactID: "a1", Content: "first, edited",
	}))
	all, err = st.ListEntries(ctx, "a1", store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, "first, edited", all[2].Content)
	assert.Equal(t, core.ProvenanceConversation, all[2].Provenance)
}

func TestSQLite_ListArtifactsAndUsers(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.CreateArtifact(ctx, &core.Artifact{
		ID: "old", UserID: "u1", Title: "Old", CreatedAt: old, UpdatedAt: old,
	}))
	now := time.Now().UTC()
	require.NoError(t, st.CreateArtifact(ctx, &core.Artifact{
		ID: "new", UserID: "u1", Title: "New", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, st.CreateArtifact(ctx, &core.Artifact{
		ID: "other", UserID: "u2", Title: "Other", CreatedAt: now, UpdatedAt: now,
	}))

	artifacts, err := st.ListArtifacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "new", artifacts[0].ID)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)
}

func TestSQLite_EmptyEmbeddingStaysNil(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.CreateArtifact(ctx, &core.Artifact{
		ID: "a1", UserID: "u1", Title: "No Vector", CreatedAt: now, UpdatedAt: now,
	}))

	got, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.HasEmbedding())
	assert.Nil(t, got.Tags)
}

package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
	"github.com/mindwell-ai/mindwell/store/memstore"
)

func newArtifact(id, userID, title string) *core.Artifact {
	now := time.Now().UTC()
	return &core.Artifact{
		ID: id, UserID: userID, Title: title,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestStore_ArtifactRoundTrip(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	a := newArtifact("a1", "u1", "Q3 Roadmap Doc")
	a.Tags = []string{"planning", "q3"}
	a.Embedding = []float32{0.1, 0.2}
	require.NoError(t, st.CreateArtifact(ctx, a))

	got, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Tags, got.Tags)
	assert.Equal(t, a.Embedding, got.Embedding)

	// Mutating the returned copy must not leak into the store.
	got.Title = "mutated"
	again, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Q3 Roadmap Doc", again.Title)
}

func TestStore_GetArtifactNotFound(t *testing.T) {
	st := memstore.New()
	_, err := st.GetArtifact(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_UpdateArtifact(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	a := newArtifact("a1", "u1", "Before")
	require.NoError(t, st.CreateArtifact(ctx, a))

	a.Title = "After"
	a.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.UpdateArtifact(ctx, a))

	got, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)

	assert.ErrorIs(t, st.UpdateArtifact(ctx, newArtifact("nope", "u1", "x")), store.ErrNotFound)
}

func TestStore_ListArtifactsNewestFirst(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	old := newArtifact("old", "u1", "Old")
	old.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.CreateArtifact(ctx, old))
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("new", "u1", "New")))
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("other", "u2", "Other")))

	got, err := st.ListArtifacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestStore_FindArtifactByTitle(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a1", "u1", core.SoulArtifactTitle)))

	got, err := st.FindArtifactByTitle(ctx, "u1", core.SoulArtifactTitle)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = st.FindArtifactByTitle(ctx, "u2", core.SoulArtifactTitle)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_EntriesNewestFirstWithFilter(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a1", "u1", "Notes")))

	base := time.Now().UTC().Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, st.CreateEntry(ctx, &core.ArtifactEntry{
			ID: content, ArtifactID: "a1", Content: content,
			Provenance: core.ProvenanceManual,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := st.ListEntries(ctx, "a1", store.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Content)
	assert.Equal(t, "first", all[2].Content)

	limited, err := st.ListEntries(ctx, "a1", store.EntryFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Content)

	since := base.Add(500 * time.Millisecond)
	recent, err := st.ListEntries(ctx, "a1", store.EntryFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestStore_CreateEntryBumpsArtifact(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	a := newArtifact("a1", "u1", "Notes")
	a.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.CreateArtifact(ctx, a))

	require.NoError(t, st.CreateEntry(ctx, &core.ArtifactEntry{
		ID: "e1", ArtifactID: "a1", Content: "x",
		Provenance: core.ProvenanceManual, CreatedAt: time.Now().UTC(),
	}))

	got, err := st.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(a.UpdatedAt))
}

func TestStore_CreateEntryUnknownArtifact(t *testing.T) {
	st := memstore.New()
	err := st.CreateEntry(context.Background(), &core.ArtifactEntry{
		ID: "e1", ArtifactID: "missing", Content: "x",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_UpdateEntryPreservesProvenanceAndOrder(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a1", "u1", "Notes")))

	created := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.CreateEntry(ctx, &core.ArtifactEntry{
		ID: "e1", ArtifactID: "a1", Content: "before",
		Provenance: core.ProvenanceConversation, CreatedAt: created,
	}))

	require.NoError(t, st.UpdateEntry(ctx, &core.ArtifactEntry{
		ID: "e1", ArtifactID: "a1", Content: "after",
	}))

	entries, err := st.ListEntries(ctx, "a1", store.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Content)
	assert.Equal(t, core.ProvenanceConversation, entries[0].Provenance)
	assert.Equal(t, created, entries[0].CreatedAt)

	err = st.UpdateEntry(ctx, &core.ArtifactEntry{ID: "nope", ArtifactID: "a1", Content: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ListUsers(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a1", "zoe", "A")))
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a2", "amir", "B")))
	require.NoError(t, st.CreateArtifact(ctx, newArtifact("a3", "amir", "C")))

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amir", "zoe"}, users)
}

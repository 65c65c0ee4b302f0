package distill_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/distill"
	"github.com/mindwell-ai/mindwell/store"
	"github.com/mindwell-ai/mindwell/store/memstore"
)

func seedUser(t *testing.T, st store.ArtifactStore, userID string, entries ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	artifact := &core.Artifact{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "Notes",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateArtifact(ctx, artifact))
	for _, content := range entries {
		require.NoError(t, st.CreateEntry(ctx, &core.ArtifactEntry{
			ID:         uuid.NewString(),
			ArtifactID: artifact.ID,
			Content:    content,
			Provenance: core.ProvenanceConversation,
			CreatedAt:  time.Now().UTC(),
		}))
	}
}

func soulEntries(t *testing.T, st store.ArtifactStore, userID string) []*core.ArtifactEntry {
	t.Helper()
	ctx := context.Background()
	soul, err := st.FindArtifactByTitle(ctx, userID, core.SoulArtifactTitle)
	require.NoError(t, err)
	entries, err := st.ListEntries(ctx, soul.ID, store.EntryFilter{})
	require.NoError(t, err)
	return entries
}

func TestScheduler_CreatesSoulAndAppendsInsights(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	seedUser(t, st, "u1",
		"Prefers short answers.",
		"Works on the retrieval latency project.",
	)

	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller())
	run, err := scheduler.RunForAllUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.UsersProcessed)
	assert.Empty(t, run.Errors)
	assert.Greater(t, run.TotalInsights, 0)

	entries := soulEntries(t, st, "u1")
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, core.ProvenanceDistilled, e.Provenance)
	}
}

func TestScheduler_SecondRunIsIdempotent(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	seedUser(t, st, "u1", "Prefers short answers.")

	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller())
	ctx := context.Background()

	first, err := scheduler.RunForAllUsers(ctx)
	require.NoError(t, err)
	require.Greater(t, first.TotalInsights, 0)

	// Nothing new since the first run, so nothing more is appended.
	second, err := scheduler.RunForAllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalInsights)
	assert.Len(t, soulEntries(t, st, "u1"), first.TotalInsights)
}

func TestScheduler_NewEntriesAfterRunAreDistilled(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	seedUser(t, st, "u1", "Prefers short answers.")

	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller())
	ctx := context.Background()

	_, err := scheduler.RunForAllUsers(ctx)
	require.NoError(t, err)

	seedUser(t, st, "u1", "Recently adopted a dog named Pixel.")
	run, err := scheduler.RunForAllUsers(ctx)
	require.NoError(t, err)
	assert.Greater(t, run.TotalInsights, 0)
}

// failingStore fails artifact listing for one user to prove isolation.
type failingStore struct {
	store.ArtifactStore
	failUser string
}

func (f *failingStore) ListArtifacts(ctx context.Context, userID string) ([]*core.Artifact, error) {
	if userID == f.failUser {
		return nil, errors.New("simulated storage failure")
	}
	return f.ArtifactStore.ListArtifacts(ctx, userID)
}

func TestScheduler_UserFailureDoesNotAffectOthers(t *testing.T) {
	inner := memstore.New()
	defer inner.Close()
	seedUser(t, inner, "good", "Likes green tea.")
	seedUser(t, inner, "bad", "Never sees this.")

	st := &failingStore{ArtifactStore: inner, failUser: "bad"}
	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller(), distill.WithConcurrency(1))

	run, err := scheduler.RunForAllUsers(context.Background())
	require.NoError(t, err)

	// Both users were attempted; the failure shows up in Errors, not as a
	// smaller processed count.
	assert.Equal(t, 2, run.UsersProcessed)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, "bad", run.Errors[0].UserID)
	assert.Contains(t, run.Errors[0].Message, "simulated storage failure")

	assert.NotEmpty(t, soulEntries(t, inner, "good"))
}

func TestScheduler_EmptyBatchAppendsNothing(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	// An artifact with no entries gives the distiller nothing to fold.
	require.NoError(t, st.CreateArtifact(context.Background(), &core.Artifact{
		ID: uuid.NewString(), UserID: "u1", Title: "Empty",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller())
	run, err := scheduler.RunForAllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, run.TotalInsights)
}

func TestHeuristicDistiller_DedupesAndCaps(t *testing.T) {
	d := distill.NewHeuristicDistiller()

	var entries []*core.ArtifactEntry
	for i := 0; i < 4; i++ {
		entries = append(entries, &core.ArtifactEntry{Content: "Repeated observation about green tea."})
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, &core.ArtifactEntry{Content: fmt.Sprintf("Distinct note number %d about topic %d.", i, i)})
	}

	insights, err := d.Distill(context.Background(), entries)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(insights), distill.MaxInsightsPerRun)

	seen := map[string]bool{}
	for _, s := range insights {
		assert.False(t, seen[s], "duplicate insight %q", s)
		seen[s] = true
	}
}

func TestHeuristicDistiller_EmptyInput(t *testing.T) {
	d := distill.NewHeuristicDistiller()
	insights, err := d.Distill(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/memory/embedder/mock"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"remind me about the Q3 roadmap doc", []string{"q3", "roadmap", "doc"}},
		{"What's on my grocery list?", []string{"grocery", "list"}},
		{"", nil},
		{"the a of to", nil},
		{"GMAIL_SEND_EMAIL", []string{"gmail", "send", "email"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, memory.Tokenize(tt.in), "input %q", tt.in)
	}
}

func query(text string) *memory.Query {
	return &memory.Query{Text: text, Tokens: memory.Tokenize(text)}
}

func TestHybridScorer_RangeAndDeterminism(t *testing.T) {
	scorer := memory.NewHybridScorer()
	artifact := &core.Artifact{Title: "Q3 Roadmap Doc", Summary: "Planning notes"}
	q := query("remind me about the Q3 roadmap doc")

	first := scorer.Score(q, artifact, nil)
	assert.GreaterOrEqual(t, first, 0.0)
	assert.LessOrEqual(t, first, 1.0)

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, scorer.Score(q, artifact, nil))
	}
}

func TestHybridScorer_RelevantBeatsUnrelated(t *testing.T) {
	scorer := memory.NewHybridScorer()
	q := query("remind me about the Q3 roadmap doc")

	roadmap := &core.Artifact{Title: "Q3 Roadmap Doc", Summary: "Planning notes for the quarter"}
	grocery := &core.Artifact{Title: "Grocery List", Summary: "Standing grocery preferences"}

	assert.GreaterOrEqual(t, scorer.Score(q, roadmap, nil), 0.85)
	assert.Less(t, scorer.Score(q, grocery, nil), 0.3)
}

func TestHybridScorer_MonotonicUnderUnrelatedAppends(t *testing.T) {
	scorer := memory.NewHybridScorer()
	q := query("remind me about the Q3 roadmap doc")
	artifact := &core.Artifact{Title: "Q3 Roadmap Doc"}

	entries := []*core.ArtifactEntry{
		{Content: "The roadmap doc lives in the shared drive."},
	}
	before := scorer.Score(q, artifact, entries)

	// Appending content that shares no tokens with the query must never
	// raise the score.
	entries = append(entries,
		&core.ArtifactEntry{Content: "Completely unrelated musing on sourdough hydration."},
		&core.ArtifactEntry{Content: "Another stray note, ferret husbandry this time."},
	)
	after := scorer.Score(q, artifact, entries)

	assert.LessOrEqual(t, after, before)
}

func TestHybridScorer_EmbeddingPath(t *testing.T) {
	ctx := context.Background()
	scorer := memory.NewHybridScorer()
	embedder := mock.New()

	text := "shared phrasing for both sides"
	vec, err := embedder.Embed(ctx, text)
	require.NoError(t, err)

	// Identical embeddings give cosine 1 even with zero lexical overlap.
	q := &memory.Query{Text: text, Tokens: nil, Embedding: vec}
	artifact := &core.Artifact{Title: "xyz", Embedding: vec}
	assert.InDelta(t, 1.0, scorer.Score(q, artifact, nil), 1e-6)
}

func TestHybridScorer_NoEmbeddingDegradesToLexical(t *testing.T) {
	scorer := memory.NewHybridScorer()
	q := query("q3 roadmap")
	artifact := &core.Artifact{Title: "Q3 Roadmap Doc"} // no embedding

	assert.Greater(t, scorer.Score(q, artifact, nil), 0.0)
}

func TestHybridScorer_DimensionMismatchIgnoresEmbedding(t *testing.T) {
	scorer := memory.NewHybridScorer()
	q := &memory.Query{Tokens: nil, Embedding: []float32{1, 0, 0}}
	artifact := &core.Artifact{Title: "anything", Embedding: []float32{1, 0}}

	assert.Equal(t, 0.0, scorer.Score(q, artifact, nil))
}

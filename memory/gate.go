package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
)

// Retrieval modes. High precision is used when auto-injection must rarely be
// wrong; broad is used when candidates are surfaced to the client with a
// confidence label.
const (
	HighPrecisionThreshold = 0.85
	HighPrecisionMax       = 2

	BroadThreshold = 0.6
	BroadMax       = 3

	// highLabelThreshold splits broad results into "high" and "possible".
	highLabelThreshold = 0.8
)

// GateConfig holds gate tuning knobs.
type GateConfig struct {
	// ContextBudget is the hard character cap for the injected block.
	ContextBudget int

	// EntriesPerArtifact is how many recent entries are rendered (and
	// scored) per artifact.
	EntriesPerArtifact int

	// HistoryWindow is how many recent history messages enrich the query.
	HistoryWindow int

	// ShortlistMin is the artifact count above which the vector index is
	// consulted before full scoring; ShortlistLimit caps the shortlist.
	ShortlistMin   int
	ShortlistLimit int
}

// DefaultGateConfig returns sensible defaults.
var DefaultGateConfig = &GateConfig{
	ContextBudget:      4000,
	EntriesPerArtifact: 5,
	HistoryWindow:      4,
	ShortlistMin:       24,
	ShortlistLimit:     20,
}

// Gate orchestrates scoring, thresholding, ranking and manual overrides to
// produce the context block injected into a conversation turn.
type Gate struct {
	store    store.ArtifactStore
	embedder Embedder
	scorer   Scorer
	index    Index
	cfg      *GateConfig
}

// GateOption configures the gate.
type GateOption func(*Gate)

// WithIndex attaches a vector index used to shortlist candidates for users
// with many artifacts.
func WithIndex(idx Index) GateOption {
	return func(g *Gate) { g.index = idx }
}

// WithGateConfig overrides the default configuration.
func WithGateConfig(cfg *GateConfig) GateOption {
	return func(g *Gate) { g.cfg = cfg }
}

// NewGate creates a retrieval gate.
func NewGate(s store.ArtifactStore, embedder Embedder, scorer Scorer, opts ...GateOption) *Gate {
	g := &Gate{
		store:    s,
		embedder: embedder,
		scorer:   scorer,
		cfg:      DefaultGateConfig,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// scored pairs a candidate with its artifact for ordering.
type scored struct {
	candidate core.RetrievalCandidate
	updatedAt time.Time
}

// FindCandidates fetches the user's non-soul artifacts, scores each against
// the message (enriched with a short history window), drops scores below
// minConfidence, merges manual ids at maximum confidence, sorts by score
// descending (most recently updated first on ties) and truncates to
// maxArtifacts.
//
// Retrieval is best-effort: every failure degrades to fewer (or zero)
// candidates and is logged, never surfaced to the chat turn.
func (g *Gate) FindCandidates(ctx context.Context, userID, message string, history []core.Message, manualIDs []string, maxArtifacts int, minConfidence float64) []core.RetrievalCandidate {
	if maxArtifacts <= 0 {
		return nil
	}

	query := g.buildQuery(ctx, message, history)

	artifacts, err := g.store.ListArtifacts(ctx, userID)
	if err != nil {
		log.Printf("[MEMORY] artifact fetch failed for user %s: %v", userID, err)
		artifacts = nil
	}

	candidates := make([]scored, 0, len(artifacts))
	manual := make(map[string]bool, len(manualIDs))
	for _, id := range manualIDs {
		manual[id] = true
	}

	for _, artifact := range g.shortlist(ctx, userID, query, artifacts) {
		if artifact.IsSoul() || manual[artifact.ID] {
			continue
		}
		entries, err := g.store.ListEntries(ctx, artifact.ID, store.EntryFilter{Limit: g.cfg.EntriesPerArtifact})
		if err != nil {
			log.Printf("[MEMORY] entry fetch failed for artifact %s: %v", artifact.ID, err)
			entries = nil
		}
		score := g.scorer.Score(query, artifact, entries)
		if score < minConfidence {
			continue
		}
		candidates = append(candidates, scored{
			candidate: core.RetrievalCandidate{
				ArtifactID: artifact.ID,
				Confidence: score,
				Source:     core.SourceAuto,
			},
			updatedAt: artifact.UpdatedAt,
		})
	}

	// Manual ids are forced in at maximum confidence regardless of score,
	// but only the user's own artifacts. Unknown or foreign ids are dropped:
	// manual selection must never reach across users.
	for _, id := range manualIDs {
		artifact, err := g.store.GetArtifact(ctx, id)
		if err != nil {
			log.Printf("[MEMORY] manual artifact %s unavailable: %v", id, err)
			continue
		}
		if artifact.UserID != userID {
			log.Printf("[MEMORY] manual artifact %s rejected: not owned by user %s", id, userID)
			continue
		}
		candidates = append(candidates, scored{
			candidate: core.RetrievalCandidate{
				ArtifactID: id,
				Confidence: core.ManualConfidence,
				Source:     core.SourceManual,
			},
			updatedAt: artifact.UpdatedAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].candidate.Confidence != candidates[j].candidate.Confidence {
			return candidates[i].candidate.Confidence > candidates[j].candidate.Confidence
		}
		return candidates[i].updatedAt.After(candidates[j].updatedAt)
	})

	if len(candidates) > maxArtifacts {
		candidates = candidates[:maxArtifacts]
	}

	out := make([]core.RetrievalCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.candidate
	}
	return out
}

// FindHighPrecision runs the gate in the mode used for silent auto-injection:
// very high threshold, at most two artifacts.
func (g *Gate) FindHighPrecision(ctx context.Context, userID, message string, history []core.Message, manualIDs []string) []core.RetrievalCandidate {
	return g.FindCandidates(ctx, userID, message, history, manualIDs, HighPrecisionMax, HighPrecisionThreshold)
}

// FindBroad runs the gate in the looser mode whose results are labeled for
// client display.
func (g *Gate) FindBroad(ctx context.Context, userID, message string, history []core.Message, manualIDs []string) []core.RetrievalCandidate {
	return g.FindCandidates(ctx, userID, message, history, manualIDs, BroadMax, BroadThreshold)
}

// Label buckets a candidate's confidence for client display.
func Label(c core.RetrievalCandidate) core.ConfidenceLabel {
	if c.Confidence >= highLabelThreshold {
		return core.ConfidenceHigh
	}
	return core.ConfidencePossible
}

// Injected resolves candidates to the shape reported in the final stream
// frame. Unresolvable artifacts and artifacts not owned by userID are
// skipped.
func (g *Gate) Injected(ctx context.Context, userID string, candidates []core.RetrievalCandidate) []core.InjectedArtifact {
	var out []core.InjectedArtifact
	for _, c := range candidates {
		artifact, err := g.store.GetArtifact(ctx, c.ArtifactID)
		if err != nil {
			log.Printf("[MEMORY] cannot resolve injected artifact %s: %v", c.ArtifactID, err)
			continue
		}
		if artifact.UserID != userID {
			log.Printf("[MEMORY] injected artifact %s rejected: not owned by user %s", c.ArtifactID, userID)
			continue
		}
		out = append(out, core.InjectedArtifact{
			ID:         artifact.ID,
			Title:      artifact.Title,
			Confidence: Label(c),
		})
	}
	return out
}

// FormatForContext renders the selected artifacts into a bounded block for
// prompt injection. Once selected, an artifact is never omitted; entry
// content is truncated instead to honor the character budget. Artifacts not
// owned by userID never render.
func (g *Gate) FormatForContext(ctx context.Context, userID string, candidates []core.RetrievalCandidate) string {
	if len(candidates) == 0 {
		return ""
	}

	perArtifact := g.cfg.ContextBudget / len(candidates)
	if perArtifact < 200 {
		perArtifact = 200
	}

	var parts []string
	parts = append(parts, "=== RELEVANT MEMORY ===")

	for i, c := range candidates {
		artifact, err := g.store.GetArtifact(ctx, c.ArtifactID)
		if err != nil {
			log.Printf("[MEMORY] cannot resolve artifact %s for context: %v", c.ArtifactID, err)
			continue
		}
		if artifact.UserID != userID {
			log.Printf("[MEMORY] artifact %s rejected for context: not owned by user %s", c.ArtifactID, userID)
			continue
		}
		entries, err := g.store.ListEntries(ctx, artifact.ID, store.EntryFilter{Limit: g.cfg.EntriesPerArtifact})
		if err != nil {
			log.Printf("[MEMORY] entry fetch failed for artifact %s: %v", artifact.ID, err)
			entries = nil
		}
		parts = append(parts, formatArtifact(i+1, artifact, entries, perArtifact))
	}
	if len(parts) == 1 {
		// Nothing survived resolution; no header-only block.
		return ""
	}

	block := strings.Join(parts, "\n\n")
	return cutAtRune(block, g.cfg.ContextBudget)
}

// formatArtifact renders one artifact within its character budget.
func formatArtifact(n int, artifact *core.Artifact, entries []*core.ArtifactEntry, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s\n", n, artifact.Title)
	if artifact.Summary != "" {
		fmt.Fprintf(&b, "   %s\n", truncate(artifact.Summary, budget/4))
	}
	if len(entries) > 0 {
		remaining := budget - b.Len()
		if remaining < 40 {
			remaining = 40
		}
		per := remaining / len(entries)
		for _, e := range entries {
			fmt.Fprintf(&b, "   - %s\n", truncate(e.Content, per))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildQuery normalizes the message plus a short history window and embeds
// it. Embedding failures degrade to lexical-only scoring.
func (g *Gate) buildQuery(ctx context.Context, message string, history []core.Message) *Query {
	text := message
	if n := len(history); n > 0 && g.cfg.HistoryWindow > 0 {
		start := n - g.cfg.HistoryWindow
		if start < 0 {
			start = 0
		}
		var recent []string
		for _, m := range history[start:] {
			recent = append(recent, m.Content)
		}
		text = strings.Join(recent, "\n") + "\n" + message
	}

	query := &Query{Text: text, Tokens: Tokenize(message)}

	if g.embedder != nil {
		embedding, err := g.embedder.Embed(ctx, text)
		if err != nil {
			log.Printf("[MEMORY] query embedding failed: %v", err)
		} else {
			query.Embedding = embedding
		}
	}
	return query
}

// shortlist narrows the candidate set via the vector index when the user has
// many artifacts. Artifacts without an embedding are always kept so the
// lexical fallback still sees them.
func (g *Gate) shortlist(ctx context.Context, userID string, query *Query, artifacts []*core.Artifact) []*core.Artifact {
	if g.index == nil || len(query.Embedding) == 0 || len(artifacts) <= g.cfg.ShortlistMin {
		return artifacts
	}

	ids, err := g.index.Shortlist(ctx, userID, query.Embedding, g.cfg.ShortlistLimit)
	if err != nil {
		log.Printf("[MEMORY] index shortlist failed for user %s: %v", userID, err)
		return artifacts
	}

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]*core.Artifact, 0, len(ids))
	for _, a := range artifacts {
		if !a.HasEmbedding() || keep[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// truncate shortens s to at most maxLen bytes, appending "..." when cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return cutAtRune(s, maxLen-3) + "..."
}

// cutAtRune shortens s to at most n bytes without splitting a rune.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package memory

import (
	"math"
	"strings"
	"unicode"

	"github.com/mindwell-ai/mindwell/core"
)

// stopwords are dropped during query normalization. The list includes the
// intent scaffolding users wrap memory queries in ("remind me about ...").
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "to": true, "in": true,
	"on": true, "at": true, "for": true, "and": true, "or": true, "is": true,
	"are": true, "was": true, "be": true, "it": true, "this": true,
	"that": true, "my": true, "me": true, "you": true, "your": true,
	"i": true, "we": true, "do": true, "does": true, "did": true,
	"what": true, "whats": true, "which": true, "about": true, "with": true,
	"have": true, "has": true, "can": true, "could": true, "please": true,
	"remind": true, "remember": true, "recall": true, "show": true,
	"find": true, "tell": true, "know": true,
}

// Tokenize lowercases text, splits on non-alphanumeric runes and drops
// stopwords and single-rune fragments.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var tokens []string
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// HybridScorer scores via embedding cosine similarity when both sides have a
// usable embedding, with a lexical coverage heuristic as the floor. The final
// confidence is the max of the two paths, so artifacts with no embedding
// degrade to lexical scoring instead of failing.
type HybridScorer struct{}

// NewHybridScorer returns the default scorer.
func NewHybridScorer() *HybridScorer { return &HybridScorer{} }

var _ Scorer = (*HybridScorer)(nil)

// Score implements Scorer.
func (s *HybridScorer) Score(query *Query, artifact *core.Artifact, entries []*core.ArtifactEntry) float64 {
	lex := lexicalScore(query.Tokens, artifact, entries)
	emb := embeddingScore(query.Embedding, artifact.Embedding)
	return clamp01(math.Max(lex, emb))
}

// lexicalScore is query-token coverage over the artifact's visible text with
// a small bonus for a title hit. Coverage can only stay equal or shrink when
// unrelated content is appended, which keeps the score monotonic.
func lexicalScore(queryTokens []string, artifact *core.Artifact, entries []*core.ArtifactEntry) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	titleTokens := tokenSet(Tokenize(artifact.Title))

	var b strings.Builder
	b.WriteString(artifact.Title)
	b.WriteByte(' ')
	b.WriteString(artifact.Summary)
	for _, tag := range artifact.Tags {
		b.WriteByte(' ')
		b.WriteString(tag)
	}
	for _, e := range entries {
		b.WriteByte(' ')
		b.WriteString(e.Content)
	}
	body := tokenSet(Tokenize(b.String()))

	matched := 0
	titleHit := false
	for _, q := range queryTokens {
		if body[q] {
			matched++
		}
		if titleTokens[q] {
			titleHit = true
		}
	}
	if matched == 0 {
		return 0
	}

	score := 0.85 * float64(matched) / float64(len(queryTokens))
	if titleHit {
		score += 0.15
	}
	return score
}

// embeddingScore is cosine similarity clamped to [0,1]; 0 when either side
// has no usable embedding or the dimensions disagree.
func embeddingScore(query, candidate []float32) float64 {
	if len(query) == 0 || len(candidate) == 0 || len(query) != len(candidate) {
		return 0
	}
	var dot, qn, cn float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
		qn += float64(query[i]) * float64(query[i])
		cn += float64(candidate[i]) * float64(candidate[i])
	}
	if qn == 0 || cn == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(qn) * math.Sqrt(cn)))
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

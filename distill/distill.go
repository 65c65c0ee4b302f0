// Package distill folds recent artifact entries into durable per-user
// insight entries on a reserved "soul" artifact. It runs on a timer, not in
// the request path; a failure for one user never affects the others.
package distill

import (
	"context"
	"sort"
	"strings"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/memory"
)

// Distiller condenses a batch of entries into insight statements. An empty
// result is valid: not every batch contains anything durable.
type Distiller interface {
	Distill(ctx context.Context, entries []*core.ArtifactEntry) ([]string, error)
}

// MaxInsightsPerRun caps how many insights one run appends per user.
const MaxInsightsPerRun = 5

// HeuristicDistiller is a deterministic extractive distiller: it ranks the
// batch's sentences by how much of the batch vocabulary they cover and keeps
// the top few distinct ones. No model call, so it works keyless and in tests.
type HeuristicDistiller struct{}

// NewHeuristicDistiller returns the default distiller.
func NewHeuristicDistiller() *HeuristicDistiller { return &HeuristicDistiller{} }

var _ Distiller = (*HeuristicDistiller)(nil)

// Distill implements Distiller.
func (d *HeuristicDistiller) Distill(ctx context.Context, entries []*core.ArtifactEntry) ([]string, error) {
	// Batch vocabulary frequency.
	freq := make(map[string]int)
	var sentences []string
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, s := range splitSentences(e.Content) {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			sentences = append(sentences, s)
			for _, tok := range memory.Tokenize(s) {
				freq[tok]++
			}
		}
	}
	if len(sentences) == 0 {
		return nil, nil
	}

	type ranked struct {
		text  string
		score float64
		pos   int
	}
	rankedSentences := make([]ranked, 0, len(sentences))
	for i, s := range sentences {
		tokens := memory.Tokenize(s)
		if len(tokens) == 0 {
			continue
		}
		var sum int
		for _, tok := range tokens {
			sum += freq[tok]
		}
		rankedSentences = append(rankedSentences, ranked{
			text:  strings.TrimSpace(s),
			score: float64(sum) / float64(len(tokens)),
			pos:   i,
		})
	}

	sort.SliceStable(rankedSentences, func(i, j int) bool {
		if rankedSentences[i].score != rankedSentences[j].score {
			return rankedSentences[i].score > rankedSentences[j].score
		}
		return rankedSentences[i].pos < rankedSentences[j].pos
	})

	n := len(rankedSentences)
	if n > MaxInsightsPerRun {
		n = MaxInsightsPerRun
	}
	insights := make([]string, 0, n)
	for _, r := range rankedSentences[:n] {
		insights = append(insights, r.text)
	}
	return insights, nil
}

// splitSentences breaks text on terminal punctuation and newlines.
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		start := 0
		for i, r := range line {
			if r == '.' || r == '!' || r == '?' {
				if s := strings.TrimSpace(line[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
		if s := strings.TrimSpace(line[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// feedAll pushes chunks through a fresh filter and returns everything the
// client would see, including the end-of-stream flush.
func feedAll(chunks ...string) string {
	var f ThinkFilter
	out := ""
	for _, c := range chunks {
		out += f.Feed(c)
	}
	return out + f.Flush()
}

func TestThinkFilter_StripsReasoningSpan(t *testing.T) {
	assert.Equal(t, "Hello world", feedAll("Hello <think>secret plan</think>world"))
}

func TestThinkFilter_PassesPlainText(t *testing.T) {
	assert.Equal(t, "just text, no markers", feedAll("just text, no markers"))
}

func TestThinkFilter_MultipleSpans(t *testing.T) {
	in := "a<think>x</think>b<think>y</think>c"
	assert.Equal(t, "abc", feedAll(in))
}

func TestThinkFilter_SplitInvariance(t *testing.T) {
	inputs := []string{
		"Hello <think>hidden</think> world",
		"<think>lead</think>tail",
		"head<think>trail",
		"a<think>x</think>b<think>y</think>c",
		"no markers at all",
		"ends with partial <thi",
		"<think></think>",
		"text with < lone bracket <th not a marker",
	}
	for _, input := range inputs {
		want := feedAll(input)
		// Every split point of the input must yield identical client output.
		for i := 0; i <= len(input); i++ {
			got := feedAll(input[:i], input[i:])
			assert.Equalf(t, want, got, "input %q split at %d", input, i)
		}
	}
}

func TestThinkFilter_MarkerAcrossManyChunks(t *testing.T) {
	// One byte per chunk is the worst case for marker reassembly.
	input := "say <think>quiet</think>loud"
	chunks := make([]string, 0, len(input))
	for i := 0; i < len(input); i++ {
		chunks = append(chunks, input[i:i+1])
	}
	assert.Equal(t, "say loud", feedAll(chunks...))
}

func TestThinkFilter_DanglingOpenFragmentIsText(t *testing.T) {
	// A partial marker that never completes was ordinary text.
	assert.Equal(t, "trailing <thin", feedAll("trailing <thin"))
}

func TestThinkFilter_UnterminatedSpanStaysSuppressed(t *testing.T) {
	assert.Equal(t, "before ", feedAll("before <think>never closed"))
}

func TestThinkFilter_FeedReleasesTextBeforeOpenSpan(t *testing.T) {
	var f ThinkFilter
	assert.Equal(t, "visible ", f.Feed("visible <think>hidden"))
	assert.Equal(t, "", f.Feed(" more hidden"))
	assert.Equal(t, " done", f.Feed("</think> done"))
	assert.Equal(t, "", f.Flush())
}

func TestPartialMarkerSuffix(t *testing.T) {
	tests := []struct {
		s, want string
	}{
		{"abc<", "<"},
		{"abc<th", "<th"},
		{"abc<think", "<think"},
		{"abc", ""},
		{"<think", "<think"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.s), func(t *testing.T) {
			assert.Equal(t, tt.want, partialMarkerSuffix(tt.s, openMarker))
		})
	}
}

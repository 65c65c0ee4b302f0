package stream

import "strings"

// Reasoning-trace markers. Text between the markers must never reach the
// client.
const (
	openMarker  = "<think>"
	closeMarker = "</think>"
)

// ThinkFilter strips reasoning spans from streamed text. It is stateful
// because a marker may straddle any number of chunk boundaries: a fragment at
// the end of a chunk that could still grow into a full marker is held back
// and prefixed onto the next chunk rather than emitted or discarded.
//
// A filter is owned by exactly one in-flight stream; zero value is ready to
// use.
type ThinkFilter struct {
	inside bool
	carry  string
}

// Feed pushes one chunk through the filter and returns the client-visible
// text it releases, which may be empty.
func (f *ThinkFilter) Feed(chunk string) string {
	buf := f.carry + chunk
	f.carry = ""

	var out strings.Builder
	for buf != "" {
		if f.inside {
			i := strings.Index(buf, closeMarker)
			if i < 0 {
				// Suppressed, but a partial closing marker at the tail
				// must survive to the next chunk to be matchable.
				f.carry = partialMarkerSuffix(buf, closeMarker)
				return out.String()
			}
			buf = buf[i+len(closeMarker):]
			f.inside = false
			continue
		}

		i := strings.Index(buf, openMarker)
		if i < 0 {
			held := partialMarkerSuffix(buf, openMarker)
			out.WriteString(buf[:len(buf)-len(held)])
			f.carry = held
			return out.String()
		}
		out.WriteString(buf[:i])
		buf = buf[i+len(openMarker):]
		f.inside = true
	}
	return out.String()
}

// Flush releases any held-back tail at end of stream. A dangling marker
// fragment that never completed was ordinary text after all; text held
// inside an unterminated reasoning span stays suppressed.
func (f *ThinkFilter) Flush() string {
	carry := f.carry
	f.carry = ""
	if f.inside {
		return ""
	}
	return carry
}

// partialMarkerSuffix returns the longest suffix of s that is a proper
// prefix of marker, or "".
func partialMarkerSuffix(s, marker string) string {
	max := len(marker) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if s[len(s)-n:] == marker[:n] {
			return s[len(s)-n:]
		}
	}
	return ""
}

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/tools"
)

// StubRuntime is a deterministic keyless runtime for local development and
// integration tests. It emits a reasoning span, optionally exercises one
// registered tool, and echoes the message in small chunks, so the whole wire
// path lights up without an API key.
type StubRuntime struct {
	registry *tools.Registry
}

// NewStubRuntime creates a stub. registry may be nil to skip tool events.
func NewStubRuntime(registry *tools.Registry) *StubRuntime {
	return &StubRuntime{registry: registry}
}

var _ Runtime = (*StubRuntime)(nil)

// Stream implements Runtime.
func (r *StubRuntime) Stream(ctx context.Context, req *Request) (<-chan core.AgentEvent, <-chan error) {
	events := make(chan core.AgentEvent, 16)
	errs := make(chan error, 1)

	go func() {
		if err := r.run(ctx, req, events); err != nil && ctx.Err() == nil {
			errs <- err
		}
		close(events)
		close(errs)
	}()

	return events, errs
}

func (r *StubRuntime) run(ctx context.Context, req *Request, events chan<- core.AgentEvent) error {
	if err := emit(ctx, events, core.TextDeltaEvent{Text: "<think>stub runtime, echoing the message</think>"}); err != nil {
		return err
	}

	if r.registry != nil && strings.Contains(strings.ToLower(req.Message), "time") {
		if _, ok := r.registry.Get("time_now"); ok {
			id := "stub-call-1"
			if err := emit(ctx, events, core.ToolStartEvent{ID: id, ToolName: "time_now"}); err != nil {
				return err
			}
			result, err := r.registry.Execute(ctx, req.UserID, "time_now", []byte("{}"))
			if err != nil {
				result = map[string]any{"error": err.Error()}
			}
			if err := emit(ctx, events, core.ToolOutputEvent{ID: id, Result: result}); err != nil {
				return err
			}
		}
	}

	reply := fmt.Sprintf("You said: %s", req.Message)
	for _, chunk := range chunked(reply, 12) {
		if err := emit(ctx, events, core.TextDeltaEvent{Text: chunk}); err != nil {
			return err
		}
	}
	return nil
}

// chunked splits s into pieces of at most n bytes.
func chunked(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

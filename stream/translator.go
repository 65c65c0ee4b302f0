// Package stream turns the raw agent event stream into the stable wire
// protocol clients consume. The translator is a synchronous reducer: one raw
// event is fully processed (emitting zero or one wire event) before the next
// is requested. All mutable state is confined to one in-flight stream.
package stream

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/mindwell-ai/mindwell/core"
)

// Translator drives one streaming response from raw agent events to wire
// events. Construct one per request and discard it when the stream closes.
type Translator struct {
	sink     Sink
	session  *core.StreamSession
	filter   ThinkFilter
	injected []core.InjectedArtifact
	terminal bool
}

// NewTranslator creates a translator for one stream. injected lists the
// artifacts auto-injected into the turn, reported in the done frame.
func NewTranslator(sink Sink, session *core.StreamSession, injected []core.InjectedArtifact) *Translator {
	return &Translator{
		sink:     sink,
		session:  session,
		injected: injected,
	}
}

// Run consumes the raw event stream until it ends, fails, or ctx is
// cancelled. Exactly one terminal frame (done or error) is emitted on the
// first two outcomes; cancellation emits nothing further. No frame ever
// follows a terminal frame. The returned error reflects the stream outcome;
// closing the underlying connection is the caller's responsibility and must
// happen regardless.
func (t *Translator) Run(ctx context.Context, events <-chan core.AgentEvent, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			// Client went away: stop consuming, emit nothing further.
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.emitError(err)
			return err

		case ev, ok := <-events:
			if !ok {
				// The producer sends any failure before closing its
				// channels; drain it so a buffered error is not lost.
				if errs != nil {
					select {
					case err, ok := <-errs:
						if ok && err != nil {
							t.emitError(err)
							return err
						}
					default:
					}
				}
				t.finish()
				return nil
			}
			if err := t.handle(ev); err != nil {
				t.emitError(err)
				return err
			}
		}
	}
}

// handle processes one raw event, emitting at most one wire event.
func (t *Translator) handle(ev core.AgentEvent) error {
	switch ev := ev.(type) {
	case core.TextDeltaEvent:
		chunk := t.filter.Feed(ev.Text)
		if chunk == "" {
			return nil
		}
		return t.send(EventText, TextPayload{Chunk: chunk})

	case core.ToolStartEvent:
		id := ev.ID
		if id == "" {
			id = synthesizeCallID()
		}
		call := &core.ToolCall{
			ID:        id,
			ToolName:  ev.ToolName,
			Toolkit:   core.ToolkitForTool(ev.ToolName),
			Timestamp: time.Now().UTC(),
		}
		t.session.Begin(call)
		return t.send(EventToolCall, ToolCallPayload{
			ToolName: call.ToolName,
			Toolkit:  call.Toolkit,
			ID:       call.ID,
		})

	case core.ToolOutputEvent:
		call := t.session.Complete(ev.ID, ev.Result)
		if call == nil {
			// An output without a matching call start is unattributable;
			// drop it rather than crash the stream.
			log.Printf("[STREAM] dropping tool output with unknown id %q", ev.ID)
			return nil
		}
		return t.send(EventToolResult, ToolResultPayload{
			ToolName: call.ToolName,
			Toolkit:  call.Toolkit,
			ID:       call.ID,
			Success:  call.Success,
			Result:   call.Result,
		})

	default:
		// Unknown event kinds are skipped; the closed union makes this
		// unreachable from our own runtimes.
		log.Printf("[STREAM] ignoring unknown agent event %T", ev)
		return nil
	}
}

// finish flushes the filter and emits the single done frame.
func (t *Translator) finish() {
	if t.terminal {
		return
	}
	if tail := t.filter.Flush(); tail != "" {
		if err := t.send(EventText, TextPayload{Chunk: tail}); err != nil {
			t.terminal = true
			return
		}
	}
	payload := DonePayload{
		SessionID:         t.session.ID,
		ToolCalls:         t.session.Completed(),
		InjectedArtifacts: t.injected,
	}
	_ = t.send(EventDone, payload)
	t.terminal = true
}

// emitError emits the single error frame.
func (t *Translator) emitError(err error) {
	if t.terminal {
		return
	}
	_ = t.send(EventError, ErrorPayload{Message: err.Error()})
	t.terminal = true
}

func (t *Translator) send(name string, payload any) error {
	if t.terminal {
		return nil
	}
	return t.sink.Send(name, payload)
}

// synthesizeCallID builds a stable id for providers that do not assign one.
func synthesizeCallID() string {
	return fmt.Sprintf("call-%d-%04x", time.Now().UnixNano(), rand.Intn(0x10000))
}

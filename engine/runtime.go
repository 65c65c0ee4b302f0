// Package engine runs the agent: it drives the model, executes tools, and
// streams raw events to the translation layer.
package engine

import (
	"context"

	"github.com/mindwell-ai/mindwell/core"
)

// Request is one streaming agent invocation.
type Request struct {
	// UserID identifies the requesting user for tool execution.
	UserID string

	// SessionID correlates the stream with its server-side session.
	SessionID string

	// Message is the user's new message.
	Message string

	// History holds prior turns, oldest first.
	History []core.Message

	// SystemPrompt is the fully assembled system prompt, including any
	// injected memory context.
	SystemPrompt string
}

// Runtime produces the raw event stream for one request.
//
// Contract: the runtime sends any failure on the error channel BEFORE closing
// either channel, and closes both when the stream ends. The error channel has
// capacity for that final send, so producers never block on it. Consumers
// that see the event channel close must still drain the error channel.
type Runtime interface {
	Stream(ctx context.Context, req *Request) (<-chan core.AgentEvent, <-chan error)
}

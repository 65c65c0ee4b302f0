package core

// AgentEvent is a polymorphic raw event produced by the agent runtime while
// it streams a response. Concrete event types implement the unexported
// isAgentEvent marker, forming a closed set; consumers switch on the concrete
// type instead of probing optional fields.
type AgentEvent interface{ isAgentEvent() }

// TextDeltaEvent carries one chunk of assistant text. Chunk boundaries are
// arbitrary: a chunk may split words, markers, anything.
type TextDeltaEvent struct {
	Text string
}

func (TextDeltaEvent) isAgentEvent() {}

// ToolStartEvent signals that the runtime began a tool invocation. ID may be
// empty when the upstream provider did not assign one.
type ToolStartEvent struct {
	ID       string
	ToolName string
}

func (ToolStartEvent) isAgentEvent() {}

// ToolOutputEvent carries the result of a previously started tool invocation,
// correlated by ID.
type ToolOutputEvent struct {
	ID     string
	Result any
}

func (ToolOutputEvent) isAgentEvent() {}

// Message is one prior turn of conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

package core

import (
	"strings"
	"time"
)

// UnknownToolkit is the sentinel toolkit for tool names without a separator.
// Clients depend on the literal value, do not infer a toolkit another way.
const UnknownToolkit = "unknown"

// ToolkitForTool derives the coarse toolkit label from a tool name: the
// lowercase prefix up to the first underscore. "web_search" -> "web",
// "GMAIL_SEND_EMAIL" -> "gmail", "ping" -> "unknown".
func ToolkitForTool(toolName string) string {
	idx := strings.Index(toolName, "_")
	if idx <= 0 {
		return UnknownToolkit
	}
	return strings.ToLower(toolName[:idx])
}

// ToolCall is an in-flight or completed tool invocation within one streaming
// response.
type ToolCall struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"toolName"`
	Toolkit   string    `json:"toolkit"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Result    any       `json:"result,omitempty"`
}

// StreamSession holds the per-request mutable state of one streaming
// response: the table of open tool calls and the list of completed ones.
// A session is owned exclusively by the handling task; it is constructed at
// stream start and discarded when the stream closes.
type StreamSession struct {
	ID        string
	open      map[string]*ToolCall
	completed []ToolCall
}

// NewStreamSession creates an empty session with the given id.
func NewStreamSession(id string) *StreamSession {
	return &StreamSession{
		ID:   id,
		open: make(map[string]*ToolCall),
	}
}

// Begin registers a new open tool call. Duplicate ids overwrite; ids are
// unique per session by construction upstream.
func (s *StreamSession) Begin(call *ToolCall) {
	s.open[call.ID] = call
}

// Complete marks the call with the given id successful, attaches the result
// and moves it to the completed list. It returns the completed call, or nil
// when the id was never started (the output is unattributable).
func (s *StreamSession) Complete(id string, result any) *ToolCall {
	call, ok := s.open[id]
	if !ok {
		return nil
	}
	delete(s.open, id)
	call.Success = true
	call.Result = result
	s.completed = append(s.completed, *call)
	return call
}

// Completed returns the calls that finished, in completion order.
func (s *StreamSession) Completed() []ToolCall {
	return s.completed
}

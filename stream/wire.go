package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mindwell-ai/mindwell/core"
)

// Wire event names.
const (
	EventText       = "text"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventDone       = "done"
	EventError      = "error"
)

// TextPayload carries one filtered chunk of assistant text.
type TextPayload struct {
	Chunk string `json:"chunk"`
}

// ToolCallPayload announces a started tool invocation.
type ToolCallPayload struct {
	ToolName string `json:"toolName"`
	Toolkit  string `json:"toolkit"`
	ID       string `json:"id"`
}

// ToolResultPayload carries a completed tool invocation.
type ToolResultPayload struct {
	ToolName string `json:"toolName"`
	Toolkit  string `json:"toolkit"`
	ID       string `json:"id"`
	Success  bool   `json:"success"`
	Result   any    `json:"result"`
}

// DonePayload is the single terminal frame of a successful stream.
type DonePayload struct {
	ToolCalls         []core.ToolCall         `json:"toolCalls,omitempty"`
	SessionID         string                  `json:"sessionId"`
	InjectedArtifacts []core.InjectedArtifact `json:"injectedArtifacts,omitempty"`
}

// ErrorPayload is the single terminal frame of a failed stream.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Sink delivers wire events to a client. Implementations: SSE over HTTP and
// websocket.
type Sink interface {
	Send(name string, payload any) error
}

// SSEWriter writes Server-Sent-Events frames: "event: <name>\ndata:
// <JSON>\n\n", flushed per frame.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for event streaming and sets the SSE headers.
// It fails when the ResponseWriter cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one SSE frame.
func (s *SSEWriter) Send(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WebsocketSink delivers the same wire events over a websocket connection as
// one JSON object per message.
type WebsocketSink struct {
	conn *websocket.Conn
}

// NewWebsocketSink wraps an upgraded connection.
func NewWebsocketSink(conn *websocket.Conn) *WebsocketSink {
	return &WebsocketSink{conn: conn}
}

// wsFrame is the websocket envelope mirroring an SSE frame.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Send writes one websocket message.
func (s *WebsocketSink) Send(name string, payload any) error {
	return s.conn.WriteJSON(wsFrame{Event: name, Data: payload})
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/tools"
)

// AnthropicRuntime runs the agent loop against the Claude API, executing
// registered tools between model turns and streaming every text delta and
// tool transition as a raw event.
type AnthropicRuntime struct {
	client    *anthropic.Client
	registry  *tools.Registry
	model     string
	maxTokens int64
	maxTurns  int
}

// AnthropicOption configures the runtime.
type AnthropicOption func(*AnthropicRuntime)

// WithModel overrides the default model.
func WithModel(model string) AnthropicOption {
	return func(r *AnthropicRuntime) { r.model = model }
}

// WithMaxTokens overrides the per-turn response token cap.
func WithMaxTokens(n int64) AnthropicOption {
	return func(r *AnthropicRuntime) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithMaxTurns overrides the tool-loop turn limit.
func WithMaxTurns(n int) AnthropicOption {
	return func(r *AnthropicRuntime) {
		if n > 0 {
			r.maxTurns = n
		}
	}
}

// NewAnthropicRuntime creates the runtime around a configured client.
func NewAnthropicRuntime(client *anthropic.Client, registry *tools.Registry, opts ...AnthropicOption) *AnthropicRuntime {
	r := &AnthropicRuntime{
		client:    client,
		registry:  registry,
		model:     "claude-sonnet-4-20250514",
		maxTokens: 4096,
		maxTurns:  20,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Runtime = (*AnthropicRuntime)(nil)

// Stream implements Runtime.
func (r *AnthropicRuntime) Stream(ctx context.Context, req *Request) (<-chan core.AgentEvent, <-chan error) {
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

// run drives the model/tool loop until the model stops requesting tools.
func (r *AnthropicRuntime) run(ctx context.Context, req *Request, events chan<- core.AgentEvent) error {
	messages := historyToParams(req.History)
	if req.Message != "" {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)))
	}
	apiTools := r.registry.ToAPITools()

	for turn := 0; turn < r.maxTurns; turn++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(r.model),
			MaxTokens: r.maxTokens,
			Messages:  messages,
		}
		if req.SystemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
		}
		if len(apiTools) > 0 {
			params.Tools = apiTools
		}

		resp, err := r.streamTurn(ctx, params, events)
		if err != nil {
			return err
		}

		toolResults, err := r.executeTools(ctx, req.UserID, resp, events)
		if err != nil {
			return err
		}
		if len(toolResults) == 0 {
			return nil
		}

		messages = append(messages, resp.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}
	return fmt.Errorf("exceeded maximum turns (%d)", r.maxTurns)
}

// streamTurn makes one streaming API call, forwarding text deltas as events
// and returning the accumulated message.
func (r *AnthropicRuntime) streamTurn(ctx context.Context, params anthropic.MessageNewParams, events chan<- core.AgentEvent) (*anthropic.Message, error) {
	stream := r.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			log.Printf("[ENGINE] accumulate failed: %v", err)
		}

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := emit(ctx, events, core.TextDeltaEvent{Text: delta.Text}); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}
	return &message, nil
}

// executeTools runs every tool_use block in the response, emitting start and
// output events and collecting result blocks for the next model turn. A
// failed tool does not fail the stream; the error is surfaced to the model.
func (r *AnthropicRuntime) executeTools(ctx context.Context, userID string, resp *anthropic.Message, events chan<- core.AgentEvent) ([]anthropic.ContentBlockParamUnion, error) {
	var results []anthropic.ContentBlockParamUnion
	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		toolBlock := block.AsToolUse()

		if err := emit(ctx, events, core.ToolStartEvent{ID: toolBlock.ID, ToolName: toolBlock.Name}); err != nil {
			return nil, err
		}

		result, err := r.registry.Execute(ctx, userID, toolBlock.Name, json.RawMessage(toolBlock.Input))
		if err != nil {
			log.Printf("[ENGINE] tool %s failed: %v", toolBlock.Name, err)
			payload := map[string]any{"error": err.Error()}
			if emitErr := emit(ctx, events, core.ToolOutputEvent{ID: toolBlock.ID, Result: payload}); emitErr != nil {
				return nil, emitErr
			}
			results = append(results, anthropic.NewToolResultBlock(toolBlock.ID, err.Error(), true))
			continue
		}

		if err := emit(ctx, events, core.ToolOutputEvent{ID: toolBlock.ID, Result: result}); err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", result))
		}
		results = append(results, anthropic.NewToolResultBlock(toolBlock.ID, string(encoded), false))
	}
	return results, nil
}

// historyToParams converts stored turns to API message params.
func historyToParams(history []core.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return params
}

// emit sends one event unless the consumer is gone.
func emit(ctx context.Context, events chan<- core.AgentEvent, ev core.AgentEvent) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

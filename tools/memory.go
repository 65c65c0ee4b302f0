package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/store"
)

// MemoryTools returns the built-in tools that let the agent read and write
// the user's artifacts directly. refresher may be nil; when set, writes
// schedule an embedding refresh.
func MemoryTools(st store.ArtifactStore, refresher *memory.Refresher) []*Tool {
	return []*Tool{
		{
			Definition: Definition{
				Name:        "memory_list_artifacts",
				Description: "List the user's memory artifacts with their titles and summaries. Internal profile artifacts are hidden.",
				Properties:  map[string]any{},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				artifacts, err := st.ListArtifacts(ctx, userID)
				if err != nil {
					return nil, err
				}
				type item struct {
					ID        string    `json:"id"`
					Title     string    `json:"title"`
					Summary   string    `json:"summary,omitempty"`
					UpdatedAt time.Time `json:"updatedAt"`
				}
				items := make([]item, 0, len(artifacts))
				for _, a := range artifacts {
					if a.IsSoul() {
						continue
					}
					items = append(items, item{ID: a.ID, Title: a.Title, Summary: a.Summary, UpdatedAt: a.UpdatedAt})
				}
				return items, nil
			},
		},
		{
			Definition: Definition{
				Name:        "memory_create_artifact",
				Description: "Create a new memory artifact for the user. Use when the user asks to remember something that fits no existing artifact.",
				Properties: map[string]any{
					"title":   String("Short, stable artifact title"),
					"summary": String("One-sentence summary of what the artifact holds"),
					"tags":    StringArray("Optional topical tags"),
				},
				Required: []string{"title"},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				var args struct {
					Title   string   `json:"title"`
					Summary string   `json:"summary"`
					Tags    []string `json:"tags"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return nil, fmt.Errorf("invalid input: %w", err)
				}
				if args.Title == "" {
					return nil, fmt.Errorf("title is required")
				}
				now := time.Now().UTC()
				artifact := &core.Artifact{
					ID:        uuid.NewString(),
					UserID:    userID,
					Title:     args.Title,
					Summary:   args.Summary,
					Tags:      args.Tags,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := st.CreateArtifact(ctx, artifact); err != nil {
					return nil, err
				}
				return map[string]any{"id": artifact.ID, "title": artifact.Title}, nil
			},
		},
		{
			Definition: Definition{
				Name:        "memory_append_entry",
				Description: "Append a piece of content to an existing memory artifact.",
				Properties: map[string]any{
					"artifact_id": String("Target artifact id from memory_list_artifacts"),
					"content":     String("The content to remember"),
				},
				Required: []string{"artifact_id", "content"},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				var args struct {
					ArtifactID string `json:"artifact_id"`
					Content    string `json:"content"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return nil, fmt.Errorf("invalid input: %w", err)
				}
				artifact, err := st.GetArtifact(ctx, args.ArtifactID)
				if err != nil {
					return nil, err
				}
				if artifact.UserID != userID {
					return nil, store.ErrNotFound
				}
				entry := &core.ArtifactEntry{
					ID:         uuid.NewString(),
					ArtifactID: artifact.ID,
					Content:    args.Content,
					Provenance: core.ProvenanceManual,
					CreatedAt:  time.Now().UTC(),
				}
				if err := st.CreateEntry(ctx, entry); err != nil {
					return nil, err
				}
				if refresher != nil {
					refresher.Trigger(artifact.ID)
				}
				return map[string]any{"entryId": entry.ID}, nil
			},
		},
		{
			Definition: Definition{
				Name:        "memory_read_entries",
				Description: "Read the most recent entries of a memory artifact, newest first.",
				Properties: map[string]any{
					"artifact_id": String("Target artifact id"),
					"limit":       Integer("Maximum entries to return (default 10)"),
				},
				Required: []string{"artifact_id"},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				var args struct {
					ArtifactID string `json:"artifact_id"`
					Limit      int    `json:"limit"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return nil, fmt.Errorf("invalid input: %w", err)
				}
				artifact, err := st.GetArtifact(ctx, args.ArtifactID)
				if err != nil {
					return nil, err
				}
				if artifact.UserID != userID {
					return nil, store.ErrNotFound
				}
				limit := args.Limit
				if limit <= 0 {
					limit = 10
				}
				entries, err := st.ListEntries(ctx, artifact.ID, store.EntryFilter{Limit: limit})
				if err != nil {
					return nil, err
				}
				type item struct {
					Content   string    `json:"content"`
					CreatedAt time.Time `json:"createdAt"`
				}
				items := make([]item, 0, len(entries))
				for _, e := range entries {
					items = append(items, item{Content: e.Content, CreatedAt: e.CreatedAt})
				}
				return items, nil
			},
		},
	}
}

// UtilityTools returns small stateless helpers. The calculator name has no
// toolkit prefix on purpose; it keeps the unknown-toolkit path honest in
// production traffic.
func UtilityTools() []*Tool {
	return []*Tool{
		{
			Definition: Definition{
				Name:        "time_now",
				Description: "Get the current date and time in UTC.",
				Properties:  map[string]any{},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				return map[string]any{"now": time.Now().UTC().Format(time.RFC3339)}, nil
			},
		},
		{
			Definition: Definition{
				Name:        "calculator",
				Description: "Perform basic arithmetic on two numbers.",
				Properties: map[string]any{
					"op": StringEnum("Operation to perform", "add", "sub", "mul", "div"),
					"a":  Number("Left operand"),
					"b":  Number("Right operand"),
				},
				Required: []string{"op", "a", "b"},
			},
			Handler: func(ctx context.Context, userID string, input json.RawMessage) (any, error) {
				var args struct {
					Op string  `json:"op"`
					A  float64 `json:"a"`
					B  float64 `json:"b"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return nil, fmt.Errorf("invalid input: %w", err)
				}
				var result float64
				switch args.Op {
				case "add":
					result = args.A + args.B
				case "sub":
					result = args.A - args.B
				case "mul":
					result = args.A * args.B
				case "div":
					if args.B == 0 {
						return nil, fmt.Errorf("division by zero")
					}
					result = args.A / args.B
				default:
					return nil, fmt.Errorf("unknown op: %s", args.Op)
				}
				return map[string]any{"result": strconv.FormatFloat(result, 'f', -1, 64)}, nil
			},
		},
	}
}

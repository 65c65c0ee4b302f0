package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindwell-ai/mindwell/core"
)

func TestToolkitForTool(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"web_search", "web"},
		{"GMAIL_SEND_EMAIL", "gmail"},
		{"memory_append_entry", "memory"},
		{"calculator", core.UnknownToolkit},
		{"_leading", core.UnknownToolkit},
		{"", core.UnknownToolkit},
		{"a_b", "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, core.ToolkitForTool(tt.tool), "tool %q", tt.tool)
	}
}

func TestStreamSession_Lifecycle(t *testing.T) {
	s := core.NewStreamSession("sess-1")

	s.Begin(&core.ToolCall{ID: "c1", ToolName: "web_search", Toolkit: "web"})
	s.Begin(&core.ToolCall{ID: "c2", ToolName: "calculator", Toolkit: core.UnknownToolkit})

	done := s.Complete("c1", map[string]any{"hits": 2})
	assert.NotNil(t, done)
	assert.True(t, done.Success)
	assert.Equal(t, "web_search", done.ToolName)

	// Completing an unknown id is unattributable.
	assert.Nil(t, s.Complete("never-started", nil))

	// c2 is still open; only c1 is completed.
	completed := s.Completed()
	assert.Len(t, completed, 1)
	assert.Equal(t, "c1", completed[0].ID)

	// Completing twice does not duplicate.
	assert.Nil(t, s.Complete("c1", nil))
	assert.Len(t, s.Completed(), 1)
}

func TestArtifactIsSoul(t *testing.T) {
	assert.True(t, (&core.Artifact{Title: core.SoulArtifactTitle}).IsSoul())
	assert.True(t, (&core.Artifact{Title: "[soul] anything"}).IsSoul())
	assert.False(t, (&core.Artifact{Title: "Soul Music Playlist"}).IsSoul())
}

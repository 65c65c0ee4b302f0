package core

import (
	"strings"
	"time"
)

// SoulTitlePrefix marks internal profile ("soul") artifacts. Artifacts whose
// title starts with this prefix are reserved for the distiller and are never
// offered to retrieval.
const SoulTitlePrefix = "[soul]"

// SoulArtifactTitle is the title of the single per-user soul artifact the
// distiller appends insights to.
const SoulArtifactTitle = "[soul] Profile"

// Provenance identifies where an artifact entry came from.
type Provenance string

const (
	// ProvenanceManual marks entries written directly by the user.
	ProvenanceManual Provenance = "manual"

	// ProvenanceConversation marks entries summarized from a chat turn.
	ProvenanceConversation Provenance = "conversation-summary"

	// ProvenanceDistilled marks insight entries produced by the distiller.
	ProvenanceDistilled Provenance = "distilled"
)

// Artifact is a durable, user-owned unit of long-term memory composed of
// ordered entries. The embedding is derived data: it is recomputed
// asynchronously after entry mutations and may lag behind the entries.
type Artifact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsSoul reports whether this artifact is a reserved internal profile
// artifact.
func (a *Artifact) IsSoul() bool {
	return strings.HasPrefix(a.Title, SoulTitlePrefix)
}

// HasEmbedding reports whether a usable embedding has been computed.
func (a *Artifact) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// ArtifactEntry is one atomic piece of content appended to an artifact.
// Entries are append-mostly: edits replace content but preserve identity and
// ordering position.
type ArtifactEntry struct {
	ID         string     `json:"id"`
	ArtifactID string     `json:"artifactId"`
	Content    string     `json:"content"`
	Provenance Provenance `json:"provenance"`

	// WorkflowID optionally links the entry to the workflow that produced it.
	WorkflowID string `json:"workflowId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

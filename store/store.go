// Package store defines the typed persistence contract for artifacts and
// their entries. The retrieval gate and the distiller depend only on the
// ArtifactStore interface; implementations provide their own isolation.
// Read-modify-write on an artifact's embedding is not transactional,
// eventual consistency is acceptable.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mindwell-ai/mindwell/core"
)

// ErrNotFound is returned when an artifact or entry does not exist.
var ErrNotFound = errors.New("store: not found")

// EntryFilter narrows ListEntries results.
type EntryFilter struct {
	// Since keeps only entries created strictly after this time, when set.
	Since *time.Time

	// Limit caps the number of returned entries (0 = no cap). Entries are
	// always ordered newest first.
	Limit int
}

// ArtifactStore is the persistence boundary for artifacts and entries.
type ArtifactStore interface {
	// CreateArtifact persists a new artifact. ID and timestamps must be set
	// by the caller.
	CreateArtifact(ctx context.Context, artifact *core.Artifact) error

	// GetArtifact returns the artifact with the given id or ErrNotFound.
	GetArtifact(ctx context.Context, id string) (*core.Artifact, error)

	// UpdateArtifact replaces the stored artifact. Used for summary edits
	// and embedding refreshes.
	UpdateArtifact(ctx context.Context, artifact *core.Artifact) error

	// ListArtifacts returns all artifacts owned by the user, newest updated
	// first.
	ListArtifacts(ctx context.Context, userID string) ([]*core.Artifact, error)

	// FindArtifactByTitle returns the user's artifact with the exact title
	// or ErrNotFound.
	FindArtifactByTitle(ctx context.Context, userID, title string) (*core.Artifact, error)

	// CreateEntry appends an entry to its artifact and bumps the artifact's
	// UpdatedAt.
	CreateEntry(ctx context.Context, entry *core.ArtifactEntry) error

	// UpdateEntry replaces an entry's content, preserving identity and
	// ordering position.
	UpdateEntry(ctx context.Context, entry *core.ArtifactEntry) error

	// ListEntries returns entries for an artifact, newest first, narrowed by
	// the filter.
	ListEntries(ctx context.Context, artifactID string, filter EntryFilter) ([]*core.ArtifactEntry, error)

	// ListUsers enumerates all user ids that own at least one artifact.
	ListUsers(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// Package memstore provides an in-process ArtifactStore implementation for
// tests, examples and single-process prototypes. All data lives in maps
// guarded by an RWMutex; values are copied on save and retrieval to avoid
// accidental external mutation of internal state.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
)

// Store is an in-memory ArtifactStore.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]*core.Artifact        // artifactID -> artifact
	entries   map[string][]*core.ArtifactEntry // artifactID -> entries, append order
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		artifacts: make(map[string]*core.Artifact),
		entries:   make(map[string][]*core.ArtifactEntry),
	}
}

var _ store.ArtifactStore = (*Store)(nil)

func copyArtifact(a *core.Artifact) *core.Artifact {
	cp := *a
	cp.Tags = append([]string(nil), a.Tags...)
	cp.Embedding = append([]float32(nil), a.Embedding...)
	return &cp
}

func copyEntry(e *core.ArtifactEntry) *core.ArtifactEntry {
	cp := *e
	return &cp
}

// CreateArtifact persists a new artifact.
func (s *Store) CreateArtifact(ctx context.Context, artifact *core.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifact.ID] = copyArtifact(artifact)
	return nil
}

// GetArtifact returns the artifact with the given id or store.ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, id string) (*core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyArtifact(a), nil
}

// UpdateArtifact replaces the stored artifact.
func (s *Store) UpdateArtifact(ctx context.Context, artifact *core.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[artifact.ID]; !ok {
		return store.ErrNotFound
	}
	s.artifacts[artifact.ID] = copyArtifact(artifact)
	return nil
}

// ListArtifacts returns the user's artifacts, newest updated first.
func (s *Store) ListArtifacts(ctx context.Context, userID string) ([]*core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Artifact
	for _, a := range s.artifacts {
		if a.UserID == userID {
			out = append(out, copyArtifact(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// FindArtifactByTitle returns the user's artifact with the exact title.
func (s *Store) FindArtifactByTitle(ctx context.Context, userID, title string) (*core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.artifacts {
		if a.UserID == userID && a.Title == title {
			return copyArtifact(a), nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateEntry appends an entry and bumps the artifact's UpdatedAt.
func (s *Store) CreateEntry(ctx context.Context, entry *core.ArtifactEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[entry.ArtifactID]
	if !ok {
		return store.ErrNotFound
	}
	s.entries[entry.ArtifactID] = append(s.entries[entry.ArtifactID], copyEntry(entry))
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateEntry replaces an entry's content in place.
func (s *Store) UpdateEntry(ctx context.Context, entry *core.ArtifactEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[entry.ArtifactID]
	for i, e := range list {
		if e.ID == entry.ID {
			cp := copyEntry(e) // identity, provenance and ordering are preserved
			cp.Content = entry.Content
			list[i] = cp
			if a, ok := s.artifacts[entry.ArtifactID]; ok {
				a.UpdatedAt = time.Now().UTC()
			}
			return nil
		}
	}
	return store.ErrNotFound
}

// ListEntries returns entries for an artifact, newest first.
func (s *Store) ListEntries(ctx context.Context, artifactID string, filter store.EntryFilter) ([]*core.ArtifactEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.ArtifactEntry
	for _, e := range s.entries[artifactID] {
		if filter.Since != nil && !e.CreatedAt.After(*filter.Since) {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListUsers enumerates user ids owning at least one artifact.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var users []string
	for _, a := range s.artifacts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			users = append(users, a.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

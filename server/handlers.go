package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/store"
)

// ---------------------------------------------------------------------------
// POST /api/retrieval/preview
// ---------------------------------------------------------------------------

type previewRequest struct {
	UserID      string         `json:"userId"`
	Message     string         `json:"message"`
	History     []core.Message `json:"history"`
	ArtifactIDs []string       `json:"artifactIds"`
}

type previewCandidate struct {
	ArtifactID string  `json:"artifactId"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
	Source     string  `json:"source"`
}

// handleRetrievalPreview runs the gate in broad mode and returns labeled
// candidates without streaming a chat turn.
func (s *Server) handleRetrievalPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	candidates := s.gate.FindBroad(r.Context(), req.UserID, req.Message, req.History, req.ArtifactIDs)
	out := make([]previewCandidate, 0, len(candidates))
	for _, c := range candidates {
		title := ""
		if artifact, err := s.store.GetArtifact(r.Context(), c.ArtifactID); err == nil {
			title = artifact.Title
		}
		out = append(out, previewCandidate{
			ArtifactID: c.ArtifactID,
			Title:      title,
			Confidence: c.Confidence,
			Label:      string(memory.Label(c)),
			Source:     string(c.Source),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Artifact CRUD
// ---------------------------------------------------------------------------

type artifactRequest struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	var req artifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := time.Now().UTC()
	artifact := &core.Artifact{
		ID:        uuid.NewString(),
		UserID:    uid,
		Title:     req.Title,
		Summary:   req.Summary,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateArtifact(r.Context(), artifact); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create artifact")
		return
	}
	if s.refresher != nil {
		s.refresher.Trigger(artifact.ID)
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	artifacts, err := s.store.ListArtifacts(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}
	out := make([]*core.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.IsSoul() {
			continue
		}
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

// getOwnedArtifact loads the artifact and enforces ownership. A foreign
// artifact reads as not found.
func (s *Server) getOwnedArtifact(w http.ResponseWriter, r *http.Request) *core.Artifact {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return nil
	}
	artifact, err := s.store.GetArtifact(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return nil
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get artifact")
		return nil
	}
	if artifact.UserID != uid {
		writeError(w, http.StatusNotFound, "artifact not found")
		return nil
	}
	return artifact
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := s.getOwnedArtifact(w, r)
	if artifact == nil {
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleUpdateArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := s.getOwnedArtifact(w, r)
	if artifact == nil {
		return
	}
	var req artifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title != "" {
		artifact.Title = req.Title
	}
	artifact.Summary = req.Summary
	artifact.Tags = req.Tags
	artifact.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateArtifact(r.Context(), artifact); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update artifact")
		return
	}
	if s.refresher != nil {
		s.refresher.Trigger(artifact.ID)
	}
	writeJSON(w, http.StatusOK, artifact)
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

type entryRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	artifact := s.getOwnedArtifact(w, r)
	if artifact == nil {
		return
	}
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	entry := &core.ArtifactEntry{
		ID:         uuid.NewString(),
		ArtifactID: artifact.ID,
		Content:    req.Content,
		Provenance: core.ProvenanceManual,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}
	if s.refresher != nil {
		s.refresher.Trigger(artifact.ID)
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	artifact := s.getOwnedArtifact(w, r)
	if artifact == nil {
		return
	}
	entries, err := s.store.ListEntries(r.Context(), artifact.ID, store.EntryFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []*core.ArtifactEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	artifact := s.getOwnedArtifact(w, r)
	if artifact == nil {
		return
	}
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	entry := &core.ArtifactEntry{
		ID:         r.PathValue("entryID"),
		ArtifactID: artifact.ID,
		Content:    req.Content,
	}
	if err := s.store.UpdateEntry(r.Context(), entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	if s.refresher != nil {
		s.refresher.Trigger(artifact.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": entry.ID})
}

// ---------------------------------------------------------------------------
// POST /internal/distill
// ---------------------------------------------------------------------------

func (s *Server) handleDistill(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "distillation not configured")
		return
	}
	run, err := s.scheduler.RunForAllUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "distillation run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

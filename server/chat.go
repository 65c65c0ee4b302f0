package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/engine"
	"github.com/mindwell-ai/mindwell/store"
	"github.com/mindwell-ai/mindwell/stream"
)

// conversationLogTitle is the artifact chat turns are summarized into.
const conversationLogTitle = "Conversation Log"

type chatRequest struct {
	UserID      string         `json:"userId"`
	Message     string         `json:"message"`
	History     []core.Message `json:"history"`
	ArtifactIDs []string       `json:"artifactIds"`
}

func (req *chatRequest) validate() error {
	if req.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if req.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// handleChat streams one chat turn over SSE. Validation failures are plain
// HTTP errors; once streaming starts, failures become error frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sink, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	s.runChat(r.Context(), sink, &req)
}

// handleChatWS runs the same chat turn over a websocket: the client sends one
// JSON chat request and receives the wire events as JSON messages.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	var req chatRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(map[string]string{"error": "invalid chat request"})
		return
	}
	if err := req.validate(); err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	s.runChat(r.Context(), stream.NewWebsocketSink(conn), &req)
}

// runChat is the shared chat pipeline: retrieve, inject, stream, record.
func (s *Server) runChat(ctx context.Context, sink stream.Sink, req *chatRequest) {
	candidates := s.gate.FindHighPrecision(ctx, req.UserID, req.Message, req.History, req.ArtifactIDs)
	injected := s.gate.Injected(ctx, req.UserID, candidates)

	systemPrompt := s.systemPrompt
	if block := s.gate.FormatForContext(ctx, req.UserID, candidates); block != "" {
		systemPrompt += "\n\n" + block
	}

	session := core.NewStreamSession(uuid.NewString())
	translator := stream.NewTranslator(sink, session, injected)

	events, errs := s.runtime.Stream(ctx, &engine.Request{
		UserID:       req.UserID,
		SessionID:    session.ID,
		Message:      req.Message,
		History:      req.History,
		SystemPrompt: systemPrompt,
	})

	if err := translator.Run(ctx, events, errs); err != nil {
		s.logger.Warn("chat stream ended with error", "sessionId", session.ID, "err", err)
		return
	}

	s.recordConversation(req.UserID, req.Message)
}

// recordConversation appends the turn to the user's conversation log artifact
// so the distiller sees it. Failures only feed the log.
func (s *Server) recordConversation(userID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	artifact, err := s.store.FindArtifactByTitle(ctx, userID, conversationLogTitle)
	if errors.Is(err, store.ErrNotFound) {
		now := time.Now().UTC()
		artifact = &core.Artifact{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     conversationLogTitle,
			Summary:   "Running log of conversation topics",
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.store.CreateArtifact(ctx, artifact)
	}
	if err != nil {
		s.logger.Warn("conversation log unavailable", "user", userID, "err", err)
		return
	}

	entry := &core.ArtifactEntry{
		ID:         uuid.NewString(),
		ArtifactID: artifact.ID,
		Content:    message,
		Provenance: core.ProvenanceConversation,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		s.logger.Warn("conversation log append failed", "user", userID, "err", err)
		return
	}
	if s.refresher != nil {
		s.refresher.Trigger(artifact.ID)
	}
}

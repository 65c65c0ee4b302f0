// Package server exposes the HTTP surface: the streaming chat endpoint (SSE
// and websocket), artifact CRUD, retrieval preview and the internal
// distillation trigger.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mindwell-ai/mindwell/distill"
	"github.com/mindwell-ai/mindwell/engine"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store     store.ArtifactStore
	gate      *memory.Gate
	refresher *memory.Refresher
	runtime   engine.Runtime
	scheduler *distill.Scheduler
	logger    *slog.Logger

	systemPrompt string
	corsOrigin   string
	upgrader     websocket.Upgrader
	mux          *http.ServeMux
}

// Options configures the server.
type Options struct {
	// SystemPrompt is the base prompt prepended to every chat turn.
	SystemPrompt string

	// CORSOrigin is the allowed CORS origin; empty means "*".
	CORSOrigin string

	// Logger receives request logs; nil uses slog.Default.
	Logger *slog.Logger
}

// New creates the API server.
func New(st store.ArtifactStore, gate *memory.Gate, refresher *memory.Refresher, runtime engine.Runtime, scheduler *distill.Scheduler, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	srv := &Server{
		store:        st,
		gate:         gate,
		refresher:    refresher,
		runtime:      runtime,
		scheduler:    scheduler,
		logger:       opts.Logger,
		systemPrompt: opts.SystemPrompt,
		corsOrigin:   opts.CORSOrigin,
		upgrader: websocket.Upgrader{
			// Origin enforcement happens in the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(s.logRequests(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	s.mux.HandleFunc("POST /api/retrieval/preview", s.handleRetrievalPreview)

	s.mux.HandleFunc("POST /api/artifacts", s.handleCreateArtifact)
	s.mux.HandleFunc("GET /api/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /api/artifacts/{id}", s.handleGetArtifact)
	s.mux.HandleFunc("PUT /api/artifacts/{id}", s.handleUpdateArtifact)
	s.mux.HandleFunc("POST /api/artifacts/{id}/entries", s.handleCreateEntry)
	s.mux.HandleFunc("GET /api/artifacts/{id}/entries", s.handleListEntries)
	s.mux.HandleFunc("PUT /api/artifacts/{id}/entries/{entryID}", s.handleUpdateEntry)

	s.mux.HandleFunc("POST /internal/distill", s.handleDistill)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// userID resolves the requesting user from the X-User-ID header, falling back
// to the user query parameter.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("user")
}

// DefaultSystemPrompt is the base prompt for chat turns.
const DefaultSystemPrompt = `You are a thoughtful assistant with access to the user's long-term memory.

GUIDELINES:
- Be conversational and concise
- When memory context is provided, use it naturally; never recite it verbatim
- Use memory tools to save things the user explicitly asks you to remember
- Never mention artifact ids to the user`

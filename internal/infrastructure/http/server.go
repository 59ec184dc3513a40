// Package http provides the HTTP server infrastructure: routing, request
// parsing, and the mapping from domain errors to transport responses.
// Everything interesting happens in the usecases this layer delegates to.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
	"github.com/veronica-ai/assistant-go/internal/domain/usecases"
	"github.com/veronica-ai/assistant-go/internal/logger"
	"github.com/veronica-ai/assistant-go/internal/store"
)

// degradedAnswer is what a user sees when answer composition fails.
// The raw fault is logged, never surfaced.
const degradedAnswer = "There was an error processing your request."

// Server is the HTTP server for the assistant API.
type Server struct {
	chat     *usecases.ChatUseCase
	rag      *usecases.RAGUseCase
	ingest   *usecases.IngestUseCase
	files    *store.FileStore
	sessions ports.SessionRegistry
	addr     string
}

// NewServer creates a new HTTP server.
func NewServer(
	chat *usecases.ChatUseCase,
	rag *usecases.RAGUseCase,
	ingest *usecases.IngestUseCase,
	files *store.FileStore,
	sessions ports.SessionRegistry,
	addr string,
) *Server {
	return &Server{
		chat:     chat,
		rag:      rag,
		ingest:   ingest,
		files:    files,
		sessions: sessions,
		addr:     addr,
	}
}

// Routes builds the request multiplexer. Exposed for handler tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/chat-doc", s.handleChatDoc)
	mux.HandleFunc("/api/chat-url", s.handleChatURL)
	mux.HandleFunc("/api/decode-error", s.handleDecodeError)
	mux.HandleFunc("/api/health", s.handleHealth)

	return corsMiddleware(loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // provider calls can be slow
	}

	logger.Info("assistant server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps a domain error to its transport status. A composition
// failure is special: the user gets a degraded answer with a 200, not a
// fault (the conversation id travels back so the client can retry the turn).
func (s *Server) respondError(w http.ResponseWriter, err error, conversationID string) {
	switch {
	case errors.Is(err, entities.ErrCompletion):
		logger.Error("completion failed: %v", err)
		respondJSON(w, http.StatusOK, chatResponse{
			ID:             uuid.New().String(),
			Content:        degradedAnswer,
			ConversationID: conversationID,
		})
	case errors.Is(err, entities.ErrInvalidInput),
		errors.Is(err, entities.ErrFetch),
		errors.Is(err, entities.ErrParse),
		errors.Is(err, entities.ErrUnknownModel):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, entities.ErrPipelineNotFound),
		errors.Is(err, entities.ErrConversationNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, entities.ErrEmbedding):
		logger.Error("embedding failed: %v", err)
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: "embedding service failed"})
	default:
		logger.Error("request failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

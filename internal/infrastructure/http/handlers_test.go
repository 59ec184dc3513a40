package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
	"github.com/veronica-ai/assistant-go/internal/domain/usecases"
	"github.com/veronica-ai/assistant-go/internal/store"
)

// scriptedService implements ports.CompletionService with queued replies.
type scriptedService struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedService) Complete(ctx context.Context, messages []entities.ChatMessage, opts ports.CompletionOptions) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "ok", nil
}

func (s *scriptedService) ModelName() string { return "test-model" }

type staticRouter struct {
	svc ports.CompletionService
}

func (r *staticRouter) Resolve(model string) (ports.CompletionService, error) {
	if model != "" && model != "test-model" {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownModel, model)
	}
	return r.svc, nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type staticIndex struct{}

func (staticIndex) Query(ctx context.Context, emb []float32, k int) ([]entities.QueryResult, error) {
	return []entities.QueryResult{{Chunk: entities.Chunk{Content: "indexed context"}, Score: 0.9}}, nil
}

func (staticIndex) Len() int { return 1 }

type staticBuilder struct{}

func (staticBuilder) Build(ctx context.Context, chunks []entities.Chunk) (ports.VectorIndex, error) {
	return staticIndex{}, nil
}

type staticLoader struct {
	content string
	err     error
}

func (l *staticLoader) Load(ctx context.Context, source string) (*entities.Document, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &entities.Document{ID: "doc", Source: source, Content: l.content, CreatedAt: time.Now()}, nil
}

type testEnv struct {
	server        *Server
	svc           *scriptedService
	conversations *store.ConversationStore
	sessions      *store.SessionRegistry
	loader        *staticLoader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	svc := &scriptedService{}
	router := &staticRouter{svc: svc}
	conversations := store.NewConversationStore()
	sessions := store.NewSessionRegistry()
	docLoader := &staticLoader{content: "document body"}

	files, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	ingest := usecases.NewIngestUseCase(docLoader, staticEmbedder{}, staticBuilder{}, conversations, sessions, 1000, 100, 4)
	rag := usecases.NewRAGUseCase(staticEmbedder{}, router, conversations, sessions, 4)
	chat := usecases.NewChatUseCase(router, conversations)

	return &testEnv{
		server:        NewServer(chat, rag, ingest, files, sessions, ":0"),
		svc:           svc,
		conversations: conversations,
		sessions:      sessions,
		loader:        docLoader,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func TestHandleChat(t *testing.T) {
	env := newTestEnv(t)
	env.svc.replies = []string{"hello back"}

	w := postJSON(t, env.server.Routes(), "/api/chat", chatRequest{Message: "hi"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeChat(t, w)
	if resp.Content != "hello back" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.ConversationID == "" {
		t.Error("expected a conversation id")
	}

	history, ok := env.conversations.Get(resp.ConversationID)
	if !ok || len(history) != 2 {
		t.Errorf("expected 2 stored messages, got %d", len(history))
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/chat", chatRequest{Message: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChat_UnknownModel(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/chat", chatRequest{Message: "hi", Model: "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChat_CompletionFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.svc.errs = []error{fmt.Errorf("%w: provider down", entities.ErrCompletion)}

	w := postJSON(t, env.server.Routes(), "/api/chat", chatRequest{Message: "hi"})

	if w.Code != http.StatusOK {
		t.Fatalf("degraded turn should still answer 200, got %d", w.Code)
	}
	resp := decodeChat(t, w)
	if resp.Content != degradedAnswer {
		t.Errorf("content = %q", resp.Content)
	}

	// The failed turn must leave no history behind.
	if history, ok := env.conversations.Get(resp.ConversationID); ok && len(history) != 0 {
		t.Errorf("failed turn stored %d messages", len(history))
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleUpload_IngestsIntoConversation(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("uploaded body"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.FileID == "" || resp.ConversationID == "" {
		t.Errorf("incomplete response: %+v", resp)
	}
	if resp.Filename != "notes.txt" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if _, ok := env.sessions.Lookup(resp.ConversationID); !ok {
		t.Error("upload should register a pipeline for the conversation")
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChatDoc(t *testing.T) {
	env := newTestEnv(t)
	env.svc.replies = []string{"grounded answer"}

	id, err := env.server.ingest.Ingest(context.Background(), "doc.txt", "")
	if err != nil {
		t.Fatalf("seeding ingest: %v", err)
	}

	w := postJSON(t, env.server.Routes(), "/api/chat-doc", chatRequest{Message: "what?", ConversationID: id})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeChat(t, w)
	if resp.Content != "grounded answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.ConversationID != id {
		t.Errorf("conversation id = %q, want %q", resp.ConversationID, id)
	}
}

func TestHandleChatDoc_RequiresConversationID(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/chat-doc", chatRequest{Message: "what?"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChatDoc_UnknownConversation(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/chat-doc", chatRequest{Message: "what?", ConversationID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChatURL_FirstTurnIngests(t *testing.T) {
	env := newTestEnv(t)
	env.svc.replies = []string{"from the page"}

	w := postJSON(t, env.server.Routes(), "/api/chat-url", chatRequest{
		Message: "summarize this",
		URL:     "https://example.com/article",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeChat(t, w)
	if resp.Content != "from the page" {
		t.Errorf("content = %q", resp.Content)
	}
	if _, ok := env.sessions.Lookup(resp.ConversationID); !ok {
		t.Error("first URL turn should register a pipeline")
	}
}

func TestHandleChatURL_FollowUpReusesPipeline(t *testing.T) {
	env := newTestEnv(t)
	env.svc.replies = []string{"first", "condensed", "second"}

	w := postJSON(t, env.server.Routes(), "/api/chat-url", chatRequest{
		Message: "first question",
		URL:     "https://example.com",
	})
	id := decodeChat(t, w).ConversationID

	// Break the loader: a refetch would now fail the turn.
	env.loader.err = fmt.Errorf("%w: gone", entities.ErrFetch)

	w = postJSON(t, env.server.Routes(), "/api/chat-url", chatRequest{
		Message:        "follow-up",
		ConversationID: id,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("follow-up should reuse the pipeline, got %d: %s", w.Code, w.Body.String())
	}

	history, _ := env.conversations.Get(id)
	if len(history) != 4 {
		t.Errorf("expected 4 messages after two turns, got %d", len(history))
	}
}

func TestHandleChatURL_InvalidURL(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/chat-url", chatRequest{Message: "q", URL: "ftp://example.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleChatURL_FetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.loader.err = fmt.Errorf("%w: status 500", entities.ErrFetch)

	w := postJSON(t, env.server.Routes(), "/api/chat-url", chatRequest{Message: "q", URL: "https://example.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleDecodeError(t *testing.T) {
	env := newTestEnv(t)
	env.svc.replies = []string{"nil pointer dereference means ..."}

	w := postJSON(t, env.server.Routes(), "/api/decode-error", decodeErrorRequest{
		ErrorMessage: "panic: runtime error: invalid memory address",
		Language:     "go",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp decodeErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp.Content, "nil pointer") {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestHandleDecodeError_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.server.Routes(), "/api/decode-error", decodeErrorRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	w := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

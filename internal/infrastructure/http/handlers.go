package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

const maxUploadBytes = 32 << 20

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model,omitempty"`
	URL            string `json:"url,omitempty"`
}

type chatResponse struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

type uploadResponse struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	ConversationID string `json:"conversation_id"`
}

type decodeErrorRequest struct {
	ErrorMessage string `json:"error_message"`
	Language     string `json:"language,omitempty"`
	Model        string `json:"model,omitempty"`
}

type decodeErrorResponse struct {
	Content string `json:"content"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// handleChat runs one direct-completion turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, msg, err := s.chat.Chat(r.Context(), req.ConversationID, req.Message, req.Model)
	if err != nil {
		s.respondError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ID:             msg.ID,
		Content:        msg.Content,
		ConversationID: id,
	})
}

// handleUpload accepts a multipart document, stores it, and ingests it
// into a fresh conversation. The returned conversation id is what the
// client chats against via /api/chat-doc.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	meta, err := s.files.Save(file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.respondError(w, err, "")
		return
	}

	conversationID, err := s.ingest.Ingest(r.Context(), meta.Path, r.FormValue("conversation_id"))
	if err != nil {
		s.respondError(w, err, "")
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		FileID:         meta.ID,
		Filename:       meta.Filename,
		ConversationID: conversationID,
	})
}

// handleChatDoc answers a question against a previously ingested document.
func (s *Server) handleChatDoc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "conversation_id is required"})
		return
	}

	msg, err := s.rag.Answer(r.Context(), req.ConversationID, req.Message, req.Model)
	if err != nil {
		s.respondError(w, err, req.ConversationID)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ID:             msg.ID,
		Content:        msg.Content,
		ConversationID: req.ConversationID,
	})
}

// handleChatURL answers a question against a web page. The first turn
// ingests the URL and registers the pipeline; follow-up turns carrying
// the returned conversation id reuse it without refetching.
func (s *Server) handleChatURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	conversationID := req.ConversationID
	if _, ok := s.sessions.Lookup(conversationID); !ok {
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			s.respondError(w, fmt.Errorf("%w: url must start with http:// or https://", entities.ErrInvalidInput), conversationID)
			return
		}
		id, err := s.ingest.Ingest(r.Context(), req.URL, conversationID)
		if err != nil {
			s.respondError(w, err, conversationID)
			return
		}
		conversationID = id
	}

	msg, err := s.rag.Answer(r.Context(), conversationID, req.Message, req.Model)
	if err != nil {
		s.respondError(w, err, conversationID)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ID:             msg.ID,
		Content:        msg.Content,
		ConversationID: conversationID,
	})
}

// handleDecodeError explains a pasted error message. Stateless.
func (s *Server) handleDecodeError(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req decodeErrorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	content, err := s.chat.DecodeError(r.Context(), req.ErrorMessage, req.Language, req.Model)
	if err != nil {
		s.respondError(w, err, "")
		return
	}

	respondJSON(w, http.StatusOK, decodeErrorResponse{Content: content})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aspada.com/assistant/internal/core"
	"aspada.com/assistant/internal/leads"
	"aspada.com/assistant/internal/store"
)

const maxBodyBytes = 64 << 10

// Assistant is the behaviour the HTTP layer exposes; *core.ChatService
// implements it.
type Assistant interface {
	ChatWithAI(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error)
	SubmitFeedback(ctx context.Context, cacheID string, isHelpful bool) (*store.CacheEntry, error)
	SubmitContact(ctx context.Context, contact leads.Contact) (*store.Lead, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	assistant Assistant
	db        Pinger
	logger    *zap.Logger
}

func NewAPIHandler(assistant Assistant, db Pinger, logger *zap.Logger) *APIHandler {
	return &APIHandler{assistant: assistant, db: db, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps service errors onto status codes. Internal details are
// logged, not returned.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	var extErr *core.ExternalServiceError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.As(err, &extErr):
		h.logger.Error("upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "The assistant is unavailable right now, please try again"})
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.assistant.ChatWithAI(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type FeedbackRequest struct {
	CacheID   string `json:"cacheId"`
	IsHelpful *bool  `json:"isHelpful"`
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsHelpful == nil {
		h.writeError(w, r, &core.ValidationError{Field: "isHelpful", Message: "is required"})
		return
	}

	entry, err := h.assistant.SubmitFeedback(r.Context(), req.CacheID, *req.IsHelpful)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) ContactHandler(w http.ResponseWriter, r *http.Request) {
	var req leads.Contact
	if !decodeBody(w, r, &req) {
		return
	}

	lead, err := h.assistant.SubmitContact(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package ai

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// Handler provides HTTP handlers for the assistant chat
type Handler struct {
	client *Client
	store  *store.Store
}

// NewHandler creates a new AI handler
func NewHandler(client *Client, s *store.Store) *Handler {
	return &Handler{client: client, store: s}
}

// Routes registers the assistant routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/chat", h.Chat)
	r.Get("/conversation", h.GetConversation)
	r.Get("/health", h.HealthCheck)

	return r
}

// Chat relays one message to the assistant. Both the user turn and the
// assistant turn are appended to the caller's conversation log, so the log
// keeps the user's question even when the service is down.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	user := sharedauth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, errors.BadRequest("message is required"))
		return
	}

	if _, err := h.store.AppendAIChatEntry(r.Context(), user.ID, &store.AIChatEntry{
		Type:    "user",
		Content: req.Message,
	}); err != nil {
		writeError(w, err)
		return
	}

	reply, err := h.client.Chat(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.store.AppendAIChatEntry(r.Context(), user.ID, &store.AIChatEntry{
		Type:       "assistant",
		Content:    reply.Reply,
		Confidence: reply.Confidence,
		Sources:    reply.Sources,
		Actions:    reply.Actions,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// GetConversation returns the caller's conversation log in append order
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := sharedauth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	log, err := h.store.GetAIConversation(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": log,
	})
}

// HealthCheck checks assistant service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

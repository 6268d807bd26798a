package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/views"
)

func viewingRole(user *sharedauth.User) store.Role {
	if user.IsClinical() || user.IsAdmin() {
		return store.RoleDoctor
	}
	return store.RolePatient
}

// ListConversations returns the caller's threads, decorated with counterpart
// name, preview, and unread count, most recently active first.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	convs, err := h.views.ListConversations(r.Context(), user.ID, viewingRole(user))
	if err != nil {
		writeError(w, err)
		return
	}
	filtered := views.FilterConversations(convs, parseQuery(r), h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  filtered,
		"total": len(filtered),
	})
}

// StartConversation opens a thread between the caller and the named
// counterpart. The caller always sits on their own side of the pair.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req struct {
		DoctorID  types.ID `json:"doctorId,omitempty"`
		PatientID types.ID `json:"patientId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	doctorID, patientID := req.DoctorID, req.PatientID
	if user.IsClinical() {
		doctorID = user.ID
	} else {
		patientID = user.ID
	}
	if doctorID.IsZero() || patientID.IsZero() {
		writeError(w, errors.BadRequest("both participants are required"))
		return
	}

	conv, err := h.store.StartConversation(r.Context(), doctorID, patientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *Handler) conversationForParticipant(w http.ResponseWriter, r *http.Request, user *sharedauth.User) *store.Conversation {
	conv, err := store.Get(r.Context(), h.store, store.Conversations, types.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return nil
	}
	if conv.DoctorID != user.ID && conv.PatientID != user.ID && !user.IsAdmin() {
		writeError(w, errors.Forbidden("not a participant in this conversation"))
		return nil
	}
	return conv
}

// ListMessages returns the thread's messages in thread order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	conv := h.conversationForParticipant(w, r, user)
	if conv == nil {
		return
	}

	msgs, err := h.store.ListMessagesByConversation(r.Context(), conv.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  msgs,
		"total": len(msgs),
	})
}

// SendMessage appends a message to the thread on the caller's side.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	conv := h.conversationForParticipant(w, r, user)
	if conv == nil {
		return
	}

	var req struct {
		Content     string `json:"content"`
		MessageType string `json:"messageType,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, errors.BadRequest("content is required"))
		return
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}

	senderType := store.SenderPatient
	if user.IsClinical() {
		senderType = store.SenderDoctor
	}

	msg, err := h.store.AppendMessage(r.Context(), conv.ID, user.ID, senderType, req.Content, req.MessageType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// MarkConversationRead stamps read receipts for the caller's side on every
// unread message from the other side. Idempotent.
func (h *Handler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	conv := h.conversationForParticipant(w, r, user)
	if conv == nil {
		return
	}

	marked, err := h.store.MarkMessagesAsRead(r.Context(), conv.ID, viewingRole(user))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markedRead": marked})
}

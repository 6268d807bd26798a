package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/views"
)

func validFolder(f store.EmailFolder) bool {
	switch f {
	case store.FolderInbox, store.FolderSent, store.FolderStarred, store.FolderArchive, store.FolderTrash:
		return true
	}
	return false
}

// ListEmails returns the caller's emails in the requested folder, filtered
// and newest first. The folder defaults to inbox.
func (h *Handler) ListEmails(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	q := parseQuery(r)
	folder := store.EmailFolder(q.Folder)
	if folder == "" {
		folder = store.FolderInbox
	}
	if !validFolder(folder) {
		writeError(w, errors.BadRequest("unknown folder "+string(folder)))
		return
	}

	emails, err := h.store.ListEmailsByFolder(r.Context(), user.Email, folder)
	if err != nil {
		writeError(w, err)
		return
	}

	// The folder already scoped the list; keep the remaining pipeline stages.
	q.Folder = ""
	filtered := views.FilterEmails(emails, q, h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  filtered,
		"total": len(filtered),
	})
}

// ComposeEmail files a new email in the recipient's inbox.
func (h *Handler) ComposeEmail(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req struct {
		RecipientEmail string   `json:"recipientEmail"`
		CCEmails       []string `json:"ccEmails,omitempty"`
		Subject        string   `json:"subject"`
		Body           string   `json:"body"`
		Priority       string   `json:"priority,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := make(map[string]string)
	if strings.TrimSpace(req.RecipientEmail) == "" {
		details["recipientEmail"] = "recipientEmail is required"
	}
	if strings.TrimSpace(req.Subject) == "" {
		details["subject"] = "subject is required"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("email request is invalid", details))
		return
	}

	email := &store.Email{
		SenderID:       user.ID,
		SenderEmail:    user.Email,
		RecipientEmail: req.RecipientEmail,
		CCEmails:       req.CCEmails,
		Subject:        req.Subject,
		Body:           req.Body,
		Priority:       req.Priority,
		Folder:         store.FolderInbox,
		SentAt:         h.now(),
	}
	created, err := store.Create(r.Context(), h.store, store.Emails, email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ownedEmail(w http.ResponseWriter, r *http.Request) *store.Email {
	user := requireUser(w, r)
	if user == nil {
		return nil
	}
	email, err := store.Get(r.Context(), h.store, store.Emails, types.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return nil
	}
	mine := strings.EqualFold(email.RecipientEmail, user.Email) || strings.EqualFold(email.SenderEmail, user.Email)
	if !mine && !user.IsAdmin() {
		writeError(w, errors.Forbidden("not your email"))
		return nil
	}
	return email
}

// MoveEmail moves an email to another folder. Moving to trash is the portal's
// soft delete.
func (h *Handler) MoveEmail(w http.ResponseWriter, r *http.Request) {
	email := h.ownedEmail(w, r)
	if email == nil {
		return
	}

	var req struct {
		Folder store.EmailFolder `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if !validFolder(req.Folder) || req.Folder == store.FolderStarred {
		writeError(w, errors.BadRequest("cannot move to folder "+string(req.Folder)))
		return
	}

	updated, err := h.store.MoveEmail(r.Context(), email.ID, req.Folder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// StarEmail sets or clears the star flag.
func (h *Handler) StarEmail(w http.ResponseWriter, r *http.Request) {
	email := h.ownedEmail(w, r)
	if email == nil {
		return
	}

	var req struct {
		Starred bool `json:"starred"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	updated, err := h.store.StarEmail(r.Context(), email.ID, req.Starred)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// MarkEmailRead sets or clears the read flag.
func (h *Handler) MarkEmailRead(w http.ResponseWriter, r *http.Request) {
	email := h.ownedEmail(w, r)
	if email == nil {
		return
	}

	var req struct {
		Read bool `json:"read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	updated, err := h.store.MarkEmailRead(r.Context(), email.ID, req.Read)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

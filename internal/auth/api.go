package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Handler provides HTTP handlers for sign-in and sign-out
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the auth routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// ProtectedRoutes registers routes that require an authenticated session
func (h *Handler) ProtectedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/logout", h.Logout)
	return r
}

// LoginRequest is the sign-in request. Role is the selector shown in the
// login form; the account's real role wins.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Login signs the user in
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.Role != "" && !ValidRole(req.Role) {
		writeError(w, errors.BadRequest("unknown role"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout revokes the caller's session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := sharedauth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Logout(r.Context(), types.ID(user.SessionID)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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

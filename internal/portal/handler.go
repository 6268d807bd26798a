// Package portal exposes the portal's authenticated HTTP surface:
// appointments, reports, messaging, emails, dashboards, narration, and the
// admin aggregates.
package portal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/narration"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/views"
)

// Handler provides the portal HTTP handlers. Role checks that depend on the
// resource (a patient may only read their own reports) live in the handlers;
// whole-route role gates use RequireRoles.
type Handler struct {
	store    *store.Store
	views    *views.Builder
	narrator *narration.Narrator
	now      func() time.Time
}

// NewHandler creates the portal handler. The narrator may be nil when no
// speech engine is configured; narration routes then report unavailable.
func NewHandler(s *store.Store, narrator *narration.Narrator) *Handler {
	return &Handler{
		store:    s,
		views:    views.NewBuilder(s),
		narrator: narrator,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Routes registers every portal route. Callers mount this under the JWT
// middleware; handlers assume an authenticated user in context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.ListAppointments)
		r.Post("/", h.BookAppointment)
		r.Get("/{id}", h.GetAppointment)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/{id}/confirm", h.ConfirmAppointment)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/{id}/complete", h.CompleteAppointment)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/{id}/no-show", h.MarkNoShow)
		r.Post("/{id}/cancel", h.CancelAppointment)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/", h.CreateReport)
		r.Get("/{id}", h.GetReport)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/{id}/finalize", h.FinalizeReport)
		r.With(sharedauth.RequireRoles("doctor", "clinician")).Post("/{id}/amend", h.AmendReport)
	})

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Post("/", h.StartConversation)
		r.Get("/{id}/messages", h.ListMessages)
		r.Post("/{id}/messages", h.SendMessage)
		r.Post("/{id}/read", h.MarkConversationRead)
	})

	r.Route("/emails", func(r chi.Router) {
		r.Get("/", h.ListEmails)
		r.Post("/", h.ComposeEmail)
		r.Post("/{id}/move", h.MoveEmail)
		r.Post("/{id}/star", h.StarEmail)
		r.Post("/{id}/read", h.MarkEmailRead)
	})

	r.Route("/narration", func(r chi.Router) {
		r.Post("/script", h.GenerateScript)
		r.Post("/speak", h.Speak)
		r.Post("/stop", h.StopNarration)
		r.Get("/state", h.NarrationState)
	})

	r.Get("/dashboard", h.Dashboard)
	r.Get("/doctors", h.ListDoctors)
	r.Get("/me", h.Me)

	r.Route("/admin", func(r chi.Router) {
		r.Use(sharedauth.RequireRoles("admin"))
		r.Get("/users", h.ListUsers)
		r.Get("/training", h.GetTraining)
		r.Post("/training/run", h.RunTraining)
		r.Get("/analytics", h.GetAnalytics)
		r.Post("/analytics/refresh", h.RefreshAnalytics)
	})

	return r
}

// --- Helpers ---

func requireUser(w http.ResponseWriter, r *http.Request) *sharedauth.User {
	user := sharedauth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
	}
	return user
}

func parseQuery(r *http.Request) views.Query {
	q := r.URL.Query()
	return views.Query{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Folder:   q.Get("folder"),
		Range:    views.DateBucket(q.Get("range")),
	}
}

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

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/reminderservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// loc is the zone used for timed reminders in the iCalendar export.
func NewRouter(svc *reminderservice.Service, authEnabled bool, token string, sseHandler http.Handler, loc *time.Location) chi.Router {
	h := NewHandler(svc, loc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Reminders CRUD keyed by date.
	r.Get("/reminders", h.ListReminders)
	r.Get("/reminders/{date}", h.GetReminder)
	r.Put("/reminders/{date}", h.SetReminder)
	r.Delete("/reminders/{date}", h.DeleteReminder)

	// Calendar / dropdown synchronisation.
	r.Get("/selection", h.GetSelection)
	r.Post("/selection", h.Select)

	// Queries.
	r.Get("/search", h.Search)
	r.Get("/range", h.Range)

	// Export.
	r.Get("/calendar.ics", h.ExportICS)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

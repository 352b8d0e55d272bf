package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/ical"
	"github.com/starford/dagaz/internal/reminder"
	"github.com/starford/dagaz/internal/reminderservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *reminderservice.Service
	loc *time.Location
}

// NewHandler creates a new Handler.
func NewHandler(svc *reminderservice.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{svc: svc, loc: loc}
}

// writeValidation reports a rejected input, or falls back to 500 for other errors.
func writeValidation(w http.ResponseWriter, err error, op string) {
	var verr *reminder.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: verr.Message, Kind: verr.Kind})
		return
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// ListReminders handles GET /api/reminders.
//
//	@Summary		List reminders in date order
//	@Tags			reminders
//	@Produce		json
//	@Success		200	{object}	ReminderListResponse
//	@Success		304
//	@Security		BearerAuth
//	@Router			/reminders [get]
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(ReminderListResponse{Reminders: h.svc.List(r.Context())})
	if err != nil {
		slog.Error("encode reminder list", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	// Polling views send the last tag back and get 304 while nothing changed.
	tag := checksum.ETag(body)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// GetReminder handles GET /api/reminders/{date}.
//
//	@Summary		View the reminder stored for a date
//	@Tags			reminders
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Success		200		{object}	ReminderResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders/{date} [get]
func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	e, err := h.svc.View(r.Context(), date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("No reminder found for "+date+"."))
		} else {
			slog.Error("view reminder failed", slog.String("date", date), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SetReminder handles PUT /api/reminders/{date}.
//
//	@Summary		Create or replace the reminder for a date
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Date (YYYY-MM-DD)"
//	@Param			body	body		SetReminderRequest	true	"Reminder"
//	@Success		200		{object}	ReminderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders/{date} [put]
func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	date := chi.URLParam(r, "date")

	var req SetReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	e, err := h.svc.Set(r.Context(), reminder.Input{
		Date:       date,
		Time:       req.Time,
		Recurrence: req.Recurrence,
		Text:       req.Text,
	})
	if err != nil {
		writeValidation(w, err, "set reminder")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteReminder handles DELETE /api/reminders/{date}.
//
//	@Summary		Delete the reminder for a date
//	@Tags			reminders
//	@Param			date	path	string	true	"Date (YYYY-MM-DD)"
//	@Success		204		"Reminder deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders/{date} [delete]
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := h.svc.Delete(r.Context(), date); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("No reminder to delete for "+date+"."))
		} else {
			slog.Error("delete reminder failed", slog.String("date", date), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Current calendar selection
//	@Tags			selection
//	@Produce		json
//	@Success		200	{object}	SelectedResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SelectedResponse{Date: h.svc.Selected()})
}

// Select handles POST /api/selection.
//
//	@Summary		Move every view to a date and load its reminder
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectRequest	true	"Date to select"
//	@Success		200		{object}	SelectionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sel, err := h.svc.Select(r.Context(), req.Date)
	if err != nil {
		writeValidation(w, err, "select date")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Search handles GET /api/search.
//
//	@Summary		Search reminder text
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	EntriesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Reminders: nonNil(results)})
}

// Range handles GET /api/range.
//
//	@Summary		Reminders between two dates
//	@Tags			search
//	@Produce		json
//	@Param			from	query		string	false	"First date (inclusive)"
//	@Param			to		query		string	false	"Last date (inclusive)"
//	@Success		200		{object}	EntriesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/range [get]
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.svc.Range(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeValidation(w, err, "range")
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Reminders: nonNil(results)})
}

// ExportICS handles GET /api/calendar.ics.
//
//	@Summary		Export reminders as iCalendar
//	@Tags			export
//	@Produce		text/calendar
//	@Success		200
//	@Security		BearerAuth
//	@Router			/calendar.ics [get]
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	data, err := ical.Bytes(h.svc.Entries(r.Context()), h.loc, time.Now())
	if err != nil {
		slog.Error("ical export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reminders.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

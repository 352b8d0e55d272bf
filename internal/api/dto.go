package api

import (
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/reminderservice"
)

// SetReminderRequest is the request body for PUT /reminders/{date}.
type SetReminderRequest struct {
	Time       string `json:"time" example:"09:30"`
	Recurrence string `json:"recurrence" example:"Weekly" enums:"None,Daily,Weekly,Monthly"`
	Text       string `json:"text" example:"Dentist appointment" validate:"required"`
}

// SelectRequest is the request body for POST /selection.
type SelectRequest struct {
	Date string `json:"date" example:"2024-02-20" validate:"required"`
}

// ReminderResponse is a single stored reminder.
type ReminderResponse = models.Entry

// ReminderListResponse wraps the upcoming-reminders rows.
type ReminderListResponse struct {
	Reminders []models.ListItem `json:"reminders" validate:"required"`
}

// EntriesResponse wraps search and range results.
type EntriesResponse struct {
	Reminders []models.Entry `json:"reminders" validate:"required"`
}

// SelectionResponse is returned after the selected date changes.
type SelectionResponse = reminderservice.Selection

// SelectedResponse reports the current selection.
type SelectedResponse struct {
	Date string `json:"date" example:"2024-02-20"`
}

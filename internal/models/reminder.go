// Package models defines the domain types for Dagaz.
package models

import "strings"

// Recurrence is an inert tag attached to a reminder. Nothing expands it into
// occurrences.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "None"
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

// Recurrences lists every accepted tag in display order.
var Recurrences = []Recurrence{RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly}

// Record is the note stored under a date key.
type Record struct {
	Text       string     `json:"text"`
	Time       string     `json:"time"`
	Recurrence Recurrence `json:"recurrence"`
}

// Entry pairs a date key with its record.
type Entry struct {
	Date string `json:"date"`
	Record
}

// ListItem is a row of the upcoming-reminders view.
type ListItem struct {
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Recurrence Recurrence `json:"recurrence"`
	Preview    string     `json:"preview"`
}

// String renders the row as "date [time] [(recurrence)]: preview".
func (it ListItem) String() string {
	var b strings.Builder
	b.WriteString(it.Date)
	if it.Time != "" {
		b.WriteString(" " + it.Time)
	}
	if it.Recurrence != "" && it.Recurrence != RecurrenceNone {
		b.WriteString(" (" + string(it.Recurrence) + ")")
	}
	b.WriteString(": " + it.Preview)
	return b.String()
}

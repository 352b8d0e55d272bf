// Package ical renders reminders as an iCalendar document.
package ical

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/reminder"
)

// ProductID identifies the generator in exported calendars.
const ProductID = "-//Dagaz//Reminders//EN"

var freq = map[models.Recurrence]rrule.Frequency{
	models.RecurrenceDaily:   rrule.DAILY,
	models.RecurrenceWeekly:  rrule.WEEKLY,
	models.RecurrenceMonthly: rrule.MONTHLY,
}

// Calendar builds a VCALENDAR with one VEVENT per entry. Untimed reminders
// become all-day events; timed ones are interpreted in loc and written in UTC.
// Recurrence tags are written as RRULE properties and not expanded. Keys that
// are not calendar dates are skipped.
func Calendar(entries []models.Entry, loc *time.Location, stamp time.Time) (*goical.Calendar, error) {
	if loc == nil {
		loc = time.Local
	}
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, ProductID)

	for _, e := range entries {
		day, err := time.ParseInLocation(reminder.DateLayout, e.Date, loc)
		if err != nil {
			// Early data files keyed reminders by free text.
			slog.Warn("ical: skipping reminder without a calendar date", slog.String("key", e.Date))
			continue
		}

		ev := goical.NewEvent()
		ev.Props.SetText(goical.PropUID, e.Date+"@dagaz")
		ev.Props.SetText(goical.PropSummary, e.Text)
		ev.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())

		if e.Time == "" {
			ev.Props.SetDate(goical.PropDateTimeStart, day)
		} else {
			clock, err := time.Parse(reminder.TimeLayout, e.Time)
			if err != nil {
				slog.Warn("ical: skipping reminder with unreadable time", slog.String("date", e.Date), slog.String("time", e.Time))
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			ev.Props.SetDateTime(goical.PropDateTimeStart, start.UTC())
		}

		if f, ok := freq[e.Recurrence]; ok {
			ev.Props.SetRecurrenceRule(&rrule.ROption{Freq: f})
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return cal, nil
}

// Write encodes entries as iCalendar to w.
func Write(w io.Writer, entries []models.Entry, loc *time.Location, stamp time.Time) error {
	cal, err := Calendar(entries, loc, stamp)
	if err != nil {
		return err
	}
	if len(cal.Children) == 0 {
		// The encoder expects at least one component.
		_, err := io.WriteString(w, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:"+ProductID+"\r\nEND:VCALENDAR\r\n")
		return err
	}
	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("ical: encode: %w", err)
	}
	return nil
}

// Bytes is Write into a buffer.
func Bytes(entries []models.Entry, loc *time.Location, stamp time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries, loc, stamp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

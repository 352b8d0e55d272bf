// Package reminderservice implements the operations the UI shell calls:
// set, view, delete, list and date selection.
package reminderservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/reminder"
)

// PreviewLen is the number of text characters shown per list row.
const PreviewLen = 30

// Publisher receives change notifications for connected views.
type Publisher interface {
	PublishReminderEvent(kind, date string)
	PublishSelection(date string)
}

// Selection is the result of moving the calendar to a date.
type Selection struct {
	Date     string        `json:"date"`
	Found    bool          `json:"found"`
	Reminder *models.Entry `json:"reminder,omitempty"`
}

// Service owns the application state the views share: the store, its search
// index and the currently selected date.
type Service struct {
	store  *reminder.Store
	idx    index.ReminderIndex
	pub    Publisher
	logger *slog.Logger

	// writeMu keeps store mutations and their index updates in the same order.
	writeMu sync.Mutex

	mu       sync.RWMutex
	selected string
}

// NewService creates a reminder service. idx and pub may be nil.
func NewService(store *reminder.Store, idx index.ReminderIndex, pub Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, idx: idx, pub: pub, logger: logger}
}

// Store returns the underlying reminder store.
func (s *Service) Store() *reminder.Store {
	return s.store
}

// Set validates in and stores it under its date, replacing any existing
// reminder. Validation failures are *reminder.ValidationError. When the save
// fails the store keeps the change, so the index and views follow it and the
// save error is returned.
func (s *Service) Set(_ context.Context, in reminder.Input) (models.Entry, error) {
	rec, err := reminder.Validate(in)
	if err != nil {
		return models.Entry{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	saveErr := s.store.Set(in.Date, rec)
	var verr *reminder.ValidationError
	if errors.As(saveErr, &verr) {
		return models.Entry{}, saveErr
	}

	e := models.Entry{Date: in.Date, Record: rec}
	if s.idx != nil {
		if err := s.idx.Upsert(e); err != nil {
			s.logger.Warn("index upsert failed", slog.String("date", e.Date), slog.String("error", err.Error()))
		}
	}
	s.publish("set", e.Date)
	if saveErr != nil {
		return models.Entry{}, saveErr
	}
	s.logger.Debug("reminder set", slog.String("date", e.Date))
	return e, nil
}

// View returns the reminder stored for date, or apperr.ErrNotFound.
func (s *Service) View(_ context.Context, date string) (models.Entry, error) {
	rec, ok := s.store.Get(date)
	if !ok {
		return models.Entry{}, apperr.ErrNotFound
	}
	return models.Entry{Date: date, Record: rec}, nil
}

// Delete removes the reminder for date. It returns apperr.ErrNotFound when
// there is nothing to delete.
func (s *Service) Delete(_ context.Context, date string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ok, saveErr := s.store.Delete(date)
	if !ok {
		return apperr.ErrNotFound
	}
	if s.idx != nil {
		if err := s.idx.Delete(date); err != nil {
			s.logger.Warn("index delete failed", slog.String("date", date), slog.String("error", err.Error()))
		}
	}
	s.publish("deleted", date)
	return saveErr
}

// List returns the upcoming-reminders rows in date order.
func (s *Service) List(_ context.Context) []models.ListItem {
	entries := s.store.ListSorted()
	out := make([]models.ListItem, len(entries))
	for i, e := range entries {
		out[i] = models.ListItem{
			Date:       e.Date,
			Time:       e.Time,
			Recurrence: e.Recurrence,
			Preview:    Preview(e.Text),
		}
	}
	return out
}

// Entries returns the full records in date order.
func (s *Service) Entries(_ context.Context) []models.Entry {
	return s.store.ListSorted()
}

// Select moves every view to date and returns what is stored there.
func (s *Service) Select(ctx context.Context, date string) (Selection, error) {
	if !reminder.IsValidDate(date) {
		return Selection{}, &reminder.ValidationError{Kind: reminder.KindInvalidDate, Field: "date", Message: "Date must be in YYYY-MM-DD format."}
	}

	s.mu.Lock()
	s.selected = date
	s.mu.Unlock()
	if s.pub != nil {
		s.pub.PublishSelection(date)
	}

	sel := Selection{Date: date}
	e, err := s.View(ctx, date)
	switch {
	case err == nil:
		sel.Found = true
		sel.Reminder = &e
	case !errors.Is(err, apperr.ErrNotFound):
		return Selection{}, err
	}
	return sel, nil
}

// Selected returns the date last passed to Select, or "".
func (s *Service) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Search returns reminders whose text contains query literally, ignoring ASCII
// case. Without an index it scans the store with the same matching rules.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Entry, error) {
	if s.idx != nil {
		return s.idx.Search(query, limit)
	}
	if limit <= 0 {
		limit = 20
	}
	q := foldASCII(query)
	var out []models.Entry
	for _, e := range s.store.ListSorted() {
		if strings.Contains(foldASCII(e.Text), q) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Range returns reminders dated between from and to inclusive. Empty bounds
// are open.
func (s *Service) Range(_ context.Context, from, to string) ([]models.Entry, error) {
	for _, d := range []string{from, to} {
		if d != "" && !reminder.IsValidDate(d) {
			return nil, &reminder.ValidationError{Kind: reminder.KindInvalidDate, Field: "date", Message: "Date must be in YYYY-MM-DD format."}
		}
	}
	if s.idx != nil {
		return s.idx.Range(from, to)
	}
	var out []models.Entry
	for _, e := range s.store.ListSorted() {
		if e.Date >= from && (to == "" || e.Date <= to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SyncIndex copies the store into the search index.
func (s *Service) SyncIndex() error {
	if s.idx == nil {
		return nil
	}
	stats, err := s.idx.Sync(s.store.Snapshot())
	if err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	s.logger.Debug("index synced", slog.Int("upserted", stats.Upserted), slog.Int("removed", stats.Removed))
	return nil
}

// Reload re-reads the data file after an external change. A corrupt file is
// reported and the current state kept.
func (s *Service) Reload(_ context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Reload(); err != nil {
		return err
	}
	if err := s.SyncIndex(); err != nil {
		s.logger.Warn("index resync failed", slog.String("error", err.Error()))
	}
	s.publish("reloaded", "")
	return nil
}

func (s *Service) publish(kind, date string) {
	if s.pub != nil {
		s.pub.PublishReminderEvent(kind, date)
	}
}

// Preview shortens text for a list row.
func Preview(text string) string {
	r := []rune(text)
	if len(r) > PreviewLen {
		r = r[:PreviewLen]
	}
	return string(r) + "..."
}

// foldASCII lowercases A-Z only, matching SQLite's LIKE.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

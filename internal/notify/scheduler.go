// Package notify announces reminders that fall due today.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/reminder"
)

// DefaultSchedule checks once a minute.
const DefaultSchedule = "* * * * *"

// Source looks up the reminder for a date.
type Source interface {
	Get(date string) (models.Record, bool)
}

// Publisher receives due notifications.
type Publisher interface {
	PublishReminderEvent(kind, date string)
}

// Scheduler runs the due check on a cron schedule. A reminder is due once its
// date is today and its time has passed; untimed reminders are due all day.
// Each reminder fires at most once per day. Recurrence tags are ignored.
type Scheduler struct {
	cron   *cron.Cron
	src    Source
	pub    Publisher
	loc    *time.Location
	logger *slog.Logger

	mu    sync.Mutex
	day   string
	fired map[string]struct{}
}

// New creates a scheduler evaluating dates in loc.
func New(src Source, pub Publisher, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		src:    src,
		pub:    pub,
		loc:    loc,
		logger: logger,
		fired:  map[string]struct{}{},
	}
}

// Start registers the check under spec and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Check(time.Now()) }); err != nil {
		return fmt.Errorf("notify: add due check: %w", err)
	}

	s.cron.Start()
	s.logger.Info("notify: scheduler started", slog.String("schedule", spec), slog.String("timezone", s.loc.String()))

	// Catch up on anything already due at startup.
	s.Check(time.Now())

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("notify: scheduler stopped")
	return nil
}

// Check fires every reminder due at now and returns them.
func (s *Scheduler) Check(now time.Time) []models.Entry {
	now = now.In(s.loc)
	today := now.Format(reminder.DateLayout)

	rec, ok := s.src.Get(today)
	if !ok {
		return nil
	}
	if rec.Time != "" {
		clock, err := time.Parse(reminder.TimeLayout, rec.Time)
		if err != nil {
			s.logger.Warn("notify: bad reminder time", slog.String("date", today), slog.String("time", rec.Time))
			return nil
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, s.loc)
		if now.Before(at) {
			return nil
		}
	}

	// Keyed on content so an edited reminder fires again.
	key := rec.Time + "\x00" + rec.Text
	s.mu.Lock()
	if s.day != today {
		s.day = today
		s.fired = map[string]struct{}{}
	}
	if _, done := s.fired[key]; done {
		s.mu.Unlock()
		return nil
	}
	s.fired[key] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("reminder due",
		slog.String("date", today),
		slog.String("time", rec.Time),
		slog.String("text", rec.Text))
	if s.pub != nil {
		s.pub.PublishReminderEvent("due", today)
	}
	return []models.Entry{{Date: today, Record: rec}}
}

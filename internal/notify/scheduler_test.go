package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/testutil"
)

type mapSource map[string]models.Record

func (m mapSource) Get(date string) (models.Record, bool) {
	r, ok := m[date]
	return r, ok
}

func testScheduler(src Source) (*Scheduler, *testutil.Publisher) {
	pub := &testutil.Publisher{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(src, pub, time.UTC, logger), pub
}

func at(day string, hh, mm int) time.Time {
	d, _ := time.Parse("2006-01-02", day)
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, time.UTC)
}

func TestCheck_TimedReminder(t *testing.T) {
	src := mapSource{"2024-06-01": {Text: "call mom", Time: "09:30", Recurrence: models.RecurrenceNone}}
	s, pub := testScheduler(src)

	if got := s.Check(at("2024-06-01", 9, 29)); len(got) != 0 {
		t.Errorf("fired early: %+v", got)
	}
	if got := s.Check(at("2024-06-01", 9, 30)); len(got) != 1 {
		t.Fatalf("not fired at its time")
	}
	if got := s.Check(at("2024-06-01", 9, 31)); len(got) != 0 {
		t.Errorf("fired twice: %+v", got)
	}
	if ev := pub.Events(); len(ev) != 1 || ev[0] != "due:2024-06-01" {
		t.Errorf("events = %v", ev)
	}
}

func TestCheck_UntimedFiresOncePerDay(t *testing.T) {
	src := mapSource{"2024-06-01": {Text: "birthday", Recurrence: models.RecurrenceNone}}
	s, _ := testScheduler(src)

	if got := s.Check(at("2024-06-01", 0, 0)); len(got) != 1 {
		t.Fatalf("untimed reminder not fired")
	}
	if got := s.Check(at("2024-06-01", 12, 0)); len(got) != 0 {
		t.Errorf("untimed reminder fired again")
	}
}

func TestCheck_EditedReminderFiresAgain(t *testing.T) {
	src := mapSource{"2024-06-01": {Text: "v1", Time: "08:00"}}
	s, _ := testScheduler(src)
	_ = s.Check(at("2024-06-01", 8, 0))

	src["2024-06-01"] = models.Record{Text: "v2", Time: "08:05"}
	if got := s.Check(at("2024-06-01", 8, 5)); len(got) != 1 || got[0].Text != "v2" {
		t.Errorf("edited reminder = %+v", got)
	}
}

func TestCheck_OtherDaysAndRecurrenceIgnored(t *testing.T) {
	src := mapSource{"2024-06-01": {Text: "weekly sync", Time: "10:00", Recurrence: models.RecurrenceWeekly}}
	s, _ := testScheduler(src)

	// A week later there is no stored reminder; the tag is not expanded.
	if got := s.Check(at("2024-06-08", 10, 0)); len(got) != 0 {
		t.Errorf("recurrence expanded: %+v", got)
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	s, _ := testScheduler(mapSource{})
	if err := s.Start(context.Background(), "not a cron spec"); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, _ := testScheduler(mapSource{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "@every 1h") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

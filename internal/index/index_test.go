package index

import (
	"os"
	"strings"
	"testing"

	"github.com/starford/dagaz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func entry(date, text string) models.Entry {
	return models.Entry{Date: date, Record: models.Record{Text: text, Recurrence: models.RecurrenceNone}}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM reminders`).Scan(&count); err != nil {
		t.Fatalf("reminders table missing: %v", err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(entry("2024-01-01", "old"))
	e := entry("2024-01-01", "new")
	e.Time = "10:00"
	e.Recurrence = models.RecurrenceWeekly
	if err := db.Upsert(e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	all, err := db.AllDates()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["2024-01-01"] != e.Record {
		t.Errorf("all = %+v", all)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(entry("2024-01-01", "x"))
	if err := db.Delete("2024-01-01"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Delete("2024-01-01"); err != nil {
		t.Errorf("deleting a missing row should not fail: %v", err)
	}
	all, _ := db.AllDates()
	if len(all) != 0 {
		t.Errorf("rows left: %d", len(all))
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(entry("2024-03-01", "call the dentist"))
	_ = db.Upsert(entry("2024-01-01", "dentist again"))
	_ = db.Upsert(entry("2024-02-01", "groceries"))

	results, err := db.Search("dentist", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 hits", results)
	}
	if results[0].Date != "2024-01-01" || results[1].Date != "2024-03-01" {
		t.Errorf("results not in date order: %+v", results)
	}
}

func TestSearch_WildcardsMatchLiterally(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(entry("2024-01-01", "buy 100 apples"))
	_ = db.Upsert(entry("2024-01-02", "save 100% of it"))
	_ = db.Upsert(entry("2024-01-03", "a_b"))
	_ = db.Upsert(entry("2024-01-04", "axb"))

	cases := map[string][]string{
		"100%": {"2024-01-02"},
		"%":    {"2024-01-02"},
		"a_b":  {"2024-01-03"},
	}
	for q, want := range cases {
		got, err := db.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		var dates []string
		for _, e := range got {
			dates = append(dates, e.Date)
		}
		if strings.Join(dates, ",") != strings.Join(want, ",") {
			t.Errorf("Search(%q) = %v, want %v", q, dates, want)
		}
	}
}

func TestRange(t *testing.T) {
	db := testDB(t)
	for _, d := range []string{"2024-01-10", "2024-02-10", "2024-03-10", "2024-04-10"} {
		_ = db.Upsert(entry(d, "r"))
	}
	got, err := db.Range("2024-02-01", "2024-03-31")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-02-10" || got[1].Date != "2024-03-10" {
		t.Errorf("Range = %+v", got)
	}

	open, _ := db.Range("2024-03-01", "")
	if len(open) != 2 {
		t.Errorf("open-ended range = %d rows, want 2", len(open))
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(entry("2024-01-01", "stale"))
	_ = db.Upsert(entry("2024-02-01", "unchanged"))

	src := map[string]models.Record{
		"2024-02-01": {Text: "unchanged", Recurrence: models.RecurrenceNone},
		"2024-03-01": {Text: "fresh", Time: "08:00", Recurrence: models.RecurrenceDaily},
	}
	stats, err := db.Sync(src)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Upserted != 1 || stats.Removed != 1 {
		t.Errorf("stats = %+v, want 1 upserted 1 removed", stats)
	}
	all, _ := db.AllDates()
	if len(all) != 2 || all["2024-03-01"] != src["2024-03-01"] {
		t.Errorf("after sync = %+v", all)
	}
}

// Package testutil provides shared test helpers for setting up stores and databases.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/reminder"
	"github.com/starford/dagaz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates an empty reminder store in a temporary data directory.
func TestStore(t *testing.T) (string, *reminder.Store) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	store, err := reminder.Load(fs, reminder.DefaultFile)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Publisher records published events as "kind:date" strings.
type Publisher struct {
	mu     sync.Mutex
	events []string
}

func (p *Publisher) PublishReminderEvent(kind, date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, kind+":"+date)
}

func (p *Publisher) PublishSelection(date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "selection:"+date)
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

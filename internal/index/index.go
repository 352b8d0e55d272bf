package index

import "github.com/starford/dagaz/internal/models"

// ReminderIndex defines the interface for reminder indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type ReminderIndex interface {
	Upsert(e models.Entry) error
	Delete(date string) error
	Search(query string, limit int) ([]models.Entry, error)
	Range(from, to string) ([]models.Entry, error)
	AllDates() (map[string]models.Record, error)
	Sync(src map[string]models.Record) (SyncStats, error)
	Close() error
}

// Verify *DB satisfies ReminderIndex at compile time.
var _ ReminderIndex = (*DB)(nil)

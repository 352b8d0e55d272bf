package index

import (
	"fmt"

	"github.com/starford/dagaz/internal/models"
)

// SyncStats counts the rows a Sync pass touched.
type SyncStats struct {
	Upserted int
	Removed  int
}

// Sync brings the index in line with src:
//   - new or changed records are upserted
//   - rows whose date is no longer in src are deleted
func (db *DB) Sync(src map[string]models.Record) (SyncStats, error) {
	var stats SyncStats
	current, err := db.AllDates()
	if err != nil {
		return stats, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return stats, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for date, rec := range src {
		if old, ok := current[date]; ok && old == rec {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO reminders (date, text, time, recurrence)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				text       = excluded.text,
				time       = excluded.time,
				recurrence = excluded.recurrence
		`, date, rec.Text, rec.Time, string(rec.Recurrence)); err != nil {
			return stats, fmt.Errorf("index: sync upsert %s: %w", date, err)
		}
		stats.Upserted++
	}

	for date := range current {
		if _, ok := src[date]; ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM reminders WHERE date = ?`, date); err != nil {
			return stats, fmt.Errorf("index: sync delete %s: %w", date, err)
		}
		stats.Removed++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("index: commit: %w", err)
	}
	return stats, nil
}

package index

import (
	"fmt"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

// Upsert inserts or replaces the row for e.Date.
func (db *DB) Upsert(e models.Entry) error {
	_, err := db.conn.Exec(`
		INSERT INTO reminders (date, text, time, recurrence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			text       = excluded.text,
			time       = excluded.time,
			recurrence = excluded.recurrence
	`, e.Date, e.Text, e.Time, string(e.Recurrence))
	if err != nil {
		return fmt.Errorf("index: upsert %s: %w", e.Date, err)
	}
	return nil
}

// Delete removes the row for date. Missing rows are not an error.
func (db *DB) Delete(date string) error {
	if _, err := db.conn.Exec(`DELETE FROM reminders WHERE date = ?`, date); err != nil {
		return fmt.Errorf("index: delete %s: %w", date, err)
	}
	return nil
}

// likeEscaper makes LIKE wildcards in user queries match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns reminders whose text contains query, in date order. The
// match is literal and ignores ASCII case.
func (db *DB) Search(query string, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.query(`
		SELECT date, text, time, recurrence
		FROM reminders
		WHERE text LIKE ? ESCAPE '\'
		ORDER BY date
		LIMIT ?
	`, "%"+likeEscaper.Replace(query)+"%", limit)
}

// Range returns reminders with from <= date <= to. Either bound may be empty
// to leave that side open.
func (db *DB) Range(from, to string) ([]models.Entry, error) {
	if to == "" {
		to = "9999-12-31"
	}
	return db.query(`
		SELECT date, text, time, recurrence
		FROM reminders
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, from, to)
}

// AllDates returns every indexed row keyed by date.
func (db *DB) AllDates() (map[string]models.Record, error) {
	entries, err := db.query(`SELECT date, text, time, recurrence FROM reminders`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Record, len(entries))
	for _, e := range entries {
		out[e.Date] = e.Record
	}
	return out, nil
}

func (db *DB) query(q string, args ...any) ([]models.Entry, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var rec string
		if err := rows.Scan(&e.Date, &e.Text, &e.Time, &rec); err != nil {
			return nil, err
		}
		e.Recurrence = models.Recurrence(rec)
		out = append(out, e)
	}
	return out, rows.Err()
}

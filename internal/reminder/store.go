// Package reminder holds the date-keyed reminder store, its JSON file format
// and the input validators.
package reminder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// DefaultFile is the data file name used when none is configured.
const DefaultFile = "reminders.json"

// CorruptDataError is returned by Load when the data file exists but is not
// a valid reminder document.
type CorruptDataError struct {
	Name string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("reminder: corrupt data file %s: %v", e.Name, e.Err)
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

// Store maps date keys to records. Every mutation rewrites the whole file
// before returning.
type Store struct {
	mu       sync.RWMutex
	provider storage.Provider
	name     string
	records  map[string]models.Record
	sum      string
}

// Load reads name through provider. A missing file yields an empty store.
func Load(provider storage.Provider, name string) (*Store, error) {
	s := &Store{provider: provider, name: name, records: map[string]models.Record{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory mapping with the file contents. On error the
// current mapping is left untouched.
func (s *Store) Reload() error {
	ok, err := s.provider.Exists(s.name)
	if err != nil {
		return fmt.Errorf("reminder: load: %w", err)
	}
	records := map[string]models.Record{}
	var sum string
	if ok {
		data, err := s.provider.Read(s.name)
		if err != nil {
			return fmt.Errorf("reminder: load: %w", err)
		}
		records, err = Decode(data)
		if err != nil {
			return &CorruptDataError{Name: s.name, Err: err}
		}
		sum = checksum.Sum(data)
	}

	s.mu.Lock()
	s.records = records
	s.sum = sum
	s.mu.Unlock()
	return nil
}

// Name returns the data file name the store persists to.
func (s *Store) Name() string {
	return s.name
}

// Checksum returns the SHA-256 of the bytes last read or written, or "" when
// the file has never existed.
func (s *Store) Checksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sum
}

// Save serializes the whole mapping and overwrites the file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := Encode(s.records)
	if err != nil {
		return fmt.Errorf("reminder: save: %w", err)
	}
	if err := s.provider.Write(s.name, data); err != nil {
		return fmt.Errorf("reminder: save: %w", err)
	}
	s.sum = checksum.Sum(data)
	return nil
}

// Set inserts or overwrites the record at key and persists the store. The
// record must pass Validate. If persisting fails the in-memory change is kept
// so a later Save can retry it.
func (s *Store) Set(key string, rec models.Record) error {
	norm, err := Validate(Input{Date: key, Time: rec.Time, Recurrence: string(rec.Recurrence), Text: rec.Text})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = norm
	return s.saveLocked()
}

// Get returns the record at key.
func (s *Store) Get(key string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Delete removes key and persists the store. It reports false, without
// touching the file, when key is absent.
func (s *Store) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return false, nil
	}
	delete(s.records, key)
	return true, s.saveLocked()
}

// Len returns the number of stored reminders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ListSorted returns every entry in ascending key order.
func (s *Store) ListSorted() []models.Entry {
	s.mu.RLock()
	out := make([]models.Entry, 0, len(s.records))
	for k, rec := range s.records {
		out = append(out, models.Entry{Date: k, Record: rec})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[string]models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Decode parses a reminder document. Values may be structured records or
// legacy bare strings holding only the text. A null document, a null value or
// a record without text is rejected.
func Decode(data []byte) (map[string]models.Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("document is null")
	}
	out := make(map[string]models.Record, len(raw))
	for key, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("key %q: null value", key)
		}
		var rec models.Record
		var text string
		if err := json.Unmarshal(v, &text); err == nil {
			rec = models.Record{Text: text}
		} else if err := json.Unmarshal(v, &rec); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if strings.TrimSpace(rec.Text) == "" {
			return nil, fmt.Errorf("key %q: empty text", key)
		}
		if rec.Recurrence == "" {
			rec.Recurrence = models.RecurrenceNone
		}
		out[key] = rec
	}
	return out, nil
}

// Encode serializes records as a JSON object keyed by date. Keys come out
// sorted.
func Encode(records map[string]models.Record) ([]byte, error) {
	if records == nil {
		records = map[string]models.Record{}
	}
	return json.Marshal(records)
}

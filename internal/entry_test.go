package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/reminder"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Store.Path = filepath.Join(dir, "data", "reminders.json")
	cfg.SQLite.Path = filepath.Join(dir, "dagaz.db")
	cfg.Notify.Timezone = "UTC"
	return cfg
}

func TestOpen_CreatesDataDirAndSyncsIndex(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.Store.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"2024-01-02":{"recurrence":"None","text":"seeded","time":""}}`
	if err := os.WriteFile(cfg.Store.Path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if c.Store.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Store.Len())
	}
	got, err := c.Index.Search("seeded", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("index search = %v, %v", got, err)
	}
}

func TestOpen_WithoutIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLite.Path = ""

	c, err := Open(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Index != nil {
		t.Error("index opened with empty path")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Store.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(cfg, nil, nil)
	var corrupt *reminder.CorruptDataError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptDataError", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.HTTP.Port = 0

	var logs bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := Run(ctx, WithConfig(cfg), WithLogOutput(&logs)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(logs.String(), "Server stopped successfully") {
		t.Errorf("missing shutdown log:\n%s", logs.String())
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

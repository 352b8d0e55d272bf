package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "store:\n  path: " + filepath.Join(dir, "reminders.json") + "\n" +
		"sqlite:\n  path: \"\"\n" +
		"notify:\n  timezone: UTC\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"dagaz", "--config", cfgPath}, args...)
	err := newApp(&out).Run(context.Background(), argv)
	return out.String(), err
}

func TestCLISetViewListDelete(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "set", "--date", "2024-06-01", "--time", "09:30", "--recurrence", "weekly", "dentist", "appointment")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if out != "Reminder set for 2024-06-01\n" {
		t.Errorf("set output = %q", out)
	}

	out, err = runCLI(t, cfg, "view", "2024-06-01")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if out != "2024-06-01 09:30 (Weekly)\ndentist appointment\n" {
		t.Errorf("view output = %q", out)
	}

	out, err = runCLI(t, cfg, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "2024-06-01 09:30 (Weekly): dentist appointment...\n" {
		t.Errorf("list output = %q", out)
	}

	out, err = runCLI(t, cfg, "delete", "2024-06-01")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out != "Reminder deleted for 2024-06-01\n" {
		t.Errorf("delete output = %q", out)
	}

	out, _ = runCLI(t, cfg, "delete", "2024-06-01")
	if out != "No reminder to delete for 2024-06-01.\n" {
		t.Errorf("second delete output = %q", out)
	}

	out, _ = runCLI(t, cfg, "view", "2024-06-01")
	if out != "No reminder found for 2024-06-01.\n" {
		t.Errorf("view missing output = %q", out)
	}
}

func TestCLISetRejectsEmptyText(t *testing.T) {
	cfg := writeConfig(t)
	_, err := runCLI(t, cfg, "set", "--date", "2024-06-01")
	if err == nil || err.Error() != "Please enter a valid date and reminder." {
		t.Fatalf("err = %v", err)
	}
}

func TestCLIExport(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := runCLI(t, cfg, "set", "--date", "2024-06-01", "--recurrence", "Monthly", "rent"); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "out.ics")
	if _, err := runCLI(t, cfg, "export", "--out", dest); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{"BEGIN:VEVENT", "SUMMARY:rent", "RRULE:FREQ=MONTHLY"} {
		if !strings.Contains(s, want) {
			t.Errorf("export missing %q:\n%s", want, s)
		}
	}
}

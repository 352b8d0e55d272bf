package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dagaz/internal/reminderservice"
	"github.com/starford/dagaz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *reminderservice.Service) {
	t.Helper()
	_, store := testutil.TestStore(t)
	svc := reminderservice.NewService(store, testutil.TestDB(t), nil, nil)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "set_reminder":
		result, err = srv.setReminder(ctx, req)
	case "view_reminder":
		result, err = srv.viewReminder(ctx, req)
	case "delete_reminder":
		result, err = srv.deleteReminder(ctx, req)
	case "list_reminders":
		result, err = srv.listReminders(ctx, req)
	case "search_reminders":
		result, err = srv.searchReminders(ctx, req)
	case "get_reminder_contract":
		result, err = srv.getReminderContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSetAndViewReminder(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "set_reminder", map[string]any{
		"date":       "2024-02-20",
		"text":       "Dentist",
		"time":       "09:30",
		"recurrence": "Weekly",
	})
	if r.IsError {
		t.Fatalf("set failed: %s", resultText(r))
	}
	if text := resultText(r); text != "Reminder set for 2024-02-20" {
		t.Errorf("set result = %q", text)
	}

	r = callTool(t, srv, "view_reminder", map[string]any{"date": "2024-02-20"})
	text := resultText(r)
	for _, want := range []string{`"text": "Dentist"`, `"time": "09:30"`, `"recurrence": "Weekly"`} {
		if !strings.Contains(text, want) {
			t.Errorf("view result missing %s: %s", want, text)
		}
	}
}

func TestSetReminder_Invalid(t *testing.T) {
	srv, svc := testServer(t)
	r := callTool(t, srv, "set_reminder", map[string]any{"date": "2024-02-30", "text": "x"})
	if !r.IsError {
		t.Fatal("expected error for invalid date")
	}
	if !strings.HasPrefix(resultText(r), "invalid_date") {
		t.Errorf("error = %q", resultText(r))
	}
	if len(svc.List(context.Background())) != 0 {
		t.Error("invalid reminder stored")
	}
}

func TestSetReminder_MissingText(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "set_reminder", map[string]any{"date": "2024-02-20"})
	if !r.IsError {
		t.Error("expected error for missing text")
	}
}

func TestViewAndDeleteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "view_reminder", map[string]any{"date": "2024-01-01"})
	if r.IsError || resultText(r) != "No reminder found for 2024-01-01." {
		t.Errorf("view missing = %q", resultText(r))
	}
	r = callTool(t, srv, "delete_reminder", map[string]any{"date": "2024-01-01"})
	if r.IsError || resultText(r) != "No reminder to delete for 2024-01-01." {
		t.Errorf("delete missing = %q", resultText(r))
	}
}

func TestDeleteReminder(t *testing.T) {
	srv, svc := testServer(t)
	_ = callTool(t, srv, "set_reminder", map[string]any{"date": "2024-01-01", "text": "x"})
	r := callTool(t, srv, "delete_reminder", map[string]any{"date": "2024-01-01"})
	if resultText(r) != "deleted: 2024-01-01" {
		t.Errorf("delete = %q", resultText(r))
	}
	if len(svc.List(context.Background())) != 0 {
		t.Error("reminder not deleted")
	}
}

func TestListReminders(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_reminders", map[string]any{})
	if resultText(r) != "no reminders" {
		t.Errorf("empty list = %q", resultText(r))
	}

	_ = callTool(t, srv, "set_reminder", map[string]any{"date": "2024-03-01", "text": "b"})
	_ = callTool(t, srv, "set_reminder", map[string]any{"date": "2024-01-01", "text": "a", "time": "08:00", "recurrence": "Daily"})

	r = callTool(t, srv, "list_reminders", map[string]any{})
	want := "2024-01-01 08:00 (Daily): a...\n2024-03-01: b..."
	if resultText(r) != want {
		t.Errorf("list = %q, want %q", resultText(r), want)
	}
}

func TestSearchReminders(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "set_reminder", map[string]any{"date": "2024-03-01", "text": "uniqueword here"})
	r := callTool(t, srv, "search_reminders", map[string]any{"query": "uniqueword"})
	if !strings.Contains(resultText(r), "2024-03-01") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_reminder_contract", map[string]any{})
	if resultText(r) != ReminderFormatContract {
		t.Error("contract text mismatch")
	}
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz reminder tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/reminder"
	"github.com/starford/dagaz/internal/reminderservice"
)

const formatURI = "dagaz://reminder-format"

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp *server.MCPServer
	svc *reminderservice.Service
}

// New creates a new MCP server with all Dagaz tools registered.
func New(svc *reminderservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("set_reminder",
		mcp.WithDescription("Create or replace the reminder for a date. "+
			"Read the contract first via get_reminder_contract or the "+formatURI+" resource."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in YYYY-MM-DD format")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Reminder text")),
		mcp.WithString("time", mcp.Description("Optional time of day, HH:MM 24-hour")),
		mcp.WithString("recurrence", mcp.Description("None, Daily, Weekly or Monthly"),
			mcp.Enum("None", "Daily", "Weekly", "Monthly")),
	), s.setReminder)

	s.mcp.AddTool(mcp.NewTool("view_reminder",
		mcp.WithDescription("Read the reminder stored for a date."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in YYYY-MM-DD format")),
	), s.viewReminder)

	s.mcp.AddTool(mcp.NewTool("delete_reminder",
		mcp.WithDescription("Delete the reminder stored for a date."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in YYYY-MM-DD format")),
	), s.deleteReminder)

	s.mcp.AddTool(mcp.NewTool("list_reminders",
		mcp.WithDescription("List all reminders in date order."),
	), s.listReminders)

	s.mcp.AddTool(mcp.NewTool("search_reminders",
		mcp.WithDescription("Find reminders whose text contains the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	), s.searchReminders)

	s.mcp.AddTool(mcp.NewTool("get_reminder_contract",
		mcp.WithDescription("Returns the reminder field rules and file format."),
	), s.getReminderContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Reminder Format Contract",
			mcp.WithResourceDescription("Reminder fields, validation rules and file format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) setReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.svc.Set(ctx, reminder.Input{
		Date:       date,
		Text:       text,
		Time:       req.GetString("time", ""),
		Recurrence: req.GetString("recurrence", ""),
	})
	if err != nil {
		var verr *reminder.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", verr.Kind, verr.Message)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder set for %s", e.Date)), nil
}

func (s *Server) viewReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.View(ctx, date)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("No reminder found for %s.", date)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(e, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.svc.Delete(ctx, date)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("No reminder to delete for %s.", date)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", date)), nil
}

func (s *Server) listReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.svc.List(ctx)
	if len(items) == 0 {
		return mcp.NewToolResultText("no reminders"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getReminderContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReminderFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ReminderFormatContract,
		},
	}, nil
}

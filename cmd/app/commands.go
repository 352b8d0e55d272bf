package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/dagaz/internal"
	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/ical"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/reminder"
	pkgconfig "github.com/starford/dagaz/pkg/config"
)

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "dagaz",
		Usage:  "Date-keyed reminders with an HTTP, SSE and MCP shell",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream, watcher and scheduler",
				Action: serve,
			},
			{
				Name:      "set",
				Usage:     "Set the reminder for a date, replacing any existing one",
				ArgsUsage: "TEXT...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Date as YYYY-MM-DD"},
					&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "Optional time as HH:MM"},
					&cli.StringFlag{Name: "recurrence", Aliases: []string{"r"}, Usage: "None, Daily, Weekly or Monthly"},
				},
				Action: withComponents(out, setReminder),
			},
			{
				Name:      "view",
				Usage:     "Show the reminder for a date",
				ArgsUsage: "DATE",
				Action:    withComponents(out, viewReminder),
			},
			{
				Name:      "delete",
				Usage:     "Delete the reminder for a date",
				ArgsUsage: "DATE",
				Action:    withComponents(out, deleteReminder),
			},
			{
				Name:   "list",
				Usage:  "List upcoming reminders in date order",
				Action: withComponents(out, listReminders),
			},
			{
				Name:  "export",
				Usage: "Write all reminders as an iCalendar document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
				},
				Action: withComponents(out, exportCalendar),
			},
			{
				Name:  "mcp",
				Usage: "Serve reminder tools over MCP stdio",
				Action: withComponents(out, func(_ context.Context, _ *cli.Command, env *cmdEnv) error {
					return mcpserver.New(env.comps.Service).ServeStdio()
				}),
			},
		},
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

type cmdEnv struct {
	out   io.Writer
	cfg   *internal.Config
	comps *internal.Components
}

// withComponents opens the store for a one-shot command. Logs go to stderr so
// stdout stays clean for command output and the MCP stdio transport.
func withComponents(out io.Writer, fn func(context.Context, *cli.Command, *cmdEnv) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

		comps, err := internal.Open(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer comps.Close()

		return fn(ctx, cmd, &cmdEnv{out: out, cfg: cfg, comps: comps})
	}
}

func setReminder(ctx context.Context, cmd *cli.Command, env *cmdEnv) error {
	in := reminder.Input{
		Date:       cmd.String("date"),
		Time:       cmd.String("time"),
		Recurrence: cmd.String("recurrence"),
		Text:       strings.Join(cmd.Args().Slice(), " "),
	}
	e, err := env.comps.Service.Set(ctx, in)
	if err != nil {
		var verr *reminder.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		return err
	}
	_, err = fmt.Fprintf(env.out, "Reminder set for %s\n", e.Date)
	return err
}

func viewReminder(ctx context.Context, cmd *cli.Command, env *cmdEnv) error {
	date := cmd.Args().First()
	e, err := env.comps.Service.View(ctx, date)
	if errors.Is(err, apperr.ErrNotFound) {
		_, err = fmt.Fprintf(env.out, "No reminder found for %s.\n", date)
		return err
	}
	if err != nil {
		return err
	}

	header := e.Date
	if e.Time != "" {
		header += " " + e.Time
	}
	header += " (" + string(e.Recurrence) + ")"
	_, err = fmt.Fprintf(env.out, "%s\n%s\n", header, e.Text)
	return err
}

func deleteReminder(ctx context.Context, cmd *cli.Command, env *cmdEnv) error {
	date := cmd.Args().First()
	err := env.comps.Service.Delete(ctx, date)
	if errors.Is(err, apperr.ErrNotFound) {
		_, err = fmt.Fprintf(env.out, "No reminder to delete for %s.\n", date)
		return err
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.out, "Reminder deleted for %s\n", date)
	return err
}

func listReminders(ctx context.Context, _ *cli.Command, env *cmdEnv) error {
	for _, it := range env.comps.Service.List(ctx) {
		if _, err := fmt.Fprintln(env.out, it.String()); err != nil {
			return err
		}
	}
	return nil
}

func exportCalendar(ctx context.Context, cmd *cli.Command, env *cmdEnv) error {
	w := env.out
	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	entries := env.comps.Service.Entries(ctx)
	return ical.Write(w, entries, env.cfg.Notify.Location(), time.Now())
}

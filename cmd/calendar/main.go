package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/amzoeee/calendar/database"
	"github.com/amzoeee/calendar/ical"
	"github.com/amzoeee/calendar/state"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	slog.SetDefault(setupLogger(os.Getenv("LOG_LEVEL")))

	app := &cli.App{
		Name:  "calendar",
		Usage: "Manage the calendar event store.",
		Commands: []*cli.Command{
			initCommand(),
			importCommand(),
			exportCommand(),
			tagsCommand(),
			hoursCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// openStore connects to the configured database file and runs schema
// initialization, including the legacy schema migration and tag seeding.
func openStore() (*database.Database, error) {
	dbPath := os.Getenv("CALENDAR_DB")
	if dbPath == "" {
		dbPath = "calendar.db"
	}

	db, err := database.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	legacyTags := os.Getenv("CALENDAR_LEGACY_TAGS")
	if legacyTags == "" {
		legacyTags = "tags.json"
	}
	if err := db.Initialize(legacyTags); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create or migrate the database schema.",
		Action: func(c *cli.Context) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			slog.Info("Database schema ready")
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import events from an ICS file.",
		ArgsUsage: "<file.ics>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Tag to apply to every imported event."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one ICS file argument")
			}

			f, err := os.Open(c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to open ICS file: %w", err)
			}
			defer f.Close()

			records, err := ical.ParseEvents(f)
			if err != nil {
				return err
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := state.BulkAddEvents(db.GetDB(), records, c.String("tag"))
			if err != nil {
				return err
			}
			slog.Info("Imported events", "parsed", len(records), "inserted", count)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export events in a date range as ICS.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Required: true, Usage: "Range start date (YYYY-MM-DD, inclusive)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Range end date (YYYY-MM-DD, exclusive)."},
			&cli.StringFlag{Name: "out", Usage: "Output file. Defaults to stdout."},
		},
		Action: func(c *cli.Context) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			events, err := state.GetEventsOverlapping(db.GetDB(), c.String("start"), c.String("end"))
			if err != nil {
				return err
			}

			out := os.Stdout
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := ical.Encode(out, events); err != nil {
				return err
			}
			slog.Info("Exported events", "count", len(events))
			return nil
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags in display order.",
		Action: func(c *cli.Context) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			tags, err := state.ListTags(db.GetDB())
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Printf("%3d. %s (%s)\n", tag.OrderIndex, tag.Name, tag.Color)
			}
			return nil
		},
	}
}

func hoursCommand() *cli.Command {
	return &cli.Command{
		Name:  "hours",
		Usage: "Report per-day, per-tag cumulative hours over a date range.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Required: true, Usage: "Range start date (YYYY-MM-DD, inclusive)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Range end date (YYYY-MM-DD, exclusive)."},
		},
		Action: func(c *cli.Context) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := state.TagHoursForWeek(db.GetDB(), c.String("start"), c.String("end"))
			if err != nil {
				return err
			}

			days := make([]string, 0, len(report))
			for day := range report {
				days = append(days, day)
			}
			sort.Strings(days)

			for _, day := range days {
				fmt.Println(day)
				buckets := report[day]
				names := make([]string, 0, len(buckets))
				for name := range buckets {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  %-20s %6.2fh\n", name, buckets[name])
				}
			}
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

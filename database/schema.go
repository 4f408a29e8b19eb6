package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
)

const datetimeLayout = "2006-01-02 15:04:05"

const eventsSchema = `
CREATE TABLE events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_datetime TEXT NOT NULL,
	end_datetime TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	tag TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)
`

const eventsMigrationSchema = `
CREATE TABLE events_new (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_datetime TEXT NOT NULL,
	end_datetime TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	tag TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)
`

const tagsSchema = `
CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL,
	order_index INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)
`

const tableExistsSql = `
SELECT name FROM sqlite_master WHERE type='table' AND name=$1;
`

// defaultTag mirrors one row of the legacy JSON tag seed file.
type defaultTag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

var defaultTags = []defaultTag{
	{Name: "Work", Color: "#007bff", Order: 1},
	{Name: "Personal", Color: "#28a745", Order: 2},
	{Name: "Social", Color: "#ffc107", Order: 3},
	{Name: "Important", Color: "#dc3545", Order: 4},
}

// Initialize creates the events and tags tables if they do not exist yet.
// An events table still on the legacy date/time schema is migrated to the
// start/end-datetime schema in place. When the tags table is first
// created it is seeded from legacyTagsPath if that file exists, otherwise
// from the built-in defaults. Safe to call multiple times; must be called
// once per process before any store operation.
func (db *Database) Initialize(legacyTagsPath string) error {
	tx, err := db.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := tableExists(tx, "events")
	if err != nil {
		return err
	}
	if exists {
		legacy, err := hasLegacyEventSchema(tx)
		if err != nil {
			return err
		}
		if legacy {
			if err := migrateEventSchema(tx); err != nil {
				return fmt.Errorf("failed to migrate events schema: %w", err)
			}
		}
	} else {
		if _, err := tx.Exec(eventsSchema); err != nil {
			return fmt.Errorf("failed to create events table: %w", err)
		}
	}

	exists, err = tableExists(tx, "tags")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := tx.Exec(tagsSchema); err != nil {
			return fmt.Errorf("failed to create tags table: %w", err)
		}
		if err := seedTags(tx, legacyTagsPath); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func tableExists(tx *sqlx.Tx, name string) (bool, error) {
	var found string
	err := tx.Get(&found, tableExistsSql, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return true, nil
}

// hasLegacyEventSchema reports whether the events table still uses the
// old date/time columns rather than start_datetime/end_datetime.
func hasLegacyEventSchema(tx *sqlx.Tx) (bool, error) {
	type columnInfo struct {
		CID          int     `db:"cid"`
		Name         string  `db:"name"`
		Type         string  `db:"type"`
		NotNull      int     `db:"notnull"`
		DefaultValue *string `db:"dflt_value"`
		PK           int     `db:"pk"`
	}

	var columns []columnInfo
	if err := tx.Select(&columns, `PRAGMA table_info(events)`); err != nil {
		return false, fmt.Errorf("failed to inspect events table: %w", err)
	}

	hasDate := false
	hasStart := false
	for _, col := range columns {
		switch col.Name {
		case "date":
			hasDate = true
		case "start_datetime":
			hasStart = true
		}
	}
	return hasDate && !hasStart, nil
}

type legacyEvent struct {
	ID          int     `db:"id"`
	Date        string  `db:"date"`
	Time        *string `db:"time"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	CreatedAt   *string `db:"created_at"`
}

// migrateEventSchema rebuilds the events table on the start/end-datetime
// schema, preserving ids and created_at. Rows with a time value become
// one-hour events starting at date+time; all-day rows (no time) become
// 09:00-17:00.
func migrateEventSchema(tx *sqlx.Tx) error {
	if _, err := tx.Exec(eventsMigrationSchema); err != nil {
		return err
	}

	// created_at is read back as raw text so the original value is
	// reinserted byte for byte.
	var oldEvents []legacyEvent
	if err := tx.Select(&oldEvents, `SELECT id, date, time, title, description, CAST(created_at AS TEXT) AS created_at FROM events`); err != nil {
		return err
	}

	for _, old := range oldEvents {
		startStr, endStr, err := legacyEventInterval(old.Date, old.Time)
		if err != nil {
			return fmt.Errorf("event %d: %w", old.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO events_new (id, start_datetime, end_datetime, title, description, tag, created_at)
			VALUES ($1, $2, $3, $4, $5, NULL, $6)`,
			old.ID, startStr, endStr, old.Title, old.Description, old.CreatedAt)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DROP TABLE events`); err != nil {
		return err
	}
	if _, err := tx.Exec(`ALTER TABLE events_new RENAME TO events`); err != nil {
		return err
	}

	slog.Info("Migrated events table to start/end datetime schema", "rows", len(oldEvents))
	return nil
}

func legacyEventInterval(date string, timeVal *string) (string, string, error) {
	if timeVal == nil || *timeVal == "" {
		// All-day event: 9 AM to 5 PM
		return date + " 09:00:00", date + " 17:00:00", nil
	}

	startStr := fmt.Sprintf("%s %s:00", date, *timeVal)
	start, err := time.Parse(datetimeLayout, startStr)
	if err != nil {
		// Some rows already carry seconds in the time column
		startStr = fmt.Sprintf("%s %s", date, *timeVal)
		start, err = time.Parse(datetimeLayout, startStr)
		if err != nil {
			return "", "", fmt.Errorf("unparseable legacy date/time %q %q: %w", date, *timeVal, err)
		}
	}
	end := start.Add(time.Hour)
	return start.Format(datetimeLayout), end.Format(datetimeLayout), nil
}

// seedTags populates a freshly created tags table, preferring the legacy
// JSON seed file when one is present. A failure reading or applying the
// legacy file is not fatal; the built-in defaults are used instead.
func seedTags(tx *sqlx.Tx, legacyTagsPath string) error {
	if legacyTagsPath != "" {
		if _, err := os.Stat(legacyTagsPath); err == nil {
			err := seedTagsFromFile(tx, legacyTagsPath)
			if err == nil {
				return nil
			}
			slog.Warn("Failed to migrate legacy tags, falling back to defaults", "path", legacyTagsPath, "error", err)
			if _, err := tx.Exec(`DELETE FROM tags`); err != nil {
				return fmt.Errorf("failed to reset tags after seed error: %w", err)
			}
		}
	}

	for _, tag := range defaultTags {
		_, err := tx.Exec(`INSERT INTO tags (name, color, order_index) VALUES ($1, $2, $3)`,
			tag.Name, tag.Color, tag.Order)
		if err != nil {
			return fmt.Errorf("failed to insert default tag %s: %w", tag.Name, err)
		}
	}
	slog.Info("Created default tags", "count", len(defaultTags))
	return nil
}

func seedTagsFromFile(tx *sqlx.Tx, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var seed struct {
		Tags []defaultTag `json:"tags"`
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return err
	}
	if len(seed.Tags) == 0 {
		return fmt.Errorf("no tags defined in %s", path)
	}

	for _, tag := range seed.Tags {
		_, err := tx.Exec(`INSERT INTO tags (name, color, order_index) VALUES ($1, $2, $3)`,
			tag.Name, tag.Color, tag.Order)
		if err != nil {
			return err
		}
	}
	slog.Info("Migrated legacy tags file into database", "path", path, "count", len(seed.Tags))
	return nil
}

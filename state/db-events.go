package state

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	// DatetimeLayout is the naive local-time format used for the
	// start_datetime and end_datetime columns.
	DatetimeLayout = "2006-01-02 15:04:05"
	// DateLayout is the calendar-day format used by date-keyed queries.
	DateLayout = "2006-01-02"
)

type Event struct {
	ID            int        `db:"id"`
	StartDatetime string     `db:"start_datetime"`
	EndDatetime   string     `db:"end_datetime"`
	Title         string     `db:"title"`
	Description   *string    `db:"description"`
	Tag           *string    `db:"tag"`
	CreatedAt     *time.Time `db:"created_at"`
}

// EventRecord is one externally sourced event handed to BulkAddEvents.
// Datetimes use DatetimeLayout; a record missing either datetime is
// skipped by the importer.
type EventRecord struct {
	Title         string
	Description   string
	StartDatetime string
	EndDatetime   string
}

const insertEventSql = `
INSERT INTO events (start_datetime, end_datetime, title, description, tag)
VALUES ($1, $2, $3, $4, $5);
`

const updateEventSql = `
UPDATE events SET start_datetime = $1, end_datetime = $2, title = $3, description = $4, tag = $5
WHERE id = $6;
`

const eventsByDateSql = `
SELECT * FROM events
WHERE (start_datetime <= $1 AND end_datetime >= $2)
OR (DATE(start_datetime) = $3)
OR (DATE(end_datetime) = $3)
ORDER BY start_datetime;
`

// nullable maps an empty string to SQL NULL so that untagged events and
// empty descriptions are stored as NULL rather than "".
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AddEvent inserts a new event and returns its assigned id.
func AddEvent(db *sqlx.DB, startDatetime, endDatetime, title, description, tag string) (int, error) {
	res, err := db.Exec(insertEventSql,
		startDatetime, endDatetime, title, nullable(description), nullable(tag))
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// UpdateEvent overwrites every field of an event except id and
// created_at. Updating an id that does not exist is a silent no-op;
// callers that care about existence must check separately.
func UpdateEvent(db *sqlx.DB, id int, startDatetime, endDatetime, title, description, tag string) error {
	_, err := db.Exec(updateEventSql,
		startDatetime, endDatetime, title, nullable(description), nullable(tag), id)
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}
	return nil
}

// DeleteEvent removes an event by id. Deleting an id that does not exist
// is a silent no-op.
func DeleteEvent(db *sqlx.DB, id int) error {
	_, err := db.Exec(`DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}

// GetEventsByDate returns every event overlapping the given calendar day
// (DateLayout), ordered by start time. The three clauses together catch
// events spanning across the day as well as events starting or ending on
// it.
func GetEventsByDate(db *sqlx.DB, date string) ([]Event, error) {
	dayStart := date + " 00:00:00"
	dayEnd := date + " 23:59:59"

	var events []Event
	err := db.Select(&events, eventsByDateSql, dayEnd, dayStart, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", date, err)
	}
	return events, nil
}

// GetEventsOverlapping returns every event whose interval intersects
// [startDate, endDate) (DateLayout, end exclusive), ordered by start
// time. Uses the half-open overlap test.
func GetEventsOverlapping(db *sqlx.DB, startDate, endDate string) ([]Event, error) {
	var events []Event
	err := db.Select(&events,
		`SELECT * FROM events WHERE start_datetime < $1 AND end_datetime > $2 ORDER BY start_datetime`,
		endDate, startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in [%s, %s): %w", startDate, endDate, err)
	}
	return events, nil
}

// GetEventsByTag returns every event whose tag exactly matches name.
func GetEventsByTag(db *sqlx.DB, name string) ([]Event, error) {
	var events []Event
	err := db.Select(&events, `SELECT * FROM events WHERE tag = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for tag %s: %w", name, err)
	}
	return events, nil
}

// BulkAddEvents inserts a batch of externally sourced events in a single
// transaction, applying tag to every inserted row. Records missing
// either datetime are skipped without error; a missing title becomes a
// placeholder. Any insert failure rolls back the whole batch and is
// returned to the caller. Returns the number of rows inserted.
func BulkAddEvents(db *sqlx.DB, records []EventRecord, tag string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, record := range records {
		if record.StartDatetime == "" || record.EndDatetime == "" {
			continue
		}
		title := record.Title
		if title == "" {
			title = "(no title)"
		}
		_, err := tx.Exec(insertEventSql,
			record.StartDatetime, record.EndDatetime, title,
			nullable(record.Description), nullable(tag))
		if err != nil {
			return 0, fmt.Errorf("failed to insert imported event %q: %w", title, err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return imported, nil
}

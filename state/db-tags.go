package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

type Tag struct {
	ID         int        `db:"id"`
	Name       string     `db:"name"`
	Color      string     `db:"color"`
	OrderIndex int        `db:"order_index"`
	CreatedAt  *time.Time `db:"created_at"`
}

type DuplicateTagError struct {
	Name string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag '%s' already exists", e.Name)
}

type TagNotFoundError struct {
	ID int
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag with id %d not found", e.ID)
}

// DeleteTagResult reports the outcome of DeleteTag: whether the tag
// existed and how many events were detached from it.
type DeleteTagResult struct {
	Success    bool `json:"success"`
	EventCount int  `json:"event_count"`
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// ListTags returns all tags sorted by order_index ascending.
func ListTags(db *sqlx.DB) ([]Tag, error) {
	var tags []Tag
	err := db.Select(&tags, `SELECT * FROM tags ORDER BY order_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// AddTag inserts a new tag and returns its assigned id. When orderIndex
// is nil the tag is appended after the current highest order_index.
// Returns DuplicateTagError if the name is already taken.
func AddTag(db *sqlx.DB, name, color string, orderIndex *int) (int, error) {
	order := 0
	if orderIndex != nil {
		order = *orderIndex
	} else {
		var maxOrder sql.NullInt64
		if err := db.Get(&maxOrder, `SELECT MAX(order_index) FROM tags`); err != nil {
			return 0, fmt.Errorf("failed to determine tag order: %w", err)
		}
		order = int(maxOrder.Int64) + 1
	}

	res, err := db.Exec(`INSERT INTO tags (name, color, order_index) VALUES ($1, $2, $3)`,
		name, color, order)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &DuplicateTagError{Name: name}
		}
		return 0, fmt.Errorf("failed to insert tag %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// UpdateTag sets a tag's name and color. A rename cascades to every
// event carrying the old name, within the same transaction. Returns
// TagNotFoundError for an unknown id and DuplicateTagError when renaming
// to a name already used by a different tag.
func UpdateTag(db *sqlx.DB, id int, name, color string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldName string
	err = tx.Get(&oldName, `SELECT name FROM tags WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return &TagNotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to look up tag %d: %w", id, err)
	}

	_, err = tx.Exec(`UPDATE tags SET name = $1, color = $2 WHERE id = $3`, name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateTagError{Name: name}
		}
		return fmt.Errorf("failed to update tag %d: %w", id, err)
	}

	if oldName != name {
		_, err = tx.Exec(`UPDATE events SET tag = $1 WHERE tag = $2`, name, oldName)
		if err != nil {
			return fmt.Errorf("failed to rename tag on events: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteTag removes a tag by id, first detaching every event that
// references it by name (tag set to NULL). Detach and delete run in one
// transaction so a crash cannot leave events pointing at a missing tag.
// An unknown id reports Success=false without an error.
func DeleteTag(db *sqlx.DB, id int) (DeleteTagResult, error) {
	tx, err := db.Beginx()
	if err != nil {
		return DeleteTagResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.Get(&name, `SELECT name FROM tags WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return DeleteTagResult{Success: false}, nil
	}
	if err != nil {
		return DeleteTagResult{}, fmt.Errorf("failed to look up tag %d: %w", id, err)
	}

	var eventCount int
	err = tx.Get(&eventCount, `SELECT COUNT(*) FROM events WHERE tag = $1`, name)
	if err != nil {
		return DeleteTagResult{}, fmt.Errorf("failed to count events for tag %s: %w", name, err)
	}

	if eventCount > 0 {
		_, err = tx.Exec(`UPDATE events SET tag = NULL WHERE tag = $1`, name)
		if err != nil {
			return DeleteTagResult{}, fmt.Errorf("failed to detach events from tag %s: %w", name, err)
		}
	}

	_, err = tx.Exec(`DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return DeleteTagResult{}, fmt.Errorf("failed to delete tag %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return DeleteTagResult{}, err
	}
	return DeleteTagResult{Success: true, EventCount: eventCount}, nil
}

// ReorderTags assigns order_index = position+1 for each id in the given
// order. Unknown ids are silently skipped; the caller is responsible for
// passing a complete set. Applying the same order twice is idempotent.
func ReorderTags(db *sqlx.DB, orderedIDs []int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for index, id := range orderedIDs {
		_, err := tx.Exec(`UPDATE tags SET order_index = $1 WHERE id = $2`, index+1, id)
		if err != nil {
			return fmt.Errorf("failed to reorder tag %d: %w", id, err)
		}
	}

	return tx.Commit()
}

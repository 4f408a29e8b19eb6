package state

import (
	"errors"
	"testing"
)

// Initialize seeds Work/Personal/Social/Important with order 1-4; the
// tag tests build on that baseline.

func TestListTagsOrderedByIndex(t *testing.T) {
	db := setupTestDB(t)

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	if len(tags) != 4 {
		t.Fatalf("Expected 4 seeded tags, got %d", len(tags))
	}
	expected := []string{"Work", "Personal", "Social", "Important"}
	for i, name := range expected {
		if tags[i].Name != name {
			t.Errorf("Expected tag %d to be %q, got %q", i, name, tags[i].Name)
		}
		if tags[i].OrderIndex != i+1 {
			t.Errorf("Expected %q at order %d, got %d", name, i+1, tags[i].OrderIndex)
		}
	}
}

func TestAddTagAppendsOrder(t *testing.T) {
	db := setupTestDB(t)

	id, err := AddTag(db, "Errands", "#123456", nil)
	if err != nil {
		t.Fatalf("AddTag returned error: %v", err)
	}
	if id == 0 {
		t.Error("Expected a nonzero tag id")
	}

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	last := tags[len(tags)-1]
	if last.Name != "Errands" || last.OrderIndex != 5 {
		t.Errorf("Expected Errands appended at order 5, got %q at %d", last.Name, last.OrderIndex)
	}
}

func TestAddTagExplicitOrder(t *testing.T) {
	db := setupTestDB(t)

	order := 2
	if _, err := AddTag(db, "Errands", "#123456", &order); err != nil {
		t.Fatalf("AddTag returned error: %v", err)
	}

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	// Duplicate order_index values are tolerated; the new tag sorts with
	// the existing order-2 tag.
	found := false
	for _, tag := range tags {
		if tag.Name == "Errands" && tag.OrderIndex == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected Errands at order 2, got %+v", tags)
	}
}

func TestAddTagDuplicateName(t *testing.T) {
	db := setupTestDB(t)

	_, err := AddTag(db, "Work", "#000000", nil)
	var dup *DuplicateTagError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateTagError, got %v", err)
	}
	if dup.Name != "Work" {
		t.Errorf("Expected duplicate name Work, got %q", dup.Name)
	}

	// Prior state is unchanged
	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	if len(tags) != 4 {
		t.Errorf("Expected 4 tags after failed insert, got %d", len(tags))
	}
}

func TestUpdateTagRenameCascadesToEvents(t *testing.T) {
	db := setupTestDB(t)

	mustAddEvent(t, db, "2024-06-01 10:00:00", "2024-06-01 11:00:00", "Standup", "Work")
	mustAddEvent(t, db, "2024-06-01 12:00:00", "2024-06-01 13:00:00", "Lunch", "Personal")

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	workID := 0
	for _, tag := range tags {
		if tag.Name == "Work" {
			workID = tag.ID
		}
	}

	if err := UpdateTag(db, workID, "Office", "#ff0000"); err != nil {
		t.Fatalf("UpdateTag returned error: %v", err)
	}

	events, err := GetEventsByTag(db, "Office")
	if err != nil {
		t.Fatalf("GetEventsByTag returned error: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Standup" {
		t.Errorf("Expected Standup to follow the rename, got %v", eventTitles(events))
	}

	stale, err := GetEventsByTag(db, "Work")
	if err != nil {
		t.Fatalf("GetEventsByTag returned error: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Expected no events left on old name, got %v", eventTitles(stale))
	}

	// Unrelated tags are untouched
	other, err := GetEventsByTag(db, "Personal")
	if err != nil {
		t.Fatalf("GetEventsByTag returned error: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("Expected Personal event untouched, got %v", eventTitles(other))
	}
}

func TestUpdateTagNotFound(t *testing.T) {
	db := setupTestDB(t)

	err := UpdateTag(db, 9999, "Ghost", "#ffffff")
	var notFound *TagNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected TagNotFoundError, got %v", err)
	}
	if notFound.ID != 9999 {
		t.Errorf("Expected id 9999 in error, got %d", notFound.ID)
	}
}

func TestUpdateTagDuplicateName(t *testing.T) {
	db := setupTestDB(t)

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}

	err = UpdateTag(db, tags[0].ID, tags[1].Name, "#ffffff")
	var dup *DuplicateTagError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateTagError, got %v", err)
	}

	// The failed rename left both tags as they were
	after, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	if after[0].Name != tags[0].Name {
		t.Errorf("Expected %q unchanged, got %q", tags[0].Name, after[0].Name)
	}
}

func TestDeleteTagDetachesEvents(t *testing.T) {
	db := setupTestDB(t)

	mustAddEvent(t, db, "2024-06-01 10:00:00", "2024-06-01 11:00:00", "Standup", "Work")
	mustAddEvent(t, db, "2024-06-02 10:00:00", "2024-06-02 11:00:00", "Review", "Work")
	mustAddEvent(t, db, "2024-06-01 12:00:00", "2024-06-01 13:00:00", "Lunch", "Personal")

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	workID := 0
	for _, tag := range tags {
		if tag.Name == "Work" {
			workID = tag.ID
		}
	}

	result, err := DeleteTag(db, workID)
	if err != nil {
		t.Fatalf("DeleteTag returned error: %v", err)
	}
	if !result.Success || result.EventCount != 2 {
		t.Errorf("Expected {true, 2}, got %+v", result)
	}

	// Detached events carry a NULL tag
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM events WHERE tag IS NULL`); err != nil {
		t.Fatalf("Failed to count detached events: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 detached events, got %d", count)
	}

	after, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}
	for _, tag := range after {
		if tag.Name == "Work" {
			t.Error("Expected Work to be removed from listings")
		}
	}
}

func TestDeleteTagUnknownID(t *testing.T) {
	db := setupTestDB(t)

	result, err := DeleteTag(db, 9999)
	if err != nil {
		t.Fatalf("DeleteTag returned error: %v", err)
	}
	if result.Success || result.EventCount != 0 {
		t.Errorf("Expected {false, 0}, got %+v", result)
	}
}

func TestReorderTags(t *testing.T) {
	db := setupTestDB(t)

	tags, err := ListTags(db)
	if err != nil {
		t.Fatalf("ListTags returned error: %v", err)
	}

	// Reverse the seeded order, including an unknown id which must be
	// silently skipped
	reversed := []int{tags[3].ID, tags[2].ID, 9999, tags[1].ID, tags[0].ID}
	if err := ReorderTags(db, reversed); err != nil {
		t.Fatalf("ReorderTags returned error: %v", err)
	}

	check := func() {
		t.Helper()
		after, err := ListTags(db)
		if err != nil {
			t.Fatalf("ListTags returned error: %v", err)
		}
		expected := []string{"Important", "Social", "Personal", "Work"}
		for i, name := range expected {
			if after[i].Name != name {
				t.Errorf("Expected %q at position %d, got %q", name, i, after[i].Name)
			}
		}
	}
	check()

	// Idempotent: applying the same order again changes nothing
	if err := ReorderTags(db, reversed); err != nil {
		t.Fatalf("Second ReorderTags returned error: %v", err)
	}
	check()
}

package state

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UntaggedBucket is the aggregation key used for events with no tag.
const UntaggedBucket = "Untagged"

const weekEventsSql = `
SELECT id, start_datetime, end_datetime, tag
FROM events
WHERE start_datetime < $1 AND end_datetime > $2
ORDER BY start_datetime;
`

type weekEvent struct {
	ID            int     `db:"id"`
	StartDatetime string  `db:"start_datetime"`
	EndDatetime   string  `db:"end_datetime"`
	Tag           *string `db:"tag"`
}

// TagHoursForWeek computes cumulative hours per tag for each calendar day
// in [startDate, endDate), both in DateLayout. Multi-day events are
// clipped to day boundaries; overlapping events are each counted in
// full, so a single day's total may exceed 24 hours. Hour values are raw
// wall-clock differences, not rounded.
func TagHoursForWeek(db *sqlx.DB, startDate, endDate string) (map[string]map[string]float64, error) {
	rangeStart, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	rangeEnd, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	// Half-open overlap against the whole range; the TEXT datetime
	// columns compare correctly against bare dates lexicographically.
	var events []weekEvent
	if err := db.Select(&events, weekEventsSql, endDate, startDate); err != nil {
		return nil, fmt.Errorf("failed to query events for week: %w", err)
	}

	result := make(map[string]map[string]float64)
	for day := rangeStart; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		result[day.Format(DateLayout)] = make(map[string]float64)
	}

	for _, event := range events {
		start, err := time.Parse(DatetimeLayout, event.StartDatetime)
		if err != nil {
			return nil, fmt.Errorf("event %d has invalid start %q: %w", event.ID, event.StartDatetime, err)
		}
		end, err := time.Parse(DatetimeLayout, event.EndDatetime)
		if err != nil {
			return nil, fmt.Errorf("event %d has invalid end %q: %w", event.ID, event.EndDatetime, err)
		}

		bucket := UntaggedBucket
		if event.Tag != nil && *event.Tag != "" {
			bucket = *event.Tag
		}

		for day := rangeStart; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
			dayStart := day
			dayEnd := day.Add(24*time.Hour - time.Microsecond)

			if start.After(dayEnd) || end.Before(dayStart) {
				continue
			}

			clippedStart := start
			if clippedStart.Before(dayStart) {
				clippedStart = dayStart
			}
			clippedEnd := end
			if clippedEnd.After(dayEnd) {
				clippedEnd = dayEnd
			}

			result[day.Format(DateLayout)][bucket] += clippedEnd.Sub(clippedStart).Hours()
		}
	}

	return result, nil
}

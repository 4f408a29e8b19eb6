package ical

// Package ical bridges between iCalendar data and the calendar store:
// decoding ICS streams into import records for state.BulkAddEvents and
// encoding stored events back out as a VCALENDAR.

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/amzoeee/calendar/state"
)

// ParseEvents decodes every VEVENT in an ICS stream into import records.
// SUMMARY maps to the title and DESCRIPTION to the description; DTSTART
// and DTEND are converted to naive local-time strings. Components
// missing DTSTART or DTEND yield records with empty datetime strings,
// which BulkAddEvents skips.
func ParseEvents(r io.Reader) ([]state.EventRecord, error) {
	var records []state.EventRecord

	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, event := range cal.Events() {
			records = append(records, state.EventRecord{
				Title:         propText(event.Props, ical.PropSummary),
				Description:   propText(event.Props, ical.PropDescription),
				StartDatetime: propDatetime(event.Props, ical.PropDateTimeStart),
				EndDatetime:   propDatetime(event.Props, ical.PropDateTimeEnd),
			})
		}
	}

	return records, nil
}

func propText(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return ""
	}
	return text
}

func propDatetime(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	t, err := prop.DateTime(time.Local)
	if err != nil {
		return ""
	}
	return t.Format(state.DatetimeLayout)
}

package ical

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/amzoeee/calendar/state"
)

// Encode writes stored events to w as a single VCALENDAR. Stored events
// carry no iCalendar UID, so a fresh one is generated per VEVENT.
func Encode(w io.Writer, events []state.Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//amzoeee calendar//EN")

	for _, event := range events {
		vevent, err := toICal(event)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, vevent)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toICal(event state.Event) (*ical.Component, error) {
	start, err := time.ParseInLocation(state.DatetimeLayout, event.StartDatetime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("event %d has invalid start %q: %w", event.ID, event.StartDatetime, err)
	}
	end, err := time.ParseInLocation(state.DatetimeLayout, event.EndDatetime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("event %d has invalid end %q: %w", event.ID, event.EndDatetime, err)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uuid.New().String())
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)

	if event.Description != nil && *event.Description != "" {
		ve.Props.SetText(ical.PropDescription, *event.Description)
	}
	if event.Tag != nil && *event.Tag != "" {
		ve.Props.SetText(ical.PropCategories, *event.Tag)
	}

	return ve, nil
}

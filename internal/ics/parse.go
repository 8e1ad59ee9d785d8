package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ParsedEvent is the read-back view of an exported VEVENT.
type ParsedEvent struct {
	UID string

	Summary     string
	Description string
	Location    string

	Start time.Time
	End   time.Time

	// Triggers holds each VALARM TRIGGER value in document order.
	Triggers []string
}

// ParsedCalendar is a whole document read back from ICS text.
type ParsedCalendar struct {
	Name      string
	ProductID string
	Events    []ParsedEvent
}

// ParseICS reads an ICS payload, typically one produced by
// GenerateCalendar. VEVENTs without a UID or DTSTART are rejected.
func ParseICS(body []byte) (ParsedCalendar, error) {
	var out ParsedCalendar
	if len(body) == 0 {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return out, err
	}

	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			out.Name = p.Value
		case string(ical.PropertyProductId):
			out.ProductID = p.Value
		}
	}

	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			return out, err
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	if ve.GetProperty(ical.ComponentPropertyDtStart) == nil {
		return out, errors.New("missing DTSTART in " + out.UID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else {
		out.End = start
	}

	for _, c := range ve.Components {
		alarm, ok := c.(*ical.VAlarm)
		if !ok {
			continue
		}
		if p := alarm.GetProperty(ical.ComponentPropertyTrigger); p != nil {
			out.Triggers = append(out.Triggers, strings.TrimSpace(p.Value))
		}
	}
	return out, nil
}

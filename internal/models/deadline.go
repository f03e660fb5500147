package models

import (
	"encoding/json"
	"time"
)

// deadlineLayouts are tried in order. Timestamps without a zone are UTC.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Deadline is a task deadline as sent by clients. Besides RFC 3339 it accepts
// the zone-less form produced by datetime-local inputs.
type Deadline time.Time

// ParseDeadline parses s with the accepted deadline layouts.
func ParseDeadline(s string) (Deadline, error) {
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return Deadline(t.UTC()), nil
		}
	}
	return Deadline{}, &ValidationError{Field: "deadline", Message: "deadline is invalid"}
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ValidationError{Field: "deadline", Message: "deadline is invalid"}
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d))
}

// Time returns the deadline as a time, nil for a nil deadline.
func (d *Deadline) Time() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}

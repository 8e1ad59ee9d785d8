package ics

import (
	"errors"
	"fmt"
)

// ErrNoExportableEvents is returned when none of the given exams has a
// start time. Callers surface it to the user.
var ErrNoExportableEvents = errors.New("no exportable events: select at least one exam with a known time")

// InvalidInputError reports a caller bug: a record or reminder that the
// exporter refuses to serialise.
type InvalidInputError struct {
	ExamID string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.ExamID == "" {
		return fmt.Sprintf("invalid export input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid export input: exam %q: %s", e.ExamID, e.Reason)
}

package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// UnknownCourse is shown when a record carries no course name at all.
const UnknownCourse = "未命名课程"

// Naive layouts written by the data-preparation script (Python isoformat()).
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Exam is a single row of the published exam schedule. Records are
// immutable once loaded; all optional text fields are empty when absent.
type Exam struct {
	ID         string `json:"id"`
	ClassCode  string `json:"class_name"`
	CourseName string `json:"course_name"`

	Location   string `json:"location,omitempty"`
	Teacher    string `json:"teacher,omitempty"`
	Campus     string `json:"campus,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
	Notes      string `json:"notes,omitempty"`
	RawTime    string `json:"raw_time,omitempty"`

	// StudentCount is nil when the source did not report a head count.
	StudentCount *int `json:"count,omitempty"`

	// StartTimestamp / EndTimestamp are ISO-8601 strings, either with an
	// offset or naive local time. Empty means "not published yet".
	StartTimestamp  string `json:"start_timestamp,omitempty"`
	EndTimestamp    string `json:"end_timestamp,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`

	School        string `json:"school,omitempty"`
	StudentSchool string `json:"student_school,omitempty"`
	Major         string `json:"major,omitempty"`
	Grade         string `json:"grade,omitempty"`
	Date          string `json:"date,omitempty"`
}

// UnmarshalJSON accepts both the current "course_name" key and the older
// "course" key, and tolerates null timestamps.
func (e *Exam) UnmarshalJSON(data []byte) error {
	type plain Exam
	aux := struct {
		*plain
		Course string `json:"course"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if strings.TrimSpace(e.CourseName) == "" {
		e.CourseName = strings.TrimSpace(aux.Course)
	}
	if e.CourseName == "" {
		e.CourseName = UnknownCourse
	}
	if e.StudentCount != nil && *e.StudentCount < 0 {
		e.StudentCount = nil
	}
	return nil
}

// HasStartTime reports whether the exam has a published start. Exams
// without one are "time-pending".
func (e Exam) HasStartTime() bool {
	return strings.TrimSpace(e.StartTimestamp) != ""
}

// Start parses StartTimestamp, reading naive values in loc.
func (e Exam) Start(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(e.StartTimestamp, loc)
}

// End parses EndTimestamp, reading naive values in loc.
func (e Exam) End(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(e.EndTimestamp, loc)
}

// ParseTimestamp parses an RFC 3339 timestamp, or a naive local one in loc
// (time.Local when loc is nil).
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp: " + v)
}

// Manifest describes the published data set. It is informational only.
type Manifest struct {
	GeneratedAt    string   `json:"generated_at"`
	FilesProcessed []string `json:"files_processed,omitempty"`
	TotalRecords   int      `json:"total_records,omitempty"`
	SourceURL      string   `json:"source_url,omitempty"`
	SourceTitle    string   `json:"source_title,omitempty"`
}

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestExamUnmarshal(t *testing.T) {
	raw := `[
		{"id":"a.xlsx-2","class_name":"B240402","course_name":"大学物理","start_timestamp":"2025-06-10T09:00:00","end_timestamp":null,"duration_minutes":120,"count":35},
		{"id":"a.xlsx-3","class_name":"B240401","course":"高等数学","start_timestamp":null},
		{"id":"a.xlsx-4","class_name":"B240401","count":-1}
	]`

	var exams []Exam
	if err := json.Unmarshal([]byte(raw), &exams); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(exams) != 3 {
		t.Fatalf("expected 3 exams, got %d", len(exams))
	}

	if exams[0].CourseName != "大学物理" || !exams[0].HasStartTime() || exams[0].EndTimestamp != "" {
		t.Errorf("unexpected first exam: %+v", exams[0])
	}
	if exams[0].StudentCount == nil || *exams[0].StudentCount != 35 {
		t.Errorf("expected count 35, got %v", exams[0].StudentCount)
	}
	if exams[1].CourseName != "高等数学" {
		t.Errorf("expected legacy course key to be used, got %q", exams[1].CourseName)
	}
	if exams[1].HasStartTime() {
		t.Errorf("null start_timestamp should be time-pending")
	}
	if exams[2].CourseName != UnknownCourse {
		t.Errorf("expected placeholder course name, got %q", exams[2].CourseName)
	}
	if exams[2].StudentCount != nil {
		t.Errorf("negative count should be dropped, got %d", *exams[2].StudentCount)
	}
}

func TestParseTimestamp(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)

	got, err := ParseTimestamp("2025-06-10T09:00:00Z", shanghai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("RFC3339 value parsed to %v", got)
	}

	got, err = ParseTimestamp("2025-06-10T09:00:00", shanghai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("naive value should be read in the given zone, got %v", got.UTC())
	}

	if _, err := ParseTimestamp("2025-06-10T09:00", shanghai); err != nil {
		t.Errorf("minute precision should parse: %v", err)
	}

	for _, bad := range []string{"", "  ", "tomorrow", "2025/06/10 09:00"} {
		if _, err := ParseTimestamp(bad, shanghai); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", bad)
		}
	}
}

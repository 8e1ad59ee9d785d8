package search

import (
	"net/url"
	"testing"

	"examsync/internal/model"
)

func TestSession_SelectAllOnNewDetailClass(t *testing.T) {
	s := NewSession(sampleExams())

	if got := s.SetQuery("b24"); got.Mode != ModeList {
		t.Fatalf("mode = %s, want LIST", got.Mode)
	}
	if s.SelectedCount() != 0 {
		t.Errorf("nothing should be selected in LIST mode")
	}

	got := s.PickClass("B240402")
	if got.Mode != ModeDetail {
		t.Fatalf("mode = %s, want DETAIL", got.Mode)
	}
	if s.SelectedCount() != 2 || !s.IsSelected("1") || !s.IsSelected("3") {
		t.Errorf("entering DETAIL should select every exam of the class")
	}

	if s.Toggle("1") {
		t.Errorf("toggle of a selected exam should deselect it")
	}
	if s.IsSelected("1") {
		t.Errorf("exam 1 should be deselected")
	}

	// Re-resolving the same class keeps the user's choices.
	s.SetQuery("B240402")
	if s.IsSelected("1") {
		t.Errorf("same-class resolution must not reset the selection")
	}

	// A different class resets.
	s.SetQuery("B240401")
	if s.SelectedCount() != 1 || !s.IsSelected("2") {
		t.Errorf("new DETAIL class should reset the selection, got %d selected", s.SelectedCount())
	}
}

func TestSession_ToggleIgnoresIdsOutsideResult(t *testing.T) {
	s := NewSession(sampleExams())
	s.PickClass("B240402")

	if s.Toggle("2") {
		t.Errorf("exam 2 belongs to another class and must not become selected")
	}
	if s.Toggle("missing") {
		t.Errorf("unknown id must not become selected")
	}
	if s.SelectedCount() != 2 || len(s.Selected()) != 2 {
		t.Errorf("SelectedCount = %d, len(Selected) = %d, want 2", s.SelectedCount(), len(s.Selected()))
	}

	s.SetQuery("B24")
	if s.SelectedCount() != len(s.Selected()) {
		t.Errorf("count and selection disagree after leaving DETAIL")
	}
}

func TestSession_UnpinOnEdit(t *testing.T) {
	s := NewSession(sampleExams())
	s.PickClass("B240402")
	if s.Pinned() != "B240402" {
		t.Fatalf("pin not set")
	}

	s.SetQuery("B240402")
	if s.Pinned() != "B240402" {
		t.Errorf("identical input should keep the pin")
	}

	got := s.SetQuery("B24")
	if s.Pinned() != "" {
		t.Errorf("editing the query should release the pin")
	}
	if got.Mode != ModeList {
		t.Errorf("after unpinning the substring search applies, mode = %s", got.Mode)
	}
}

func TestSession_ExportableSkipsTimePending(t *testing.T) {
	s := NewSession(sampleExams())
	s.SetQuery("B240402")

	if n := len(s.Selected()); n != 2 {
		t.Fatalf("expected 2 selected, got %d", n)
	}
	exp := s.Exportable()
	if len(exp) != 1 || exp[0].ID != "1" {
		t.Errorf("time-pending exam must be excluded from export, got %+v", exp)
	}

	s.Toggle("1")
	if len(s.Exportable()) != 0 {
		t.Errorf("nothing exportable once the only timed exam is deselected")
	}
}

func TestSession_ShareQuery(t *testing.T) {
	s := NewSession(sampleExams())
	s.SetQuery("B240401")
	if got := s.ShareQuery().Get("class"); got != "B240401" {
		t.Errorf("share class = %q", got)
	}
	if s.CalendarName() != "B240401" {
		t.Errorf("calendar name = %q", s.CalendarName())
	}

	// LIST leaves the previous share state alone.
	s.SetQuery("B24")
	if got := s.ShareQuery().Get("class"); got != "B240401" {
		t.Errorf("LIST should not touch the share state, got %q", got)
	}
	if s.CalendarName() != DefaultCalendarName {
		t.Errorf("calendar name outside DETAIL = %q", s.CalendarName())
	}

	s.SetQuery("")
	if len(s.ShareQuery()) != 0 {
		t.Errorf("EMPTY should clear the share state, got %v", s.ShareQuery())
	}
}

func TestRestore(t *testing.T) {
	s := Restore(sampleExams(), url.Values{"class": {"B240402"}})
	if s.Result().Mode != ModeDetail || s.Pinned() != "B240402" {
		t.Errorf("restore should pin the shared class, got %+v", s.Result())
	}
	if s.SelectedCount() != 2 {
		t.Errorf("restored session should select all, got %d", s.SelectedCount())
	}
}

func TestFilterIDs(t *testing.T) {
	got := FilterIDs(sampleExams(), []string{"5", "1", "missing"})
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "5" {
		t.Errorf("FilterIDs should keep input order, got %+v", got)
	}
}

func TestByClass(t *testing.T) {
	exams := append(sampleExams(), model.Exam{ID: "6", ClassCode: "A", StartTimestamp: "2025-06-13T09:00:00"})

	if got := ByClass(exams, "A"); len(got) != 1 || got[0].ID != "6" {
		t.Errorf("single-character class should match exactly, got %+v", got)
	}
	if got := ByClass(exams, "B240402"); len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("ByClass(B240402) = %+v", got)
	}
	if got := ByClass(exams, "b240402"); len(got) != 0 {
		t.Errorf("class match is case-sensitive, got %+v", got)
	}
	if got := ByClass(exams, ""); got != nil {
		t.Errorf("empty class must not match records without a class code")
	}
}

func TestWithout(t *testing.T) {
	got := Without(sampleExams(), []string{"2", "4", "missing"})
	if len(got) != 3 || got[0].ID != "1" || got[1].ID != "3" || got[2].ID != "5" {
		t.Errorf("Without = %+v", got)
	}
}

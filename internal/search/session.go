package search

import (
	"net/url"

	"examsync/internal/model"
)

// DefaultCalendarName is used when no single class is resolved.
const DefaultCalendarName = "Schedule"

// Session holds the caller-owned state around Resolve: the typed query,
// the pinned class, and the set of exam ids selected for export.
//
// Selection rule: entering ModeDetail for a class other than the one
// currently shown selects every exam of that class. Toggling never resets
// it. Leaving ModeDetail forgets the shown class.
type Session struct {
	exams []model.Exam

	query  string
	pinned string

	shown    string
	selected map[string]struct{}
	result   Result
	share    url.Values
}

func NewSession(exams []model.Exam) *Session {
	s := &Session{
		exams:    exams,
		selected: make(map[string]struct{}),
		share:    url.Values{},
	}
	s.resolve()
	return s
}

// Restore rebuilds a session from a share link such as "?class=B240402".
func Restore(exams []model.Exam, share url.Values) *Session {
	s := NewSession(exams)
	if class := share.Get("class"); class != "" {
		s.PickClass(class)
	}
	return s
}

// SetExams swaps the underlying collection (after a data reload) and
// re-resolves with the current query and pin.
func (s *Session) SetExams(exams []model.Exam) Result {
	s.exams = exams
	return s.resolve()
}

// SetQuery records typed input. An edit that differs from the pinned class
// releases the pin.
func (s *Session) SetQuery(q string) Result {
	s.query = q
	if s.pinned != "" && q != s.pinned {
		s.pinned = ""
	}
	return s.resolve()
}

// PickClass pins an explicitly chosen class, e.g. a click in the list view.
func (s *Session) PickClass(class string) Result {
	s.query = class
	s.pinned = class
	return s.resolve()
}

func (s *Session) Query() string  { return s.query }
func (s *Session) Pinned() string { return s.pinned }
func (s *Session) Result() Result { return s.result }

func (s *Session) resolve() Result {
	s.result = Resolve(s.query, s.exams, s.pinned)

	switch s.result.Mode {
	case ModeDetail:
		class := s.result.Class()
		if class != s.shown {
			s.shown = class
			s.selected = make(map[string]struct{}, len(s.result.Exams))
			for _, e := range s.result.Exams {
				s.selected[e.ID] = struct{}{}
			}
		}
		s.share = url.Values{"class": []string{class}}
	case ModeEmpty:
		s.shown = ""
		s.share = url.Values{}
	default:
		s.shown = ""
	}
	return s.result
}

// Toggle flips the selection of one exam and reports whether it is now
// selected. Ids outside the current result are ignored.
func (s *Session) Toggle(id string) bool {
	if !s.shows(id) {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

func (s *Session) shows(id string) bool {
	for _, e := range s.result.Exams {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectedCount counts selected exams of the current result.
func (s *Session) SelectedCount() int {
	n := 0
	for _, e := range s.result.Exams {
		if _, ok := s.selected[e.ID]; ok {
			n++
		}
	}
	return n
}

// Selected returns the selected exams of the current result, in display
// order.
func (s *Session) Selected() []model.Exam {
	out := make([]model.Exam, 0, len(s.selected))
	for _, e := range s.result.Exams {
		if _, ok := s.selected[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Exportable narrows Selected to exams with a published start time.
func (s *Session) Exportable() []model.Exam {
	return Exportable(s.Selected())
}

// ShareQuery mirrors the session into URL query values. It is updated
// on ModeDetail and cleared on ModeEmpty; other modes leave it as is.
func (s *Session) ShareQuery() url.Values {
	out := url.Values{}
	for k, v := range s.share {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// CalendarName names the exported calendar after the resolved class.
func (s *Session) CalendarName() string {
	if c := s.result.Class(); c != "" {
		return c
	}
	return DefaultCalendarName
}

// Exportable keeps only exams that have a start time, preserving order.
func Exportable(exams []model.Exam) []model.Exam {
	out := make([]model.Exam, 0, len(exams))
	for _, e := range exams {
		if e.HasStartTime() {
			out = append(out, e)
		}
	}
	return out
}

// FilterIDs keeps the exams whose id is in ids, preserving order.
func FilterIDs(exams []model.Exam, ids []string) []model.Exam {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.Exam, 0, len(ids))
	for _, e := range exams {
		if _, ok := want[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ByClass returns the exams whose class code equals class exactly, in
// collection order. Unlike Resolve it applies no minimum query length.
func ByClass(exams []model.Exam, class string) []model.Exam {
	if class == "" {
		return nil
	}
	var out []model.Exam
	for _, e := range exams {
		if e.ClassCode == class {
			out = append(out, e)
		}
	}
	return out
}

// Without drops the exams whose id is in ids, preserving order.
func Without(exams []model.Exam, ids []string) []model.Exam {
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]model.Exam, 0, len(exams))
	for _, e := range exams {
		if _, ok := skip[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

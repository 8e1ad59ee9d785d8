// Package search resolves a free-text class query against the loaded exam
// schedule and tracks the per-user selection built on top of it.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"examsync/internal/model"
)

// MinQueryLength guards against single-character queries matching most of
// the schedule.
const MinQueryLength = 2

// MaxClassDisplay caps how many class codes a list view renders. Resolve
// itself always returns the full set.
const MaxClassDisplay = 50

type Mode string

const (
	ModeEmpty    Mode = "EMPTY"
	ModeNotFound Mode = "NOT_FOUND"
	ModeList     Mode = "LIST"
	ModeDetail   Mode = "DETAIL"
)

// Result is recomputed on every query change.
type Result struct {
	Mode Mode `json:"mode"`
	// Classes is sorted ascending and free of duplicates.
	Classes []string `json:"classes"`
	// Exams is only populated in ModeDetail.
	Exams []model.Exam `json:"exams"`
}

// DisplayClasses returns at most max class codes for rendering and whether
// the list was cut short.
func (r Result) DisplayClasses(max int) ([]string, bool) {
	if max <= 0 || len(r.Classes) <= max {
		return r.Classes, false
	}
	return r.Classes[:max], true
}

// Class returns the resolved class code in ModeDetail, or "".
func (r Result) Class() string {
	if r.Mode != ModeDetail || len(r.Classes) == 0 {
		return ""
	}
	return r.Classes[0]
}

// Resolve maps a query onto one of the four result modes.
//
// A non-empty pinned class (set by an explicit pick from a list) bypasses
// substring search and is compared to class codes exactly, including
// case. Free-text matching is case-insensitive. Resolve is total: records
// with an empty class code simply never match.
func Resolve(query string, exams []model.Exam, pinned string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		return Result{Mode: ModeEmpty, Classes: []string{}, Exams: []model.Exam{}}
	}

	if pinned != "" {
		matched := make([]model.Exam, 0)
		for _, e := range exams {
			if e.ClassCode == pinned {
				matched = append(matched, e)
			}
		}
		return Result{Mode: ModeDetail, Classes: []string{pinned}, Exams: matched}
	}

	term := normalize(query)
	matched := make([]model.Exam, 0)
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, e := range exams {
		if e.ClassCode == "" {
			continue
		}
		if !strings.Contains(normalize(e.ClassCode), term) {
			continue
		}
		matched = append(matched, e)
		if _, ok := seen[e.ClassCode]; !ok {
			seen[e.ClassCode] = struct{}{}
			classes = append(classes, e.ClassCode)
		}
	}
	sort.Strings(classes)

	switch len(classes) {
	case 0:
		return Result{Mode: ModeNotFound, Classes: []string{}, Exams: []model.Exam{}}
	case 1:
		return Result{Mode: ModeDetail, Classes: classes, Exams: matched}
	default:
		return Result{Mode: ModeList, Classes: classes, Exams: []model.Exam{}}
	}
}

// normalize folds full-width input (common with Chinese IMEs), trims and
// upper-cases.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(s)))
}

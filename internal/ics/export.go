package ics

import (
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"examsync/internal/model"
)

const (
	DefaultProductID  = "-//examsync//NJUPT Exam Sync//ZH"
	DefaultUIDDomain  = "njupt-exam-sync"
	DefaultFilePrefix = "NJUPT_Exams_"

	// ContentType is the MIME type served with exported calendars.
	ContentType = "text/calendar; charset=utf-8"
)

// uidNamespace scopes the name-based UUIDs derived from exam ids.
var uidNamespace = uuid.MustParse("6f1c2a5e-4b0d-5c8e-9a51-3d7e2f0b8c44")

// ExportConfig controls calendar serialisation. Zero values fall back to
// the package defaults.
type ExportConfig struct {
	ProductID string
	UIDDomain string

	// Location is used to read naive (offset-less) exam timestamps.
	// If nil, time.Local is used.
	Location *time.Location

	// Now stamps DTSTAMP. If nil, time.Now is used.
	Now func() time.Time
}

func (c ExportConfig) normalized() ExportConfig {
	if c.ProductID == "" {
		c.ProductID = DefaultProductID
	}
	if c.UIDDomain == "" {
		c.UIDDomain = DefaultUIDDomain
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// EventUID derives the VEVENT UID for an exam. The same exam always maps
// to the same UID, so re-imports update instead of duplicating.
func EventUID(examID, domain string) string {
	if domain == "" {
		domain = DefaultUIDDomain
	}
	return uuid.NewSHA1(uidNamespace, []byte(examID)).String() + "@" + domain
}

// GenerateCalendar serialises exams into an iCalendar document.
//
// exams must already be narrowed to the user's selection and to records
// with a start time; events are written in input order. reminders are
// minutes-before-start offsets, one VALARM each.
//
// It returns ErrNoExportableEvents when no exam has a start time, and an
// *InvalidInputError when some exam lacks one, its start cannot be parsed,
// or a reminder offset is not positive.
func GenerateCalendar(exams []model.Exam, calendarName string, reminders []int, cfg ExportConfig) (string, error) {
	cal, err := buildCalendar(exams, calendarName, reminders, cfg)
	if err != nil {
		return "", err
	}
	return cal.Serialize(ical.WithNewLineWindows), nil
}

// WriteCalendar is GenerateCalendar streaming into w. Nothing is written
// when validation fails.
func WriteCalendar(w io.Writer, exams []model.Exam, calendarName string, reminders []int, cfg ExportConfig) error {
	cal, err := buildCalendar(exams, calendarName, reminders, cfg)
	if err != nil {
		return err
	}
	return cal.SerializeTo(w, ical.WithNewLineWindows)
}

type timedExam struct {
	exam  model.Exam
	start time.Time
	end   time.Time
}

func buildCalendar(exams []model.Exam, calendarName string, reminders []int, cfg ExportConfig) (*ical.Calendar, error) {
	cfg = cfg.normalized()

	timed, err := validate(exams, reminders, cfg.Location)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.SetProductId(cfg.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	if name := strings.TrimSpace(calendarName); name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := cfg.Now().UTC().Truncate(time.Second)
	for _, te := range timed {
		addEvent(cal, te, reminders, stamp, cfg.UIDDomain)
	}
	return cal, nil
}

func validate(exams []model.Exam, reminders []int, loc *time.Location) ([]timedExam, error) {
	anyTimed := false
	for _, e := range exams {
		if e.HasStartTime() {
			anyTimed = true
			break
		}
	}
	if !anyTimed {
		return nil, ErrNoExportableEvents
	}

	for _, m := range reminders {
		if m <= 0 {
			return nil, &InvalidInputError{Reason: "reminder offset must be positive, got " + strconv.Itoa(m)}
		}
	}

	out := make([]timedExam, 0, len(exams))
	for _, e := range exams {
		if !e.HasStartTime() {
			return nil, &InvalidInputError{ExamID: e.ID, Reason: "missing start timestamp"}
		}
		start, err := e.Start(loc)
		if err != nil {
			return nil, &InvalidInputError{ExamID: e.ID, Reason: err.Error()}
		}
		out = append(out, timedExam{exam: e, start: start, end: endInstant(e, start, loc)})
	}
	return out, nil
}

// endInstant prefers the explicit end, then start+duration, then a
// zero-length event. A degraded entry beats failing the whole export.
func endInstant(e model.Exam, start time.Time, loc *time.Location) time.Time {
	if end, err := e.End(loc); err == nil && !end.Before(start) {
		return end
	}
	if e.DurationMinutes > 0 {
		return start.Add(time.Duration(e.DurationMinutes) * time.Minute)
	}
	return start
}

func addEvent(cal *ical.Calendar, te timedExam, reminders []int, stamp time.Time, domain string) {
	e := te.exam

	ev := cal.AddEvent(EventUID(e.ID, domain))
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(te.start)
	ev.SetEndAt(te.end)

	summary := strings.TrimSpace(e.CourseName)
	if summary == "" {
		summary = model.UnknownCourse
	}
	ev.SetSummary(summary)

	if loc := strings.TrimSpace(e.Location); loc != "" {
		ev.SetLocation(loc)
	}
	if desc := description(e); desc != "" {
		ev.SetDescription(desc)
	}

	for _, m := range reminders {
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(triggerValue(m))
		alarm.SetProperty(ical.ComponentPropertyDescription, summary+" "+ReminderLabel(m))
	}
}

// description joins the optional detail fields, one per line, skipping
// the ones that are absent.
func description(e model.Exam) string {
	var parts []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("监考教师", e.Teacher)
	add("校区", e.Campus)
	add("课程代码", e.CourseCode)
	if e.StudentCount != nil && *e.StudentCount > 0 {
		add("考试人数", strconv.Itoa(*e.StudentCount))
	}
	add("备注", e.Notes)
	return strings.Join(parts, "\n")
}

// FileName builds a download file name for a calendar. Characters that
// are illegal in file names on common platforms are dropped.
func FileName(prefix, calendarName string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, calendarName)
	name = strings.Trim(name, " .")
	if name == "" {
		name = "Schedule"
	}
	return prefix + name + ".ics"
}

package ics

import (
	"fmt"
	"sort"
)

// DefaultReminders is the reminder set a fresh user starts with.
var DefaultReminders = []int{30, 60}

// ReminderOptions are the offsets offered by the reminder picker.
var ReminderOptions = []int{15, 30, 60, 1440}

// Reminders is a set of minutes-before-start offsets, always sorted
// ascending. Values are toggled rather than appended, so duplicates
// cannot occur.
type Reminders struct {
	minutes []int
}

// NewReminders builds a set from arbitrary input, dropping non-positive
// values and duplicates.
func NewReminders(minutes ...int) Reminders {
	var r Reminders
	for _, m := range minutes {
		if m > 0 && !r.Contains(m) {
			r.minutes = append(r.minutes, m)
		}
	}
	sort.Ints(r.minutes)
	return r
}

// Toggle adds m if absent, removes it otherwise.
func (r *Reminders) Toggle(m int) {
	if m <= 0 {
		return
	}
	for i, v := range r.minutes {
		if v == m {
			r.minutes = append(r.minutes[:i], r.minutes[i+1:]...)
			return
		}
	}
	r.minutes = append(r.minutes, m)
	sort.Ints(r.minutes)
}

func (r Reminders) Contains(m int) bool {
	for _, v := range r.minutes {
		if v == m {
			return true
		}
	}
	return false
}

// Minutes returns a copy of the offsets in ascending order.
func (r Reminders) Minutes() []int {
	return append([]int{}, r.minutes...)
}

func (r Reminders) Len() int { return len(r.minutes) }

// ReminderLabel renders an offset the way the reminder picker shows it.
func ReminderLabel(m int) string {
	switch {
	case m%1440 == 0:
		return fmt.Sprintf("%d天前", m/1440)
	case m%60 == 0:
		return fmt.Sprintf("%d小时前", m/60)
	default:
		return fmt.Sprintf("%d分钟前", m)
	}
}

// triggerValue formats a minutes-before offset as an RFC 5545 negative
// duration, using the largest exact unit.
func triggerValue(m int) string {
	switch {
	case m%1440 == 0:
		return fmt.Sprintf("-P%dD", m/1440)
	case m%60 == 0:
		return fmt.Sprintf("-PT%dH", m/60)
	default:
		return fmt.Sprintf("-PT%dM", m)
	}
}

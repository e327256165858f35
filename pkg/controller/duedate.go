package controller

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDueDate is returned for due date text no layout accepts.
var ErrInvalidDueDate = errors.New("unrecognized due date")

const dueDateFormat = "2006-01-02"

var dueDateLayouts = []string{
	dueDateFormat,
	"01/02/2006",
	"1/2/2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDueDate reads free text as a calendar day in now's location and returns midnight of
// that day. Besides the layouts above it knows "today" and "tomorrow".
func ParseDueDate(text string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(text)

	switch strings.ToLower(s) {
	case "today":
		return startOfDay(now), nil
	case "tomorrow":
		return startOfDay(now).AddDate(0, 0, 1), nil
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, text)
}

// FormatDueDate renders a due date in loc, or "" when there is none.
func FormatDueDate(due *time.Time, loc *time.Location) string {
	if due == nil {
		return ""
	}

	return due.In(loc).Format(dueDateFormat)
}

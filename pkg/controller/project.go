package controller

import (
	"sort"
	"strings"
	"time"
)

// Category narrows the visible tasks.
type Category int

// These constants are the available categories, in the order Next cycles through them.
const (
	CategoryAll Category = iota
	CategoryActive
	CategoryCompleted
	CategoryToday
	CategoryUpcoming
)

var categoryNames = [...]string{"All", "Active", "Completed", "Today", "Upcoming"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}

	return categoryNames[c]
}

// Next returns the category after c, wrapping around.
func (c Category) Next() Category {
	return (c + 1) % Category(len(categoryNames))
}

// Matches reports whether the task belongs in the category. Date categories compare
// calendar days in now's location and never match tasks without a due date.
func (c Category) Matches(task Task, now time.Time) bool {
	switch c {
	case CategoryActive:
		return !task.Done
	case CategoryCompleted:
		return task.Done
	case CategoryToday, CategoryUpcoming:
		if task.DueAt == nil {
			return false
		}

		due := startOfDay(task.DueAt.In(now.Location()))
		today := startOfDay(now)

		if c == CategoryToday {
			return due.Equal(today)
		}

		return due.After(today)
	}

	return true
}

// MatchesSearch reports whether the title contains search, ignoring case. An empty search
// matches everything.
func MatchesSearch(task Task, search string) bool {
	return strings.Contains(strings.ToLower(task.Title), strings.ToLower(search))
}

// Project returns the tasks matching search and then category, newest first. Tasks the
// store hasn't timestamped yet sort last. tasks is not modified.
func Project(tasks []Task, search string, category Category, now time.Time) []Task {
	visible := make([]Task, 0, len(tasks))

	for _, task := range tasks {
		if search != "" && !MatchesSearch(task, search) {
			continue
		}

		if !category.Matches(task, now) {
			continue
		}

		visible = append(visible, task)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})

	return visible
}

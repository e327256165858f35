package controller

import (
	"time"

	"github.com/matt-steen/todostream/pkg/db"
)

// These constants are the field names of a task document.
const (
	FieldTitle     = "title"
	FieldDone      = "done"
	FieldOwner     = "uid"
	FieldCreatedAt = "createdAt"
	FieldDueAt     = "dueAt"
)

// Task is one todo as last delivered by the store.
type Task struct {
	ID    string
	Title string
	Done  bool
	Owner string
	// CreatedAt is zero until the store has committed the record.
	CreatedAt time.Time
	DueAt     *time.Time
}

func taskFromDocument(doc db.Document) Task {
	task := Task{
		ID:    doc.ID,
		Title: doc.String(FieldTitle),
		Done:  doc.Bool(FieldDone),
		Owner: doc.String(FieldOwner),
	}

	if createdAt, ok := doc.Time(FieldCreatedAt); ok {
		task.CreatedAt = createdAt
	}

	if dueAt, ok := doc.Time(FieldDueAt); ok {
		task.DueAt = &dueAt
	}

	return task
}

// recreateFields returns the fields that create a copy of the task under a new id.
func (t Task) recreateFields() db.Fields {
	fields := db.Fields{
		FieldTitle:     t.Title,
		FieldDone:      t.Done,
		FieldOwner:     t.Owner,
		FieldCreatedAt: db.ServerTimestamp,
	}

	if t.DueAt != nil {
		fields[FieldDueAt] = *t.DueAt
	}

	return fields
}

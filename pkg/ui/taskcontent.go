package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/rivo/tview"
)

const (
	titleDueRatio = 4
	columnCount   = 3
)

// TaskContent implements tview.TableContent, which tview.Table uses to update data.
type TaskContent struct {
	tview.TableContentReadOnly
	tasks []controller.Task
	now   time.Time
}

// NewTaskContent returns an empty TaskContent.
func NewTaskContent() *TaskContent {
	return &TaskContent{now: time.Now()}
}

// SetTasks replaces the rows. now decides which due dates are highlighted.
func (t *TaskContent) SetTasks(tasks []controller.Task, now time.Time) {
	t.tasks = tasks
	t.now = now
}

// TaskAt returns the task shown in the given row.
func (t *TaskContent) TaskAt(row int) (controller.Task, bool) {
	// adjust for the header row
	if idx := row - 1; idx >= 0 && idx < len(t.tasks) {
		return t.tasks[idx], true
	}

	return controller.Task{}, false
}

// GetCell returns the cell at the given position or nil if no cell.
func (t *TaskContent) GetCell(row, col int) *tview.TableCell {
	if row == 0 {
		switch col {
		case 0:
			return tview.NewTableCell("done").SetTextColor(tcell.ColorYellow).SetSelectable(false)
		case 1:
			return tview.NewTableCell("title").SetExpansion(titleDueRatio).
				SetTextColor(tcell.ColorYellow).SetSelectable(false)
		case 2:
			return tview.NewTableCell("due").SetExpansion(1).
				SetTextColor(tcell.ColorYellow).SetSelectable(false)
		}

		return nil
	}

	task, ok := t.TaskAt(row)
	if !ok {
		return nil
	}

	switch col {
	case 0:
		marker := "[ ]"
		if task.Done {
			marker = "[x]"
		}

		return tview.NewTableCell(tview.Escape(marker)).SetReference(task.ID)
	case 1:
		cell := tview.NewTableCell(tview.Escape(task.Title)).SetExpansion(titleDueRatio).SetReference(task.ID)
		if task.Done {
			cell.SetTextColor(tcell.ColorGray)
		}

		return cell
	case 2:
		return tview.NewTableCell(controller.FormatDueDate(task.DueAt, t.now.Location())).
			SetExpansion(1).SetTextColor(t.dueColor(task))
	}

	return nil
}

func (t *TaskContent) dueColor(task controller.Task) tcell.Color {
	switch {
	case task.DueAt == nil || task.Done:
		return tcell.ColorWhite
	case controller.CategoryToday.Matches(task, t.now):
		return tcell.ColorOrange
	case controller.CategoryUpcoming.Matches(task, t.now):
		return tcell.ColorGreen
	}

	return tcell.ColorRed
}

// GetRowCount returns the number of rows in the table.
func (t *TaskContent) GetRowCount() int {
	return len(t.tasks) + 1
}

// GetColumnCount returns the number of columns in the table.
func (t *TaskContent) GetColumnCount() int {
	return columnCount
}

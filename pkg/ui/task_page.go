package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/rivo/tview"
)

const shortcutColumns = 3

func (s *Screen) getTaskGrid() *tview.Grid {
	s.header = tview.NewTextView().SetDynamicColors(true)
	s.shortcuts = getShortcutTable(s.events)

	s.initAddForm()
	s.initSearchField()
	s.initTable()

	s.statusLine = tview.NewTextView().SetDynamicColors(true)
	s.snackbar = tview.NewTextView().SetDynamicColors(true)

	grid := tview.NewGrid().SetRows(1, len(s.events)/shortcutColumns+1, 1, 1, 0, 1, 1).SetBorders(true)

	grid.AddItem(s.header, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.shortcuts, 1, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.addForm, 2, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.searchField, 3, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.table, 4, 0, 1, 1, 0, 0, true)
	grid.AddItem(s.statusLine, 5, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.snackbar, 6, 0, 1, 1, 0, 0, false)

	return grid
}

// getShortcutTable lists the keyboard shortcuts alphabetically by description, filling
// the columns top to bottom.
func getShortcutTable(events map[Key]KeyEvent) *tview.Table {
	table := tview.NewTable().SetBorders(false).SetSelectable(false, false)

	shortcuts := make([]string, 0, len(events))

	for key, event := range events {
		shortcuts = append(shortcuts, fmt.Sprintf("%s\x00[orange]<%s>[white] %s", event.Description, tview.Escape(key.String()), event.Description))
	}

	sort.Strings(shortcuts)

	rows := (len(shortcuts) + shortcutColumns - 1) / shortcutColumns

	for i, shortcut := range shortcuts {
		_, text, _ := strings.Cut(shortcut, "\x00")
		table.SetCell(i%rows, i/rows, tview.NewTableCell(text).SetExpansion(1))
	}

	return table
}

func (s *Screen) initTable() {
	s.content = NewTaskContent()

	s.table = tview.NewTable().SetBorders(false)
	s.table.SetContent(s.content)
	s.table.SetSelectable(true, false)
	s.table.SetFixed(1, 0)
	s.table.SetInputCapture(s.handleTableKeys)
}

func (s *Screen) focusTable() {
	s.app.SetFocus(s.table)
}

// headerText shows who is signed in and how the list is narrowed.
func headerText(state controller.State) string {
	name := ""
	if state.Identity != nil {
		name = state.Identity.Name()
	}

	text := fmt.Sprintf("[yellow]%s[white]  signed in as %s", state.Category, tview.Escape(name))

	if state.Search != "" {
		text += fmt.Sprintf("  matching \"%s\"", tview.Escape(state.Search))
	}

	return text
}

func statusText(state controller.State) string {
	switch {
	case state.Notice != "":
		return "[red]" + tview.Escape(state.Notice)
	case state.Loading:
		return "loading tasks..."
	case state.Total == 0:
		return "nothing to do"
	}

	return fmt.Sprintf("showing %d of %d tasks", len(state.Tasks), state.Total)
}

func snackbarText(state controller.State) string {
	if !state.UndoVisible {
		return ""
	}

	return fmt.Sprintf("deleted \"%s\"  [orange]<%s>[white] Undo", tview.Escape(state.UndoTitle), KeyU)
}

func (s *Screen) refreshTasks(state controller.State) {
	s.header.SetText(headerText(state))
	s.statusLine.SetText(statusText(state))
	s.snackbar.SetText(snackbarText(state))

	syncText(s.titleField, state.Input)
	syncText(s.dueField, state.DueInput)

	s.content.SetTasks(state.Tasks, s.clock.Now())

	// keep the selection on a task row as the list shrinks
	row, _ := s.table.GetSelection()
	if last := len(state.Tasks); row > last {
		s.table.Select(last, 0)
	} else if row == 0 && last > 0 {
		s.table.Select(1, 0)
	}
}

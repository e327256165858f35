package ui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/matt-steen/todostream/pkg/ui"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	t := time.Date(2026, 10, 19+offset, 0, 0, 0, 0, time.UTC)

	return &t
}

func TestTaskContentEmpty(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	content := ui.NewTaskContent()

	assert.Equal(1, content.GetRowCount())
	assert.Equal(3, content.GetColumnCount())
	assert.Equal("title", content.GetCell(0, 1).Text)
	assert.Nil(content.GetCell(1, 0))

	_, ok := content.TaskAt(1)
	assert.False(ok)
}

func TestTaskContentRows(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	content := ui.NewTaskContent()
	content.SetTasks([]controller.Task{
		{ID: "a", Title: "buy [eggs]", DueAt: day(0)},
		{ID: "b", Title: "file taxes", Done: true, DueAt: day(-1)},
		{ID: "c", Title: "plan trip", DueAt: day(2)},
		{ID: "d", Title: "call mom", DueAt: day(-1)},
	}, now)

	assert.Equal(5, content.GetRowCount())

	assert.Equal("buy [eggs[]", content.GetCell(1, 1).Text)
	assert.Equal("a", content.GetCell(1, 1).GetReference())
	assert.Equal("[ []", content.GetCell(1, 0).Text)
	assert.Equal("[x[]", content.GetCell(2, 0).Text)
	assert.Equal("2026-10-19", content.GetCell(1, 2).Text)
	assert.Nil(content.GetCell(1, 3))

	assert.Equal(tcell.ColorOrange, content.GetCell(1, 2).Color)
	assert.Equal(tcell.ColorWhite, content.GetCell(2, 2).Color)
	assert.Equal(tcell.ColorGreen, content.GetCell(3, 2).Color)
	assert.Equal(tcell.ColorRed, content.GetCell(4, 2).Color)

	task, ok := content.TaskAt(3)
	assert.True(ok)
	assert.Equal("c", task.ID)
}

func TestAsKey(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal(ui.KeyShiftA, ui.AsKey(tcell.NewEventKey(tcell.KeyRune, 'A', tcell.ModShift)))
	assert.Equal(ui.KeySpace, ui.AsKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(ui.Key{Code: tcell.KeyEscape}, ui.AsKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))

	assert.Equal("Space", ui.KeySpace.String())
	assert.Equal("/", ui.KeySlash.String())
	assert.True(strings.EqualFold("esc", ui.Key{Code: tcell.KeyEscape}.String()))
}

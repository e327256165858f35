package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

// KeyEvent defines an event associated with a keypress.
type KeyEvent struct {
	Description string
	Action      func(*tcell.EventKey) *tcell.EventKey
}

func (s *Screen) initEvents() {
	s.events = map[Key]KeyEvent{}

	s.initTaskEvents(s.events)
	s.initListEvents(s.events)
	s.initFocusEvents(s.events)
	s.initExitEvent(s.events)
}

func (s *Screen) getExitAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		log.Info().Msg("terminating application")

		s.app.Stop()

		return nil
	}
}

func (s *Screen) initExitEvent(events map[Key]KeyEvent) {
	events[KeyQ] = KeyEvent{
		Description: "Quit",
		Action:      s.getExitAction(),
	}

	events[KeyShiftS] = KeyEvent{
		Description: "Sign Out",
		Action: func(*tcell.EventKey) *tcell.EventKey {
			s.ctrl.SignOut(s.ctx)

			return nil
		},
	}
}

// getTaskAction runs action on the selected task, if there is one.
func (s *Screen) getTaskAction(action func(id string)) func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		row, _ := s.table.GetSelection()

		task, ok := s.content.TaskAt(row)
		if !ok {
			log.Debug().Int("row", row).Msg("no task selected")

			return nil
		}

		action(task.ID)

		return nil
	}
}

func (s *Screen) initTaskEvents(events map[Key]KeyEvent) {
	events[KeySpace] = KeyEvent{
		Description: "Toggle Done",
		Action: s.getTaskAction(func(id string) {
			s.ctrl.Toggle(s.ctx, id)
		}),
	}

	events[KeyE] = KeyEvent{
		Description: "Edit",
		Action:      s.getTaskAction(s.ctrl.BeginEdit),
	}

	events[KeyD] = KeyEvent{
		Description: "Delete",
		Action: s.getTaskAction(func(id string) {
			s.ctrl.Delete(s.ctx, id)
		}),
	}

	events[KeyU] = KeyEvent{
		Description: "Undo Delete",
		Action: func(*tcell.EventKey) *tcell.EventKey {
			s.ctrl.Undo(s.ctx)

			return nil
		},
	}
}

func (s *Screen) getMarkAllAction(done bool) func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		s.ctrl.MarkAll(s.ctx, done)

		return nil
	}
}

func (s *Screen) initListEvents(events map[Key]KeyEvent) {
	events[KeyShiftA] = KeyEvent{
		Description: "Mark All Done",
		Action:      s.getMarkAllAction(true),
	}

	events[KeyShiftN] = KeyEvent{
		Description: "Mark All Not Done",
		Action:      s.getMarkAllAction(false),
	}

	events[KeyF] = KeyEvent{
		Description: "Next Category",
		Action: func(*tcell.EventKey) *tcell.EventKey {
			s.ctrl.CycleCategory()

			return nil
		},
	}
}

func (s *Screen) initFocusEvents(events map[Key]KeyEvent) {
	events[KeySlash] = KeyEvent{
		Description: "Search",
		Action: func(*tcell.EventKey) *tcell.EventKey {
			s.app.SetFocus(s.searchField)

			return nil
		},
	}

	events[KeyA] = KeyEvent{
		Description: "Add Task",
		Action: func(*tcell.EventKey) *tcell.EventKey {
			s.addForm.SetFocus(0)
			s.app.SetFocus(s.addForm)

			return nil
		},
	}
}

// handleTableKeys dispatches shortcuts typed while the task table has focus.
func (s *Screen) handleTableKeys(evt *tcell.EventKey) *tcell.EventKey {
	if k, ok := s.events[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

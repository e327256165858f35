// Package ui draws the controller's state in the terminal and turns key presses and form
// input into controller actions.
package ui

import (
	"context"

	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	pageSignIn = "signin"
	pageTasks  = "tasks"
	pageEdit   = "edit"
)

// Screen is the terminal view of a Controller.
type Screen struct {
	ctx   context.Context
	ctrl  *controller.Controller
	clock controller.Clock
	app   *tview.Application
	pages *tview.Pages
	page  string

	events map[Key]KeyEvent

	signInForm    *tview.Form
	googleForm    *tview.Form
	emailField    *tview.InputField
	passwordField *tview.InputField
	tokenField    *tview.InputField
	authError     *tview.TextView

	header      *tview.TextView
	shortcuts   *tview.Table
	addForm     *tview.Form
	titleField  *tview.InputField
	dueField    *tview.InputField
	searchField *tview.InputField
	table       *tview.Table
	content     *TaskContent
	statusLine  *tview.TextView
	snackbar    *tview.TextView

	editForm       *tview.Form
	editHeader     *tview.TextView
	editTitleField *tview.InputField
	editDueField   *tview.InputField
}

// NewScreen builds every page. Controller actions triggered from the screen run with ctx.
func NewScreen(ctx context.Context, ctrl *controller.Controller, clock controller.Clock) *Screen {
	if clock == nil {
		clock = controller.RealClock{}
	}

	s := Screen{
		ctx:   ctx,
		ctrl:  ctrl,
		clock: clock,
		app:   tview.NewApplication(),
		pages: tview.NewPages(),
	}

	s.initEvents()

	s.pages.AddPage(pageSignIn, s.getSignInGrid(), true, false)
	s.pages.AddPage(pageTasks, s.getTaskGrid(), true, false)
	s.pages.AddPage(pageEdit, s.getEditGrid(), true, false)

	return &s
}

// Run shows the screen until the user quits or ctx is done.
func (s *Screen) Run() error {
	s.ctrl.SetOnChange(func() {
		// changes also happen on the event loop, which must not wait on its own queue
		go s.app.QueueUpdateDraw(s.refresh)
	})
	defer s.ctrl.SetOnChange(nil)

	go func() {
		<-s.ctx.Done()
		s.app.Stop()
	}()

	s.refresh()

	log.Info().Msg("starting screen")

	return s.app.SetRoot(s.pages, true).Run()
}

// refresh redraws every page from the controller's state. It runs on the event loop.
func (s *Screen) refresh() {
	state := s.ctrl.State()

	s.authError.SetText("[red]" + tview.Escape(state.AuthError))
	syncText(s.emailField, state.Email)
	syncText(s.passwordField, state.Password)

	if state.Identity != nil {
		s.refreshTasks(state)
	}

	s.showPage(state)
}

func (s *Screen) showPage(state controller.State) {
	page := pageTasks

	switch {
	case state.Identity == nil:
		page = pageSignIn
	case state.Editing != nil:
		page = pageEdit
	}

	if page == s.page {
		return
	}

	log.Debug().Str("from", s.page).Str("to", page).Msg("switching page")

	s.page = page
	s.pages.SwitchToPage(page)

	switch page {
	case pageSignIn:
		s.signInForm.SetFocus(0)
		s.app.SetFocus(s.signInForm)
	case pageEdit:
		syncText(s.editTitleField, state.Editing.Title)
		syncText(s.editDueField, state.Editing.Due)
		s.setEditTitle(state.Editing.Title)
		s.editForm.SetFocus(0)
		s.app.SetFocus(s.editForm)
	default:
		s.focusTable()
	}
}

package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	emailMax    = 60
	passwordMax = 40
	tokenMax    = 60
	titleMax    = 50
	dueMax      = 20
)

func inputField(form *tview.Form, label string) *tview.InputField {
	field, ok := form.GetFormItemByLabel(label).(*tview.InputField)
	if !ok {
		log.Error().Msgf("no input field with label '%s'", label)
	}

	return field
}

func (s *Screen) getSignInGrid() *tview.Grid {
	s.signInForm = tview.NewForm().
		AddInputField("Email", "", emailMax, nil, s.ctrl.SetEmail).
		AddPasswordField("Password", "", passwordMax, '*', s.ctrl.SetPassword).
		AddButton("Sign In", func() { s.ctrl.SignIn(s.ctx) }).
		AddButton("Sign Up", func() { s.ctrl.SignUp(s.ctx) })

	s.googleForm = tview.NewForm().
		AddInputField("Google ID token", "", tokenMax, nil, nil).
		AddButton("Sign In with Google", func() {
			s.ctrl.SignInWithGoogle(s.ctx, s.tokenField.GetText())
			s.tokenField.SetText("")
		})

	s.emailField = inputField(s.signInForm, "Email")
	s.passwordField = inputField(s.signInForm, "Password")
	s.tokenField = inputField(s.googleForm, "Google ID token")

	s.authError = tview.NewTextView().SetDynamicColors(true)

	title := tview.NewTextView().SetDynamicColors(true).SetText("[yellow]todostream[white]\nsign in to see your tasks")

	grid := tview.NewGrid().SetRows(2, 0, 0, 1).SetBorders(true)
	grid.AddItem(title, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.signInForm, 1, 0, 1, 1, 0, 0, true)
	grid.AddItem(s.googleForm, 2, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.authError, 3, 0, 1, 1, 0, 0, false)

	s.signInForm.SetCancelFunc(func() { s.app.SetFocus(s.googleForm) })
	s.googleForm.SetCancelFunc(func() { s.app.SetFocus(s.signInForm) })

	return grid
}

func (s *Screen) initAddForm() {
	s.addForm = tview.NewForm().
		SetHorizontal(true).
		AddInputField("New task", "", titleMax, nil, s.ctrl.SetInput).
		AddInputField("Due", "", dueMax, nil, s.ctrl.SetDueInput).
		AddButton("Add", func() {
			s.ctrl.Add(s.ctx)
			s.addForm.SetFocus(0)
		})

	s.titleField = inputField(s.addForm, "New task")
	s.dueField = inputField(s.addForm, "Due")

	s.titleField.SetPlaceholder("what needs doing?")
	s.dueField.SetPlaceholder("today, 2026-01-31")

	s.addForm.SetCancelFunc(s.focusTable)
}

func (s *Screen) initSearchField() {
	s.searchField = tview.NewInputField().
		SetLabel("Search ").
		SetChangedFunc(s.ctrl.SetSearch).
		SetDoneFunc(func(tcell.Key) { s.focusTable() })
}

func (s *Screen) getEditGrid() *tview.Grid {
	s.editForm = tview.NewForm().
		AddInputField("Title", "", titleMax, nil, s.ctrl.SetEditTitle).
		AddInputField("Due", "", dueMax, nil, s.ctrl.SetEditDue).
		AddButton("Save", func() { s.ctrl.SaveEdit(s.ctx) }).
		AddButton("Cancel", s.ctrl.CancelEdit)

	s.editTitleField = inputField(s.editForm, "Title")
	s.editDueField = inputField(s.editForm, "Due")

	s.editForm.SetCancelFunc(s.ctrl.CancelEdit)

	s.editHeader = tview.NewTextView().SetDynamicColors(true)

	grid := tview.NewGrid().SetRows(1, 0).SetBorders(true)
	grid.AddItem(s.editHeader, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(s.editForm, 1, 0, 1, 1, 0, 0, true)

	return grid
}

func (s *Screen) setEditTitle(title string) {
	s.editHeader.SetText(fmt.Sprintf("[yellow]Edit Task[white] %s", tview.Escape(title)))
}

// syncText updates a field the controller has changed. Fields the user is typing in
// already match, so their cursor is left alone.
func syncText(field *tview.InputField, text string) {
	if field.GetText() != text {
		field.SetText(text)
	}
}

package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/matt-steen/todostream/pkg/db"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const googleErrorPrefix = "Google sign-in failed: "

// SetEmail sets the email input buffer.
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	c.email = email
	c.mu.Unlock()
}

// SetPassword sets the password input buffer.
func (c *Controller) SetPassword(password string) {
	c.mu.Lock()
	c.password = password
	c.mu.Unlock()
}

// SignIn signs in with the email and password buffers.
func (c *Controller) SignIn(ctx context.Context) {
	c.authenticate("", func(email, password string) error {
		return c.auth.SignIn(ctx, email, password)
	})
}

// SignUp creates an account from the email and password buffers.
func (c *Controller) SignUp(ctx context.Context) {
	c.authenticate("", func(email, password string) error {
		return c.auth.SignUp(ctx, email, password)
	})
}

// SignInWithGoogle exchanges a Google id token for a session.
func (c *Controller) SignInWithGoogle(ctx context.Context, idToken string) {
	c.authenticate(googleErrorPrefix, func(string, string) error {
		return c.auth.ExchangeOAuthCredential(ctx, idToken)
	})
}

// authenticate runs one sign-in attempt; a failure replaces the displayed error.
func (c *Controller) authenticate(prefix string, attempt func(email, password string) error) {
	c.mu.Lock()
	c.authErr = ""
	email, password := c.email, c.password
	c.mu.Unlock()
	c.changed()

	err := attempt(email, password)

	c.mu.Lock()
	if err != nil {
		c.authErr = prefix + err.Error()
	} else {
		c.password = ""
	}
	c.mu.Unlock()

	if err != nil {
		log.Info().Err(err).Msg("authentication failed")
	}

	c.changed()
}

// SignOut ends the session. The task list is cleared when the identity change arrives.
func (c *Controller) SignOut(ctx context.Context) {
	if err := c.auth.SignOut(ctx); err != nil {
		c.writeFailed("couldn't sign out", err)
	}
}

// SetInput sets the new task title buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.changed()
}

// SetDueInput sets the new task due date buffer.
func (c *Controller) SetDueInput(text string) {
	c.mu.Lock()
	c.dueInput = text
	c.mu.Unlock()
	c.changed()
}

// SetSearch sets the search text.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.search = text
	c.mu.Unlock()
	c.changed()
}

// SetCategory sets the category filter.
func (c *Controller) SetCategory(category Category) {
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()
	c.changed()
}

// CycleCategory moves the category filter to the next category.
func (c *Controller) CycleCategory() {
	c.mu.Lock()
	c.category = c.category.Next()
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) writeFailed(what string, err error) {
	log.Warn().Err(err).Msg(what)

	c.mu.Lock()
	c.notice = fmt.Sprintf("%s: %s", what, err)
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) create(ctx context.Context, fields db.Fields) {
	if _, err := c.store.Create(ctx, c.collection, fields); err != nil {
		c.writeFailed("couldn't add task", err)
	}
}

func (c *Controller) update(ctx context.Context, id string, fields db.Fields) {
	if err := c.store.UpdatePartial(ctx, c.collection, id, fields); err != nil {
		c.writeFailed("couldn't update task", err)
	}
}

// Add creates a task from the input buffers. Blank titles are ignored. The buffers are
// cleared as soon as the request is issued.
func (c *Controller) Add(ctx context.Context) {
	c.mu.Lock()

	title := strings.TrimSpace(c.input)
	if title == "" || c.identity == nil {
		c.mu.Unlock()

		return
	}

	fields := db.Fields{
		FieldTitle:     title,
		FieldDone:      false,
		FieldOwner:     c.identity.UID,
		FieldCreatedAt: db.ServerTimestamp,
	}

	if text := strings.TrimSpace(c.dueInput); text != "" {
		due, err := ParseDueDate(text, c.clock.Now())
		if err != nil {
			log.Debug().Err(err).Msg("ignoring due date")
		} else {
			fields[FieldDueAt] = due
		}
	}

	c.input = ""
	c.dueInput = ""
	c.notice = ""
	c.mu.Unlock()
	c.changed()

	c.create(ctx, fields)
}

// Toggle flips the done flag of a task.
func (c *Controller) Toggle(ctx context.Context, id string) {
	c.mu.Lock()
	task, ok := c.findLocked(id)
	c.notice = ""
	c.mu.Unlock()

	if !ok {
		return
	}

	c.update(ctx, id, db.Fields{FieldDone: !task.Done})
}

// BeginEdit copies a task's title and due date into the edit buffer.
func (c *Controller) BeginEdit(id string) {
	c.mu.Lock()

	task, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()

		return
	}

	c.edit = &EditBuffer{
		ID:    task.ID,
		Title: task.Title,
		Due:   FormatDueDate(task.DueAt, c.clock.Now().Location()),
	}
	c.mu.Unlock()
	c.changed()
}

// SetEditTitle changes the title in the edit buffer.
func (c *Controller) SetEditTitle(title string) {
	c.mu.Lock()
	if c.edit != nil {
		c.edit.Title = title
	}
	c.mu.Unlock()
}

// SetEditDue changes the due date text in the edit buffer.
func (c *Controller) SetEditDue(due string) {
	c.mu.Lock()
	if c.edit != nil {
		c.edit.Due = due
	}
	c.mu.Unlock()
}

// CancelEdit discards the edit buffer.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
	c.changed()
}

// SaveEdit writes the edit buffer back and leaves edit mode. A blank title keeps edit
// mode open without writing. An empty due date clears it; unreadable due text leaves the
// stored due date alone.
func (c *Controller) SaveEdit(ctx context.Context) {
	c.mu.Lock()

	if c.edit == nil {
		c.mu.Unlock()

		return
	}

	title := strings.TrimSpace(c.edit.Title)
	if title == "" {
		c.mu.Unlock()

		return
	}

	fields := db.Fields{FieldTitle: title}

	if text := strings.TrimSpace(c.edit.Due); text == "" {
		fields[FieldDueAt] = nil
	} else if due, err := ParseDueDate(text, c.clock.Now()); err == nil {
		fields[FieldDueAt] = due
	} else {
		log.Debug().Err(err).Msg("keeping previous due date")
	}

	id := c.edit.ID
	c.edit = nil
	c.notice = ""
	c.mu.Unlock()
	c.changed()

	c.update(ctx, id, fields)
}

// Delete removes a task right away and offers to undo it for the undo window. Only the
// most recent deletion can be undone.
func (c *Controller) Delete(ctx context.Context, id string) {
	c.mu.Lock()
	task, captured := c.findLocked(id)
	c.notice = ""
	c.mu.Unlock()

	if err := c.store.Remove(ctx, c.collection, id); err != nil {
		c.writeFailed("couldn't delete task", err)

		return
	}

	if !captured {
		return
	}

	c.mu.Lock()
	c.clearUndoLocked()
	c.undo = &task
	gen := c.undoGen
	c.undoTimer = c.clock.AfterFunc(c.undoWindow, func() { c.expireUndo(gen) })
	c.mu.Unlock()

	log.Debug().Str("id", id).Msg("deleted task; undo offered")
	c.changed()
}

// Undo re-creates the last deleted task under a new id, if the offer is still open.
func (c *Controller) Undo(ctx context.Context) {
	c.mu.Lock()

	if c.undo == nil {
		c.mu.Unlock()

		return
	}

	task := *c.undo
	c.clearUndoLocked()
	c.notice = ""
	c.mu.Unlock()
	c.changed()

	c.create(ctx, task.recreateFields())
}

// DismissUndo closes the undo offer.
func (c *Controller) DismissUndo() {
	c.mu.Lock()
	c.clearUndoLocked()
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) expireUndo(gen uint64) {
	c.mu.Lock()

	if gen != c.undoGen || c.undo == nil {
		c.mu.Unlock()

		return
	}

	c.undo = nil
	c.undoTimer = nil
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) clearUndoLocked() {
	if c.undoTimer != nil {
		c.undoTimer.Stop()
	}

	c.undo = nil
	c.undoTimer = nil
	c.undoGen++
}

// MarkAll sets every task's done flag to done, updating only the tasks that differ. The
// updates are sent concurrently.
func (c *Controller) MarkAll(ctx context.Context, done bool) {
	c.mu.Lock()

	var ids []string

	for _, task := range c.tasks {
		if task.Done != done {
			ids = append(ids, task.ID)
		}
	}

	c.notice = ""
	c.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	var g errgroup.Group

	for _, id := range ids {
		id := id

		g.Go(func() error {
			return c.store.UpdatePartial(ctx, c.collection, id, db.Fields{FieldDone: done})
		})
	}

	if err := g.Wait(); err != nil {
		c.writeFailed("couldn't update every task", err)
	}

	log.Debug().Int("updated", len(ids)).Bool("done", done).Msg("marked all tasks")
}

package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matt-steen/todostream/pkg/auth"
	"github.com/matt-steen/todostream/pkg/db"
	"github.com/rs/zerolog/log"
)

// These constants are the defaults used for zero Settings fields.
const (
	DefaultCollection = "todos"
	DefaultUndoWindow = 4 * time.Second
)

// Authenticator signs accounts in and out and reports identity changes.
type Authenticator interface {
	ObserveIdentity(fn func(*auth.Identity)) func()
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	ExchangeOAuthCredential(ctx context.Context, idToken string) error
}

// DocumentStore holds the task documents.
type DocumentStore interface {
	Subscribe(ctx context.Context, collection string, filter db.Filter, fn db.SnapshotFunc) (func(), error)
	Create(ctx context.Context, collection string, fields db.Fields) (string, error)
	UpdatePartial(ctx context.Context, collection, id string, fields db.Fields) error
	Remove(ctx context.Context, collection, id string) error
}

// Settings tunes a Controller.
type Settings struct {
	Collection string
	UndoWindow time.Duration
	Clock      Clock
}

// EditBuffer holds the fields of a task being edited in place.
type EditBuffer struct {
	ID    string
	Title string
	Due   string
}

// State is a copy of everything the screen shows.
type State struct {
	Identity  *auth.Identity
	Loading   bool
	AuthError string
	// Notice describes the last failed write or sync, until the next write.
	Notice string

	Email    string
	Password string
	Input    string
	DueInput string
	Search   string
	Category Category
	Editing  *EditBuffer

	UndoVisible bool
	UndoTitle   string

	// Tasks is the projection of the task list through search and category.
	Tasks []Task
	Total int
}

// Controller mediates between the auth and document store collaborators and the screen.
// The task list is only ever replaced by store snapshots; writes never touch it directly.
type Controller struct {
	auth       Authenticator
	store      DocumentStore
	clock      Clock
	collection string
	undoWindow time.Duration

	mu           sync.Mutex
	ctx          context.Context
	stopIdentity func()
	stopTasks    func()
	// subGen identifies the current task subscription; snapshots from older ones are dropped.
	subGen uint64

	identity *auth.Identity
	tasks    []Task
	loading  bool
	authErr  string
	notice   string

	email    string
	password string
	input    string
	dueInput string
	search   string
	category Category
	edit     *EditBuffer

	undo      *Task
	undoTimer Timer
	undoGen   uint64

	onChange func()
}

// NewController creates a Controller on top of the given collaborators.
func NewController(authenticator Authenticator, store DocumentStore, settings Settings) (*Controller, error) {
	if authenticator == nil || store == nil {
		return nil, errors.New("controller needs an authenticator and a document store")
	}

	c := Controller{
		auth:       authenticator,
		store:      store,
		clock:      settings.Clock,
		collection: settings.Collection,
		undoWindow: settings.UndoWindow,
		ctx:        context.Background(),
	}

	if c.clock == nil {
		c.clock = RealClock{}
	}

	if c.collection == "" {
		c.collection = DefaultCollection
	}

	if c.undoWindow <= 0 {
		c.undoWindow = DefaultUndoWindow
	}

	return &c, nil
}

// Start registers for identity changes. Task subscriptions live no longer than ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopIdentity != nil {
		c.mu.Unlock()

		return errors.New("controller already started")
	}

	c.ctx = ctx
	c.mu.Unlock()

	stop := c.auth.ObserveIdentity(c.handleIdentity)

	c.mu.Lock()
	c.stopIdentity = stop
	c.mu.Unlock()

	log.Info().Msg("controller started")

	return nil
}

// Close cancels the identity and task subscriptions and any pending undo.
func (c *Controller) Close() {
	c.mu.Lock()
	stopIdentity := c.stopIdentity
	stopTasks := c.stopTasks
	c.stopIdentity = nil
	c.stopTasks = nil
	c.subGen++
	c.clearUndoLocked()
	c.mu.Unlock()

	if stopIdentity != nil {
		stopIdentity()
	}

	if stopTasks != nil {
		stopTasks()
	}

	log.Info().Msg("controller closed")
}

// SetOnChange registers fn to be called after every state change. fn may run on any
// goroutine and must not block on the Controller.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// State returns a snapshot of the screen state with the visible tasks projected.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		Identity:  c.identity,
		Loading:   c.loading,
		AuthError: c.authErr,
		Notice:    c.notice,
		Email:     c.email,
		Password:  c.password,
		Input:     c.input,
		DueInput:  c.dueInput,
		Search:    c.search,
		Category:  c.category,
		Tasks:     Project(c.tasks, c.search, c.category, c.clock.Now()),
		Total:     len(c.tasks),
	}

	if c.edit != nil {
		edit := *c.edit
		state.Editing = &edit
	}

	if c.undo != nil {
		state.UndoVisible = true
		state.UndoTitle = c.undo.Title
	}

	return state
}

func (c *Controller) handleIdentity(identity *auth.Identity) {
	c.mu.Lock()

	if identity != nil && c.identity != nil && identity.UID == c.identity.UID {
		c.identity = identity
		c.mu.Unlock()
		c.changed()

		return
	}

	stop := c.stopTasks
	c.stopTasks = nil
	c.subGen++
	gen := c.subGen

	c.identity = identity
	c.tasks = nil
	c.edit = nil
	c.clearUndoLocked()
	c.loading = identity != nil
	ctx := c.ctx
	c.mu.Unlock()

	if stop != nil {
		stop()
	}

	c.changed()

	if identity == nil {
		log.Info().Msg("no identity; task list cleared")

		return
	}

	log.Info().Str("uid", identity.UID).Msg("identity changed; subscribing to tasks")

	filter := db.Filter{Field: FieldOwner, Op: db.OpEqual, Value: identity.UID}

	unsubscribe, err := c.store.Subscribe(ctx, c.collection, filter, func(docs []db.Document, err error) {
		c.handleSnapshot(gen, docs, err)
	})

	c.mu.Lock()

	if gen != c.subGen {
		c.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}

		return
	}

	if err != nil {
		c.loading = false
		c.notice = "couldn't load tasks: " + err.Error()
		c.mu.Unlock()

		log.Warn().Err(err).Str("uid", identity.UID).Msg("error subscribing to tasks")
		c.changed()

		return
	}

	c.stopTasks = unsubscribe
	c.mu.Unlock()
}

func (c *Controller) handleSnapshot(gen uint64, docs []db.Document, err error) {
	c.mu.Lock()

	if gen != c.subGen {
		c.mu.Unlock()

		return
	}

	c.loading = false

	if err != nil {
		c.notice = "couldn't sync tasks: " + err.Error()
		c.mu.Unlock()

		log.Warn().Err(err).Msg("error in task subscription")
		c.changed()

		return
	}

	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, taskFromDocument(doc))
	}

	c.tasks = tasks
	c.mu.Unlock()

	log.Debug().Int("tasks", len(tasks)).Msg("received task snapshot")
	c.changed()
}

func (c *Controller) findLocked(id string) (Task, bool) {
	for _, task := range c.tasks {
		if task.ID == id {
			return task, true
		}
	}

	return Task{}, false
}

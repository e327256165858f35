package controller_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matt-steen/todostream/pkg/auth"
	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/matt-steen/todostream/pkg/db"
)

// fakeAuth signs anyone in and notifies observers synchronously.
type fakeAuth struct {
	mu        sync.Mutex
	current   *auth.Identity
	observers map[int]func(*auth.Identity)
	next      int
	err       error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{observers: map[int]func(*auth.Identity){}}
}

func (a *fakeAuth) ObserveIdentity(fn func(*auth.Identity)) func() {
	a.mu.Lock()
	id := a.next
	a.next++
	a.observers[id] = fn
	current := a.current
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

func (a *fakeAuth) observerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.observers)
}

func (a *fakeAuth) setIdentity(identity *auth.Identity) {
	a.mu.Lock()
	a.current = identity
	observers := []func(*auth.Identity){}

	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.mu.Unlock()

	for _, fn := range observers {
		fn(identity)
	}
}

func (a *fakeAuth) signIn(email string) error {
	a.mu.Lock()
	err := a.err
	a.mu.Unlock()

	if err != nil {
		return err
	}

	a.setIdentity(&auth.Identity{UID: "uid-" + email, Email: email, Provider: auth.ProviderPassword})

	return nil
}

func (a *fakeAuth) SignIn(_ context.Context, email, _ string) error { return a.signIn(email) }

func (a *fakeAuth) SignUp(_ context.Context, email, _ string) error { return a.signIn(email) }

func (a *fakeAuth) SignOut(context.Context) error {
	a.setIdentity(nil)

	return nil
}

func (a *fakeAuth) ExchangeOAuthCredential(_ context.Context, idToken string) error {
	if idToken == "bad" {
		return auth.ErrInvalidIDToken
	}

	a.setIdentity(&auth.Identity{UID: "google-" + idToken, DisplayName: "Ada", Provider: auth.ProviderGoogle})

	return nil
}

type update struct {
	id     string
	fields db.Fields
}

type memSub struct {
	filter db.Filter
	fn     db.SnapshotFunc
}

// memStore keeps documents in memory and delivers snapshots synchronously after every
// write, or queues them until flush while hold is set.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]db.Fields
	nextID  int
	subs    map[int]*memSub
	nextSub int
	tick    time.Time

	creates []db.Fields
	updates []update
	removes []string
	err     error

	hold    bool
	pending []func()

	// deliverMu serializes deliveries so the last one always reflects the latest write.
	deliverMu sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		docs: map[string]db.Fields{},
		subs: map[int]*memSub{},
		tick: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
}

// encode stores values the way the sqlite store does, so documents decode the same way.
func (s *memStore) encode(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Format(db.TimeLayout)
	case nil:
		return nil
	}

	if v == db.ServerTimestamp {
		s.tick = s.tick.Add(time.Second)

		return s.tick.Format(db.TimeLayout)
	}

	return v
}

func (s *memStore) put(id string, fields db.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := db.Fields{}
	for k, v := range fields {
		stored[k] = s.encode(v)
	}

	s.docs[id] = stored
}

func (s *memStore) matching(filter db.Filter) []db.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := []db.Document{}

	for id, fields := range s.docs {
		if filter.Field != "" && fields[filter.Field] != filter.Value {
			continue
		}

		copied := db.Fields{}
		for k, v := range fields {
			copied[k] = v
		}

		docs = append(docs, db.Document{ID: id, Fields: copied})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return docs
}

func (s *memStore) deliver(sub *memSub) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	active := false

	for _, other := range s.subs {
		if other == sub {
			active = true
		}
	}
	s.mu.Unlock()

	if active {
		sub.fn(s.matching(sub.filter), nil)
	}
}

func (s *memStore) deliverAll() {
	s.mu.Lock()
	subs := []*memSub{}

	for _, sub := range s.subs {
		subs = append(subs, sub)
	}

	hold := s.hold
	if hold {
		for _, sub := range subs {
			sub := sub
			s.pending = append(s.pending, func() { s.deliver(sub) })
		}
	}
	s.mu.Unlock()

	if hold {
		return
	}

	for _, sub := range subs {
		s.deliver(sub)
	}
}

func (s *memStore) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.hold = false
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (s *memStore) activeSubs() []db.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters := []db.Filter{}
	for _, sub := range s.subs {
		filters = append(filters, sub.filter)
	}

	return filters
}

func (s *memStore) Subscribe(_ context.Context, _ string, filter db.Filter, fn db.SnapshotFunc) (func(), error) {
	sub := &memSub{filter: filter, fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	hold := s.hold

	if hold {
		s.pending = append(s.pending, func() { s.deliver(sub) })
	}
	s.mu.Unlock()

	if !hold {
		s.deliver(sub)
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *memStore) Create(_ context.Context, _ string, fields db.Fields) (string, error) {
	s.mu.Lock()

	if s.err != nil {
		s.mu.Unlock()

		return "", s.err
	}

	s.nextID++
	id := fmt.Sprintf("doc%03d", s.nextID)
	s.creates = append(s.creates, fields)
	s.mu.Unlock()

	s.put(id, fields)
	s.deliverAll()

	return id, nil
}

func (s *memStore) UpdatePartial(_ context.Context, _ string, id string, fields db.Fields) error {
	s.mu.Lock()

	if s.err != nil {
		s.mu.Unlock()

		return s.err
	}

	s.updates = append(s.updates, update{id: id, fields: fields})

	doc, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()

		return db.ErrNotFound
	}

	for k, v := range fields {
		if v == nil {
			delete(doc, k)
		} else {
			doc[k] = s.encode(v)
		}
	}
	s.mu.Unlock()

	s.deliverAll()

	return nil
}

func (s *memStore) Remove(_ context.Context, _ string, id string) error {
	s.mu.Lock()

	if s.err != nil {
		s.mu.Unlock()

		return s.err
	}

	s.removes = append(s.removes, id)
	delete(s.docs, id)
	s.mu.Unlock()

	s.deliverAll()

	return nil
}

func (s *memStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

var errOffline = errors.New("network unavailable")

// manualClock only moves when told to.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) controller.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)

	return timer
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	due := []*manualTimer{}

	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true

	return active
}

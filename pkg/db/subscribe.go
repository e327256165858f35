package db

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type listener struct {
	collection string
	filter     Filter
	fn         SnapshotFunc

	// dirty holds at most one pending refresh, so bursts of writes coalesce.
	dirty    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (l *listener) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *listener) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *listener) markDirty() {
	select {
	case l.dirty <- struct{}{}:
	default:
	}
}

// Subscribe delivers the documents of the collection matching the filter to fn, first
// right away and then after every committed write to the collection. Deliveries to one
// subscriber never overlap. The returned function cancels the subscription; no delivery
// starts after it returns. Cancelling ctx also cancels the subscription.
func (d *Database) Subscribe(
	ctx context.Context, collection string, filter Filter, fn SnapshotFunc,
) (func(), error) {
	if filter.Field != "" {
		if _, err := filter.sqlizer(); err != nil {
			return nil, err
		}
	}

	l := &listener{
		collection: collection,
		filter:     filter,
		fn:         fn,
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	l.markDirty()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return nil, ErrClosed
	}

	id := d.nextListener
	d.nextListener++
	d.listeners[id] = l
	d.mu.Unlock()

	log.Debug().Str("collection", collection).Uint64("listener", id).Msg("subscription opened")

	go d.watch(ctx, id, l)

	return func() { d.unsubscribe(id) }, nil
}

func (d *Database) unsubscribe(id uint64) {
	d.mu.Lock()
	l, ok := d.listeners[id]
	delete(d.listeners, id)
	d.mu.Unlock()

	if ok {
		l.stop()
		log.Debug().Str("collection", l.collection).Uint64("listener", id).Msg("subscription closed")
	}
}

func (d *Database) watch(ctx context.Context, id uint64, l *listener) {
	for {
		select {
		case <-ctx.Done():
			d.unsubscribe(id)

			return
		case <-l.done:
			return
		case <-l.dirty:
		}

		docs, err := d.Find(ctx, l.collection, l.filter)

		if ctx.Err() != nil {
			d.unsubscribe(id)

			return
		}

		if l.stopped() {
			return
		}

		if err != nil {
			log.Warn().Err(err).Str("collection", l.collection).Msg("error refreshing subscription")
		}

		l.fn(docs, err)
	}
}

func (d *Database) notify(collection string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, l := range d.listeners {
		if l.collection == collection {
			l.markDirty()
		}
	}
}

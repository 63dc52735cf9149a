package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrRegistryClosed = errors.New("cart registry closed")

// Registry hands out one Store per shopper, opening it from the persister
// on first use and closing it once idle.
type Registry struct {
	p           Persister
	log         logrus.FieldLogger
	loadTimeout time.Duration
	saveTimeout time.Duration
	now         func() time.Time

	group  singleflight.Group
	mu     sync.Mutex
	stores map[string]*entry
	closed bool
}

type entry struct {
	store    *Store
	refs     int
	lastUsed time.Time
	// closing is set while an idle store is being flushed. The entry stays in
	// the map until the flush ends so nobody reloads a stale slot.
	closing chan struct{}
}

func NewRegistry(p Persister, log logrus.FieldLogger, loadTimeout, saveTimeout time.Duration) *Registry {
	return &Registry{
		p:           p,
		log:         log,
		loadTimeout: loadTimeout,
		saveTimeout: saveTimeout,
		now:         time.Now,
		stores:      make(map[string]*entry),
	}
}

// Do runs fn against the shopper's store. The store is not evicted while fn
// runs.
func (r *Registry) Do(ctx context.Context, userID string, fn func(*Store)) error {
	e, err := r.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer r.release(e)

	fn(e.store)
	return nil
}

func (r *Registry) acquire(ctx context.Context, userID string) (*entry, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if e, ok := r.stores[userID]; ok {
			if e.closing == nil {
				e.refs++
				r.mu.Unlock()
				return e, nil
			}
			closing := e.closing
			r.mu.Unlock()

			select {
			case <-closing:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		r.mu.Unlock()

		ch := r.group.DoChan(userID, func() (any, error) {
			return nil, r.open(userID)
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	e.lastUsed = r.now()
}

func (r *Registry) open(userID string) error {
	r.mu.Lock()
	_, ok := r.stores[userID]
	r.mu.Unlock()
	if ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()

	log := r.log.WithField("user_id", userID)
	s, err := Open(ctx, r.p, userID,
		WithSaveTimeout(r.saveTimeout),
		WithErrorHandler(func(key string, err error) {
			log.WithField("message", err).Error("saving cart")
		}),
	)
	if err != nil {
		return fmt.Errorf("opening cart[%s]: %w", userID, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.Join(ErrRegistryClosed, s.Close(ctx))
	}
	r.stores[userID] = &entry{store: s, lastUsed: r.now()}
	r.mu.Unlock()

	log.Debug("cart opened")
	return nil
}

// Run closes stores idle for longer than idle, checking every interval,
// until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep(ctx, idle)
		}
	}
}

func (r *Registry) sweep(ctx context.Context, idle time.Duration) {
	now := r.now()

	r.mu.Lock()
	evicted := make(map[string]*entry)
	for id, e := range r.stores {
		if e.refs == 0 && e.closing == nil && now.Sub(e.lastUsed) > idle {
			e.closing = make(chan struct{})
			evicted[id] = e
		}
	}
	r.mu.Unlock()

	for id, e := range evicted {
		if err := e.store.Close(ctx); err != nil {
			r.log.WithField("message", err).Error("closing idle cart")
		}

		r.mu.Lock()
		if r.stores[id] == e {
			delete(r.stores, id)
		}
		r.mu.Unlock()
		close(e.closing)
	}
}

// Close flushes every open store. The registry refuses new work afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	stores := r.stores
	r.stores = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range stores {
		if e.closing != nil {
			select {
			case <-e.closing:
			case <-ctx.Done():
				errs = append(errs, ctx.Err())
			}
			continue
		}
		if err := e.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

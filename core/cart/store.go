package cart

import (
	"context"
	"sync"
	"time"
)

// Listener receives every snapshot produced by a store mutation. It runs
// while the store is locked and must not call back into the store.
type Listener func(Cart)

// Store owns one shopper's cart. Mutations are serialized, return the new
// snapshot and notify every listener with it, in order.
type Store struct {
	mu        sync.Mutex
	cart      Cart
	listeners map[int]Listener
	nextID    int
	saver     *saver
	closed    bool
}

// NewStore returns an active store holding initial, without persistence.
func NewStore(initial Cart) *Store {
	return &Store{
		cart:      initial,
		listeners: make(map[int]Listener),
	}
}

// Open loads the cart saved under key and returns an active store whose
// snapshots are written back to p in the background.
func Open(ctx context.Context, p Persister, key string, opts ...SaverOpt) (*Store, error) {
	c, err := p.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	s := NewStore(c)
	s.saver = newSaver(p, key, opts...)
	s.Subscribe(s.saver.notify)
	return s, nil
}

func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// Subscribe registers fn and returns the function removing it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) AddToCart(p Product) Cart {
	return s.apply(func(c Cart) Cart { return c.Add(p) })
}

func (s *Store) RemoveFromCart(id string) Cart {
	return s.apply(func(c Cart) Cart { return c.Remove(id) })
}

func (s *Store) DecreaseQuantity(id string) Cart {
	return s.apply(func(c Cart) Cart { return c.Decrease(id) })
}

func (s *Store) ClearCart() Cart {
	return s.apply(func(c Cart) Cart { return c.Clear() })
}

func (s *Store) apply(fn func(Cart) Cart) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = fn(s.cart)
	for _, l := range s.ordered() {
		l(s.cart)
	}
	return s.cart
}

// ordered returns listeners in subscription order.
func (s *Store) ordered() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Close stops persisting and waits until the latest snapshot is written.
// The store keeps working in memory afterwards.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.saver == nil {
		s.closed = true
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sv := s.saver
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()

	return sv.close(ctx)
}

type SaverOpt func(*saver)

// WithSaveTimeout bounds every write to the persister.
func WithSaveTimeout(d time.Duration) SaverOpt {
	return func(sv *saver) { sv.timeout = d }
}

// WithErrorHandler receives write failures. Writes are fire-and-forget, so
// this is the only place they surface.
func WithErrorHandler(fn func(key string, err error)) SaverOpt {
	return func(sv *saver) { sv.onErr = fn }
}

package cart

import (
	"context"
	"fmt"
	"time"
)

// Persister is the durable slot holding serialized carts.
type Persister interface {
	// Load returns the empty cart when nothing is stored under key.
	Load(ctx context.Context, key string) (Cart, error)
	Save(ctx context.Context, key string, c Cart) error
}

// saver writes snapshots of one store in order from a single goroutine.
// Only the latest unwritten snapshot is kept.
type saver struct {
	p       Persister
	key     string
	timeout time.Duration
	onErr   func(key string, err error)
	pending chan Cart
	done    chan struct{}
}

func newSaver(p Persister, key string, opts ...SaverOpt) *saver {
	sv := &saver{
		p:       p,
		key:     key,
		timeout: 3 * time.Second,
		onErr:   func(string, error) {},
		pending: make(chan Cart, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sv)
	}

	go sv.run()
	return sv
}

// notify never blocks: a snapshot not yet written is replaced by c. The store
// lock makes notify the only sender.
func (sv *saver) notify(c Cart) {
	for {
		select {
		case sv.pending <- c:
			return
		default:
		}

		select {
		case <-sv.pending:
		default:
		}
	}
}

func (sv *saver) run() {
	defer close(sv.done)

	for c := range sv.pending {
		ctx, cancel := context.WithTimeout(context.Background(), sv.timeout)
		if err := sv.p.Save(ctx, sv.key, c); err != nil {
			sv.onErr(sv.key, err)
		}
		cancel()
	}
}

func (sv *saver) close(ctx context.Context) error {
	close(sv.pending)

	select {
	case <-sv.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flushing cart[%s]: %w", sv.key, ctx.Err())
	}
}

package background

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discard() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestShutdownWaits(t *testing.T) {
	bg := New(discard())

	var n int32
	for i := 0; i < 5; i++ {
		bg.Add(func() error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&n, 1)
			return nil
		})
	}
	bg.Add(func() error { return errors.New("boom") })
	bg.Add(func() error { panic("oops") })

	if err := bg.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := atomic.LoadInt32(&n); got != 5 {
		t.Fatalf("expected 5 completed tasks, got %d", got)
	}

	bg.Add(func() error {
		atomic.AddInt32(&n, 1)
		return nil
	})
	time.Sleep(5 * time.Millisecond)
	if got := atomic.LoadInt32(&n); got != 5 {
		t.Fatalf("task added after shutdown ran")
	}
}

func TestShutdownTimeout(t *testing.T) {
	bg := New(discard())

	release := make(chan struct{})
	bg.Add(func() error {
		<-release
		return nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := bg.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

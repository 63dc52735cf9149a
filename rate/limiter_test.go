package rate

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time               { return c.t }
func (c *clock) advance(d time.Duration)      { c.t = c.t.Add(d) }
func newClock() *clock                        { return &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)} }
func withClock(l *Limiter, c *clock) *Limiter { l.now = c.now; return l }

func TestLimiter(t *testing.T) {
	c := newClock()
	interval := 10 * time.Millisecond
	lim := withClock(NewLimiter(1, time.Hour, interval), c)

	client := "addr:10.0.0.1"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{time.Millisecond, interval, interval, time.Millisecond, time.Millisecond, time.Millisecond}
	for i, exp := range expected {
		if got := lim.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		c.advance(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	c := newClock()
	interval := 100 * time.Millisecond
	lim := withClock(NewLimiter(10, time.Hour, interval), c)

	client := "user:42"
	for i := 0; i < 10; i++ {
		if !lim.Check(client) {
			t.Fatalf("burst request %d rejected", i)
		}
	}
	if lim.Check(client) {
		t.Fatal("request past burst allowed")
	}

	c.advance(interval)
	if !lim.Check(client) {
		t.Fatal("request after refill rejected")
	}
	if lim.Check(client) {
		t.Fatal("second request after single refill allowed")
	}
}

func TestLimiterClientsAreIndependent(t *testing.T) {
	c := newClock()
	lim := withClock(NewLimiter(1, time.Hour, time.Minute), c)

	if !lim.Check("a") || !lim.Check("b") {
		t.Fatal("first request of each client must pass")
	}
	if lim.Check("a") {
		t.Fatal("client a exceeded its budget")
	}
}

func TestLimiterEvictsIdleClients(t *testing.T) {
	c := newClock()
	lim := withClock(NewLimiter(1, time.Minute, time.Second), c)

	lim.Check("a")
	c.advance(30 * time.Second)
	lim.Check("b")
	c.advance(45 * time.Second)

	lim.evict()
	if got := lim.size(); got != 1 {
		t.Fatalf("expected 1 client after eviction, got %d", got)
	}
}

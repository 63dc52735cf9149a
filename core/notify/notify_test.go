package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApply(t *testing.T) {
	var c Counts
	events := []Event{
		{Kind: KindInserted, Table: TableOrders},
		{Kind: KindInserted, Table: TableOrders},
		{Kind: KindInserted, Table: TableReservations},
		{Kind: KindSeen, Table: TableOrders},
		{Kind: KindInserted, Table: TableOrders},
	}

	for _, e := range events {
		c = Apply(c, e)
	}

	want := Counts{TableOrders: 1, TableReservations: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := Counts{TableOrders: 2}
	_ = Apply(in, Event{Kind: KindSeen, Table: TableOrders})

	if in[TableOrders] != 2 {
		t.Fatal("input counts modified")
	}
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := hub.Publish(ctx, Event{Kind: KindInserted, Table: TableOrders, ID: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		for i := 0; i < 100; i++ {
			select {
			case e := <-ch:
				if e.ID != fmt.Sprint(i) {
					t.Fatalf("subscriber %s: expected event %d, got %s", name, i, e.ID)
				}
			case <-time.After(time.Second):
				t.Fatalf("subscriber %s: timed out at event %d", name, i)
			}
		}
	}
}

func TestHubCancelClosesStream(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed stream")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed")
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	hub.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed stream")
	}
	cancel()
	if err := hub.Publish(context.Background(), Seen(TableOrders)); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}

	late, _ := hub.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription on closed hub must be closed")
	}
}

func TestCounterFollowsHub(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	counter := NewCounter()
	events, cancel := hub.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		counter.Run(ctx, events)
		close(done)
	}()

	for _, e := range []Event{
		{Kind: KindInserted, Table: TableComments},
		{Kind: KindInserted, Table: TableComments},
		{Kind: KindInserted, Table: TablePayments},
		Seen(TablePayments),
	} {
		if err := hub.Publish(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	want := Counts{TableOrders: 0, TablePayments: 0, TableReservations: 0, TableComments: 2}
	deadline := time.Now().Add(time.Second)
	for {
		got := counter.Snapshot()
		if cmp.Equal(want, got) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("counts mismatch (-want +got):\n%s", cmp.Diff(want, got))
		}
		time.Sleep(5 * time.Millisecond)
	}

	stop()
	<-done
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestNotifier(t *testing.T) {
	var nilNotifier *Notifier
	nilNotifier.Inserted(context.Background(), TableOrders, "x", nil)

	pub := &recordingPublisher{}
	n := NewNotifier(pub, discardLogger())
	n.Inserted(context.Background(), TableOrders, "o1", map[string]string{"reference": "FD-ABC"})

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.Kind != KindInserted || e.Table != TableOrders || e.ID != "o1" {
		t.Fatalf("unexpected event %+v", e)
	}
	if string(e.Record) != `{"reference":"FD-ABC"}` {
		t.Fatalf("unexpected record %s", e.Record)
	}

	pub.err = errors.New("broker down")
	n.Inserted(context.Background(), TableOrders, "o2", nil)
}

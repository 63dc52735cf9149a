// Package notify carries insert notifications to the admin back-office.
//
// Events flow publisher → Hub → subscribers. A Counter subscribes to the hub
// and folds events into per-table counts of inserts not yet seen by an admin.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindInserted Kind = "inserted"
	KindSeen     Kind = "seen"
)

const (
	TableOrders       = "orders"
	TablePayments     = "payments"
	TableReservations = "reservations"
	TableComments     = "comments"
)

var Tables = []string{TableOrders, TablePayments, TableReservations, TableComments}

type Event struct {
	Kind   Kind            `json:"kind"`
	Table  string          `json:"table"`
	ID     string          `json:"id,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
	At     time.Time       `json:"at"`
}

func Inserted(table, id string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s record: %w", table, err)
	}
	return Event{Kind: KindInserted, Table: table, ID: id, Record: raw, At: time.Now().UTC()}, nil
}

func Seen(table string) Event {
	return Event{Kind: KindSeen, Table: table, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Notifier publishes insert events on behalf of request handlers. Failures
// are logged: a lost notification must never fail the insert it describes.
// A nil Notifier drops everything.
type Notifier struct {
	pub Publisher
	log logrus.FieldLogger
}

func NewNotifier(pub Publisher, log logrus.FieldLogger) *Notifier {
	return &Notifier{pub: pub, log: log}
}

func (n *Notifier) Inserted(ctx context.Context, table, id string, record any) {
	if n == nil {
		return
	}

	e, err := Inserted(table, id, record)
	if err == nil {
		err = n.pub.Publish(ctx, e)
	}
	if err != nil {
		n.log.WithFields(logrus.Fields{
			"table":   table,
			"id":      id,
			"message": err,
		}).Error("publishing insert event")
	}
}

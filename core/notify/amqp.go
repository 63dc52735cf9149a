package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Broker shares events between server instances through a RabbitMQ fanout
// exchange. Every instance consumes the exchange into its own Hub.
type Broker struct {
	conn     *amqp.Connection
	exchange string
	log      logrus.FieldLogger

	mu    sync.Mutex
	pubCh *amqp.Channel
}

func Dial(url, exchange string, log logrus.FieldLogger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening publish channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &Broker{conn: conn, exchange: exchange, log: log, pubCh: ch}, nil
}

func (b *Broker) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pubCh.PublishWithContext(
		pubCtx,
		b.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   e.At,
			Body:        body,
		},
	)
}

// Consume forwards every event on the exchange to hub until ctx is done or
// the connection drops.
func (b *Broker) Consume(ctx context.Context, hub *Hub) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consume channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %s: %w", q.Name, err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming queue %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var e Event
			if err := json.Unmarshal(d.Body, &e); err != nil {
				b.log.WithField("message", err).Warn("dropping malformed event")
				continue
			}

			if err := hub.Publish(ctx, e); err != nil {
				return fmt.Errorf("forwarding event: %w", err)
			}
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.pubCh.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}

package order

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/database"
	"github.com/jmoiron/sqlx"
)

// Store is the Postgres Repository. Every successful insert is announced to
// the back-office through the notifier.
type Store struct {
	db       *sqlx.DB
	notifier *notify.Notifier
	now      func() time.Time
}

func NewStore(db *sqlx.DB, notifier *notify.Notifier) *Store {
	return &Store{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// Insert writes the order and its lines in one transaction.
func (s *Store) Insert(ctx context.Context, o Order) (string, error) {
	const qOrder = `
	INSERT INTO orders
		(order_id, user_id, reference, customer_phone, customer_location, payment_method,
		subtotal, shipping_cost, total_amount, status, created_at, updated_at)
	VALUES
		(:order_id, :user_id, :reference, :customer_phone, :customer_location, :payment_method,
		:subtotal, :shipping_cost, :total_amount, :status, :created_at, :updated_at)`

	const qItem = `
	INSERT INTO order_items
		(order_id, menu_item_id, name, unit_price, quantity, image_url)
	VALUES
		(:order_id, :menu_item_id, :name, :unit_price, :quantity, :image_url)`

	err := database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		if err := database.NamedExecContext(ctx, tx, qOrder, o); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		for _, it := range o.Items {
			it.OrderID = o.ID
			if err := database.NamedExecContext(ctx, tx, qItem, it); err != nil {
				return fmt.Errorf("inserting order item[%s]: %w", it.MenuItemID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.notifier.Inserted(ctx, notify.TableOrders, o.ID, o)

	return o.ID, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	return UpdateStatus(ctx, s.db, id, status, s.now())
}

func (s *Store) Delete(ctx context.Context, id string) error {
	in := struct {
		ID string `db:"order_id"`
	}{id}

	const q = `
	DELETE FROM orders
	WHERE order_id = :order_id`

	if err := database.NamedExecAffected(ctx, s.db, q, in); err != nil {
		return fmt.Errorf("deleting order[%s]: %w", id, err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, id string) (Order, error) {
	return Fetch(ctx, s.db, id)
}

func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	const qOrders = `
	SELECT * FROM orders
	ORDER BY created_at DESC`

	const qItems = `
	SELECT * FROM order_items`

	return list(ctx, s.db, qOrders, qItems, struct{}{})
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	const qOrders = `
	SELECT * FROM orders
	WHERE user_id = :user_id
	ORDER BY created_at DESC`

	const qItems = `
	SELECT oi.* FROM order_items AS oi
	JOIN orders AS o ON o.order_id = oi.order_id
	WHERE o.user_id = :user_id`

	return list(ctx, s.db, qOrders, qItems, in)
}

// UpdateStatus is exposed for callers that must change an order inside their
// own transaction, like payment fulfillment.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, status Status, now time.Time) error {
	in := struct {
		ID        string    `db:"order_id"`
		Status    Status    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, status, now.UTC()}

	const q = `
	UPDATE orders SET
		status = :status,
		updated_at = :updated_at
	WHERE order_id = :order_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating order[%s] status: %w", id, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	in := struct {
		ID string `db:"order_id"`
	}{id}

	const q = `
	SELECT * FROM orders
	WHERE order_id = :order_id`

	var o Order
	if err := database.NamedQueryStruct(ctx, db, q, in, &o); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, err)
	}

	const qItems = `
	SELECT * FROM order_items
	WHERE order_id = :order_id`

	if err := database.NamedQuerySlice(ctx, db, qItems, in, &o.Items); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s] items: %w", id, err)
	}

	return o, nil
}

func list(ctx context.Context, db sqlx.ExtContext, qOrders, qItems string, in any) ([]Order, error) {
	var orders []Order
	if err := database.NamedQuerySlice(ctx, db, qOrders, in, &orders); err != nil {
		return nil, fmt.Errorf("selecting orders: %w", err)
	}

	var items []Item
	if err := database.NamedQuerySlice(ctx, db, qItems, in, &items); err != nil {
		return nil, fmt.Errorf("selecting order items: %w", err)
	}

	byOrder := make(map[string][]Item, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}

	return orders, nil
}

package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/jmoiron/sqlx"
)

// Service dispatches orders to the gateway of their payment method and keeps
// the payments table in step with the providers.
type Service struct {
	db       *sqlx.DB
	gateways map[order.Method]Gateway
	notifier *notify.Notifier
	timeout  time.Duration
	now      func() time.Time
}

func NewService(db *sqlx.DB, notifier *notify.Notifier, timeout time.Duration, gateways map[order.Method]Gateway) *Service {
	return &Service{
		db:       db,
		gateways: gateways,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Begin opens a payment for o and records it as pending. Provider failures
// are reported as order.CollaboratorError.
func (s *Service) Begin(ctx context.Context, o order.Order) (order.Checkout, error) {
	gw, ok := s.gateways[o.PaymentMethod]
	if !ok {
		return order.Checkout{}, &order.ValidationError{
			Msg: fmt.Sprintf("payment method %s is not available", o.PaymentMethod),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	co, err := gw.Begin(ctx, o)
	if err != nil {
		return order.Checkout{}, &order.CollaboratorError{Op: fmt.Sprintf("opening %s payment", o.PaymentMethod), Err: err}
	}

	now := s.now().UTC()
	p := Payment{
		ID:         validate.GenerateID(),
		OrderID:    o.ID,
		Method:     o.PaymentMethod,
		ProviderID: co.ProviderID,
		Amount:     o.TotalAmount,
		Currency:   co.Currency,
		Status:     Pending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := Create(ctx, s.db, p); err != nil {
		return order.Checkout{}, fmt.Errorf("recording payment for order[%s]: %w", o.ID, err)
	}

	s.notifier.Inserted(ctx, notify.TablePayments, p.ID, p)

	return order.Checkout{
		PaymentID:   p.ID,
		Method:      p.Method,
		ProviderID:  p.ProviderID,
		RedirectURL: co.RedirectURL,
	}, nil
}

// Fulfill marks the payment behind providerID captured and its order paid.
// Providers may deliver the same completion more than once, so an already
// captured payment is left alone.
func (s *Service) Fulfill(ctx context.Context, providerID string) error {
	p, err := FetchByProviderID(ctx, s.db, providerID)
	if err != nil {
		return fmt.Errorf("fetching the payment bound to provider id[%s]: %w", providerID, err)
	}

	if p.Status == Captured {
		return nil
	}

	return s.capture(ctx, p)
}

// Owned returns the payment bound to providerID when its order belongs to the
// caller. Other users' payments are reported as database.ErrDBNotFound.
func (s *Service) Owned(ctx context.Context, providerID string) (Payment, error) {
	p, err := FetchByProviderID(ctx, s.db, providerID)
	if err != nil {
		return Payment{}, err
	}

	o, err := order.Fetch(ctx, s.db, p.OrderID)
	if err != nil {
		return Payment{}, fmt.Errorf("fetching the order bound to payment[%s]: %w", p.ID, err)
	}

	if !claims.CanAccess(ctx, o.UserID) {
		return Payment{}, fmt.Errorf("payment[%s] not owned by caller: %w", p.ID, database.ErrDBNotFound)
	}
	return p, nil
}

// SetStatus is the admin override. Capturing a payment also marks its order
// paid.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	p, err := Fetch(ctx, s.db, id)
	if err != nil {
		return err
	}

	if status == Captured {
		return s.capture(ctx, p)
	}
	return UpdateStatus(ctx, s.db, id, status, s.now())
}

func (s *Service) capture(ctx context.Context, p Payment) error {
	now := s.now()

	err := database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		if err := UpdateStatus(ctx, tx, p.ID, Captured, now); err != nil {
			return err
		}
		if err := order.UpdateStatus(ctx, tx, p.OrderID, order.Paid, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fulfilling the order[%s] bound to payment[%s]: %w", p.OrderID, p.ID, err)
	}
	return nil
}

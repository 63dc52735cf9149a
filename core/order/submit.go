package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/random"
	"github.com/irsalhamdi/foodie/validate"
)

// ErrUnauthenticated means no principal was attached to the submission.
var ErrUnauthenticated = errors.New("checkout requires a signed-in user")

// ValidationError reports shopper input that cannot be submitted. Its message
// is meant for the shopper.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// CollaboratorError wraps a failure of an external service the checkout
// depends on.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Repository is the order store.
type Repository interface {
	Insert(ctx context.Context, o Order) (string, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Fetch(ctx context.Context, id string) (Order, error)
}

// Submitter turns a cart snapshot into exactly one order insert. It never
// retries and never touches the cart: clearing it is up to the caller.
type Submitter struct {
	repo    Repository
	calc    cart.Calculator
	timeout time.Duration
	now     func() time.Time
}

func NewSubmitter(repo Repository, calc cart.Calculator, timeout time.Duration) *Submitter {
	return &Submitter{
		repo:    repo,
		calc:    calc,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *Submitter) Submit(ctx context.Context, snap cart.Cart, d Details) (Order, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return Order{}, ErrUnauthenticated
	}

	if err := validate.Check(d); err != nil {
		if validate.IsFieldError(err) {
			return Order{}, &ValidationError{Msg: err.Error()}
		}
		return Order{}, fmt.Errorf("validating checkout details: %w", err)
	}

	if snap.IsEmpty() {
		return Order{}, &ValidationError{Msg: "no items to checkout"}
	}

	ord, err := s.build(clm.UserID, snap, d)
	if err != nil {
		return Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.repo.Insert(ctx, ord)
	if err != nil {
		return Order{}, &CollaboratorError{Op: "inserting order", Err: err}
	}
	ord.ID = id

	return ord, nil
}

func (s *Submitter) build(userID string, snap cart.Cart, d Details) (Order, error) {
	ref, err := random.Reference("FD", 6)
	if err != nil {
		return Order{}, fmt.Errorf("generating order reference: %w", err)
	}

	t := s.calc.Totals(snap)
	now := s.now().UTC()

	ord := Order{
		ID:               validate.GenerateID(),
		UserID:           userID,
		Reference:        ref,
		CustomerPhone:    d.CustomerPhone,
		CustomerLocation: d.CustomerLocation,
		PaymentMethod:    d.PaymentMethod,
		Subtotal:         t.Subtotal.Round(2),
		ShippingCost:     t.Surcharge.Round(2),
		TotalAmount:      t.GrandTotal.Round(2),
		Status:           Pending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for _, li := range snap.Items() {
		ord.Items = append(ord.Items, Item{
			OrderID:    ord.ID,
			MenuItemID: li.ID,
			Name:       li.Name,
			UnitPrice:  li.UnitPrice,
			Quantity:   li.Quantity,
			ImageURL:   li.ImageRef,
		})
	}

	return ord, nil
}

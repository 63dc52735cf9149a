package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	Repository
	inserts []Order
	err     error
	block   bool
}

func (f *fakeRepo) Insert(ctx context.Context, o Order) (string, error) {
	f.inserts = append(f.inserts, o)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return o.ID, nil
}

var validDetails = Details{
	CustomerPhone:    "+351 912 345 678",
	CustomerLocation: "Rua das Flores 12, Porto",
	PaymentMethod:    Card,
}

func sampleCart() cart.Cart {
	burger := cart.Product{ID: "b1", Name: "Burger", UnitPrice: decimal.RequireFromString("6.50"), ImageRef: "burger.jpg"}
	soda := cart.Product{ID: "s1", Name: "Soda", UnitPrice: decimal.RequireFromString("1.25")}
	return cart.Cart{}.Add(burger).Add(burger).Add(soda)
}

func signedIn() context.Context {
	return claims.Set(context.Background(), claims.Claims{UserID: "u1", Role: claims.RoleUser})
}

func newTestSubmitter(repo Repository) *Submitter {
	calc, _ := cart.NewCalculator("5")
	s := NewSubmitter(repo, calc, time.Second)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSubmitRequiresPrincipal(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestSubmitter(repo)

	_, err := s.Submit(context.Background(), sampleCart(), validDetails)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(repo.inserts) != 0 {
		t.Fatalf("repository called %d times", len(repo.inserts))
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		cart cart.Cart
		mod  func(*Details)
	}{
		{"empty cart", cart.Cart{}, func(*Details) {}},
		{"missing phone", sampleCart(), func(d *Details) { d.CustomerPhone = "" }},
		{"bad phone", sampleCart(), func(d *Details) { d.CustomerPhone = "call me" }},
		{"missing location", sampleCart(), func(d *Details) { d.CustomerLocation = "" }},
		{"unknown method", sampleCart(), func(d *Details) { d.PaymentMethod = "cash" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			s := newTestSubmitter(repo)

			d := validDetails
			tc.mod(&d)

			_, err := s.Submit(signedIn(), tc.cart, d)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Msg == "" {
				t.Fatal("validation error without message")
			}
			if len(repo.inserts) != 0 {
				t.Fatalf("repository called %d times", len(repo.inserts))
			}
		})
	}
}

func TestSubmitWrapsRepositoryFailure(t *testing.T) {
	down := errors.New("connection refused")
	repo := &fakeRepo{err: down}
	s := newTestSubmitter(repo)

	_, err := s.Submit(signedIn(), sampleCart(), validDetails)

	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if !errors.Is(err, down) {
		t.Fatalf("cause lost: %v", err)
	}
	if len(repo.inserts) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(repo.inserts))
	}
}

func TestSubmitTimesOut(t *testing.T) {
	repo := &fakeRepo{block: true}
	s := newTestSubmitter(repo)
	s.timeout = 10 * time.Millisecond

	_, err := s.Submit(signedIn(), sampleCart(), validDetails)

	var cerr *CollaboratorError
	if !errors.As(err, &cerr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed out CollaboratorError, got %v", err)
	}
}

func TestSubmitBuildsOrder(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestSubmitter(repo)

	ord, err := s.Submit(signedIn(), sampleCart(), validDetails)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(repo.inserts) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(repo.inserts))
	}
	if ord.ID == "" || ord.ID != repo.inserts[0].ID {
		t.Fatalf("order id %q not taken from repository", ord.ID)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exp := Order{
		ID:               ord.ID,
		UserID:           "u1",
		Reference:        ord.Reference,
		CustomerPhone:    validDetails.CustomerPhone,
		CustomerLocation: validDetails.CustomerLocation,
		PaymentMethod:    Card,
		Subtotal:         decimal.RequireFromString("14.25"),
		ShippingCost:     decimal.NewFromInt(5),
		TotalAmount:      decimal.RequireFromString("19.25"),
		Status:           Pending,
		CreatedAt:        at,
		UpdatedAt:        at,
		Items: []Item{
			{OrderID: ord.ID, MenuItemID: "b1", Name: "Burger", UnitPrice: decimal.RequireFromString("6.50"), Quantity: 2, ImageURL: "burger.jpg"},
			{OrderID: ord.ID, MenuItemID: "s1", Name: "Soda", UnitPrice: decimal.RequireFromString("1.25"), Quantity: 1},
		},
	}

	if diff := cmp.Diff(exp, ord); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if len(ord.Reference) != len("FD-")+6 {
		t.Fatalf("unexpected reference %q", ord.Reference)
	}
}

package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/sirupsen/logrus"
)

// PaymentStarter opens a payment with the provider matching the order's
// payment method.
type PaymentStarter interface {
	Begin(ctx context.Context, o Order) (Checkout, error)
}

type CheckoutResponse struct {
	Order    Order    `json:"order"`
	Checkout Checkout `json:"checkout"`
}

// HandleCheckout submits the shopper's cart as an order and starts its
// payment. The cart is cleared only once both succeed. When the payment
// cannot be started the order is cancelled and the cart is left as it was.
func HandleCheckout(log logrus.FieldLogger, reg *cart.Registry, sub *Submitter, repo Repository, payments PaymentStarter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return checkoutError(ErrUnauthenticated)
		}

		var in Details
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		var snap cart.Cart
		err = reg.Do(ctx, clm.UserID, func(s *cart.Store) { snap = s.Snapshot() })
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}

		ord, err := sub.Submit(ctx, snap, in)
		if err != nil {
			return checkoutError(err)
		}

		co, err := payments.Begin(ctx, ord)
		if err != nil {
			if uerr := repo.UpdateStatus(ctx, ord.ID, Cancelled); uerr != nil {
				log.WithFields(logrus.Fields{
					"order_id": ord.ID,
					"message":  uerr,
				}).Error("cancelling order after payment failure")
			}
			return checkoutError(err)
		}

		err = reg.Do(ctx, clm.UserID, func(s *cart.Store) { s.ClearCart() })
		if err != nil {
			log.WithFields(logrus.Fields{
				"order_id": ord.ID,
				"message":  err,
			}).Error("clearing cart after checkout")
		}

		return web.Respond(ctx, w, CheckoutResponse{Order: ord, Checkout: co}, http.StatusCreated)
	}
}

func HandleListMine(repo Repository) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := repo.ListByUser(ctx, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing user orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleShow(repo Repository) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		ord, err := repo.Fetch(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order: %w", err)
		}

		// Other users' orders look missing rather than forbidden.
		if !claims.CanAccess(ctx, ord.UserID) {
			return weberr.NotFound(fmt.Errorf("order[%s] not owned by caller", id))
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleList(repo Repository) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orders, err := repo.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleUpdateStatus(repo Repository) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		var in StatusUp
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		if err := repo.UpdateStatus(ctx, id, in.Status); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating order status: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(repo Repository) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		if err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting order: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// checkoutError maps the checkout failure kinds onto responses. Anything
// unrecognised surfaces as an internal error.
func checkoutError(err error) error {
	var verr *ValidationError
	var cerr *CollaboratorError

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return weberr.NotAuthorized(err)
	case errors.As(err, &verr):
		return weberr.Unprocessable(verr)
	case errors.As(err, &cerr):
		return weberr.BadGateway(cerr)
	}
	return err
}

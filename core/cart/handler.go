package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/menu"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/jmoiron/sqlx"
)

// View is the cart as rendered to the shopper, amounts rounded for display.
type View struct {
	Items      []LineItem `json:"items"`
	ItemCount  int        `json:"itemCount"`
	Subtotal   string     `json:"subtotal"`
	Surcharge  string     `json:"surcharge"`
	GrandTotal string     `json:"grandTotal"`
}

func NewView(c Cart, calc Calculator) View {
	t := calc.Totals(c)
	return View{
		Items:      c.Items(),
		ItemCount:  c.ItemCount(),
		Subtotal:   Display(t.Subtotal),
		Surcharge:  Display(t.Surcharge),
		GrandTotal: Display(t.GrandTotal),
	}
}

type ItemNew struct {
	ID string `json:"id" validate:"required,uuid"`
}

func HandleShow(reg *Registry, calc Calculator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var snap Cart
		err = reg.Do(ctx, clm.UserID, func(s *Store) { snap = s.Snapshot() })
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}

		return web.Respond(ctx, w, NewView(snap, calc), http.StatusOK)
	}
}

// HandleCreateItem adds one unit of a menu item. Name and price always come
// from the menu, never from the request.
func HandleCreateItem(db *sqlx.DB, reg *Registry, calc Calculator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		it, err := menu.Fetch(ctx, db, in.ID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching menu item: %w", err)
		}

		if !it.Available {
			return weberr.Unprocessable(fmt.Errorf("%s is not available right now", it.Name))
		}

		p := Product{ID: it.ID, Name: it.Name, UnitPrice: it.Price, ImageRef: it.ImageURL}

		var snap Cart
		err = reg.Do(ctx, clm.UserID, func(s *Store) { snap = s.AddToCart(p) })
		if err != nil {
			return fmt.Errorf("adding to cart: %w", err)
		}

		return web.Respond(ctx, w, NewView(snap, calc), http.StatusOK)
	}
}

func HandleDecreaseItem(reg *Registry, calc Calculator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")

		var snap Cart
		err = reg.Do(ctx, clm.UserID, func(s *Store) { snap = s.DecreaseQuantity(id) })
		if err != nil {
			return fmt.Errorf("decreasing cart item: %w", err)
		}

		return web.Respond(ctx, w, NewView(snap, calc), http.StatusOK)
	}
}

func HandleDeleteItem(reg *Registry, calc Calculator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")

		var snap Cart
		err = reg.Do(ctx, clm.UserID, func(s *Store) { snap = s.RemoveFromCart(id) })
		if err != nil {
			return fmt.Errorf("removing cart item: %w", err)
		}

		return web.Respond(ctx, w, NewView(snap, calc), http.StatusOK)
	}
}

func HandleDelete(reg *Registry) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		err = reg.Do(ctx, clm.UserID, func(s *Store) { s.ClearCart() })
		if err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

package menu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/jmoiron/sqlx"
)

var errPrice = errors.New("price must be between 0 and 10000 with at most two decimals")

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		items, err := List(ctx, db, web.Query(r, "category"))
		if err != nil {
			return fmt.Errorf("listing menu: %w", err)
		}

		// Admins manage sold out dishes too; shoppers only see what they can order.
		if !claims.IsAdmin(ctx) {
			items = available(items)
		}

		return web.Respond(ctx, w, items, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		it, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching menu item: %w", err)
		}

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}
		if !validPrice(in.Price) {
			return weberr.Unprocessable(errPrice)
		}

		now := time.Now().UTC()
		it := Item{
			ID:          validate.GenerateID(),
			Name:        in.Name,
			Description: in.Description,
			Category:    in.Category,
			Price:       in.Price,
			ImageURL:    in.ImageURL,
			Available:   in.Available == nil || *in.Available,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, it); err != nil {
			return fmt.Errorf("creating menu item: %w", err)
		}

		return web.Respond(ctx, w, it, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		var up ItemUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.Unprocessable(err)
		}
		if up.Price != nil && !validPrice(*up.Price) {
			return weberr.Unprocessable(errPrice)
		}

		it, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching menu item: %w", err)
		}

		if up.Name != nil {
			it.Name = *up.Name
		}
		if up.Description != nil {
			it.Description = *up.Description
		}
		if up.Category != nil {
			it.Category = *up.Category
		}
		if up.Price != nil {
			it.Price = *up.Price
		}
		if up.ImageURL != nil {
			it.ImageURL = *up.ImageURL
		}
		if up.Available != nil {
			it.Available = *up.Available
		}
		it.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, it); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.Conflict(err)
			}
			return fmt.Errorf("updating menu item: %w", err)
		}
		it.Version++

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		if err := Delete(ctx, db, id); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting menu item: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

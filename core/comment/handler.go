package comment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/menu"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/jmoiron/sqlx"
)

func HandleCreate(db *sqlx.DB, notifier *notify.Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in CommentNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		if in.MenuItemID != nil {
			if _, err := menu.Fetch(ctx, db, *in.MenuItemID); err != nil {
				if errors.Is(err, database.ErrDBNotFound) {
					return weberr.Unprocessable(errors.New("menuItemId does not match any dish"))
				}
				return fmt.Errorf("fetching menu item: %w", err)
			}
		}

		c := Comment{
			ID:         validate.GenerateID(),
			UserID:     clm.UserID,
			MenuItemID: in.MenuItemID,
			Rating:     in.Rating,
			Body:       in.Body,
			CreatedAt:  time.Now().UTC(),
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}

		notifier.Inserted(ctx, notify.TableComments, c.ID, c)

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleListByMenuItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		cs, err := ListByMenuItem(ctx, db, id)
		if err != nil {
			return fmt.Errorf("listing comments: %w", err)
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleListRecent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		limit, err := parseLimit(web.Query(r, "limit"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		cs, err := ListRecent(ctx, db, limit)
		if err != nil {
			return fmt.Errorf("listing recent comments: %w", err)
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

// HandleDelete removes a comment on behalf of its author or an admin.
func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching comment: %w", err)
		}

		if !claims.CanAccess(ctx, c.UserID) {
			return weberr.Forbidden(fmt.Errorf("comment[%s] not owned by caller", id))
		}

		if err := Delete(ctx, db, id); err != nil {
			return fmt.Errorf("deleting comment: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", s)
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

package reservation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/foodie/api/background"
	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/user"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/email"
	"github.com/irsalhamdi/foodie/random"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/jmoiron/sqlx"
)

const timeLayout = "Mon 2 Jan 2006 at 15:04"

// HandleCreate books a table for the caller. The confirmation email is sent
// in the background so a slow relay never delays the response.
func HandleCreate(db *sqlx.DB, notifier *notify.Notifier, mailer email.Mailer, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ReservationNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		now := time.Now().UTC()
		if err := checkTime(in.ReservedAt, now); err != nil {
			return weberr.Unprocessable(err)
		}

		usr, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		ref, err := random.Reference("RS", 6)
		if err != nil {
			return fmt.Errorf("generating reservation reference: %w", err)
		}

		res := Reservation{
			ID:         validate.GenerateID(),
			Reference:  ref,
			UserID:     clm.UserID,
			Name:       in.Name,
			Phone:      in.Phone,
			Guests:     in.Guests,
			ReservedAt: in.ReservedAt.UTC(),
			Note:       in.Note,
			Status:     Pending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := Create(ctx, db, res); err != nil {
			return fmt.Errorf("creating reservation: %w", err)
		}

		notifier.Inserted(ctx, notify.TableReservations, res.ID, res)

		bg.Add(func() error {
			subject, body := email.Reservation(res.Name, res.Guests, res.ReservedAt.Format(timeLayout), res.Reference)
			return mailer.Send(usr.Email, subject, body)
		})

		return web.Respond(ctx, w, res, http.StatusCreated)
	}
}

func HandleListMine(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		rs, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing user reservations: %w", err)
		}

		return web.Respond(ctx, w, rs, http.StatusOK)
	}
}

// HandleCancel lets the owner, or an admin, cancel a booking.
func HandleCancel(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NotFound(err)
		}

		res, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching reservation: %w", err)
		}

		if !claims.CanAccess(ctx, res.UserID) {
			return weberr.NotFound(fmt.Errorf("reservation[%s] not owned by caller", id))
		}

		if err := UpdateStatus(ctx, db, id, Cancelled, time.Now()); err != nil {
			return fmt.Errorf("cancelling reservation: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		rs, err := List(ctx, db)
		if err != nil {
			return fmt.Errorf("listing reservations: %w", err)
		}

		return web.Respond(ctx, w, rs, http.StatusOK)
	}
}

func HandleUpdateStatus(db *sqlx.DB) web.Handler {
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

		if err := UpdateStatus(ctx, db, id, in.Status, time.Now()); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating reservation status: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
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
			return fmt.Errorf("deleting reservation: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

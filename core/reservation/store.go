package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/foodie/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, res Reservation) error {
	const q = `
	INSERT INTO reservations
		(reservation_id, reference, user_id, name, phone, guests, reserved_at, note, status, created_at, updated_at)
	VALUES
		(:reservation_id, :reference, :user_id, :name, :phone, :guests, :reserved_at, :note, :status, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, res); err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Reservation, error) {
	in := struct {
		ID string `db:"reservation_id"`
	}{id}

	const q = `
	SELECT * FROM reservations
	WHERE reservation_id = :reservation_id`

	var res Reservation
	if err := database.NamedQueryStruct(ctx, db, q, in, &res); err != nil {
		return Reservation{}, fmt.Errorf("selecting reservation[%s]: %w", id, err)
	}
	return res, nil
}

func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Reservation, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	const q = `
	SELECT * FROM reservations
	WHERE user_id = :user_id
	ORDER BY reserved_at DESC`

	var rs []Reservation
	if err := database.NamedQuerySlice(ctx, db, q, in, &rs); err != nil {
		return nil, fmt.Errorf("selecting reservations of user[%s]: %w", userID, err)
	}
	return rs, nil
}

// List returns every reservation, the nearest upcoming first.
func List(ctx context.Context, db sqlx.ExtContext) ([]Reservation, error) {
	const q = `
	SELECT * FROM reservations
	ORDER BY reserved_at`

	var rs []Reservation
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &rs); err != nil {
		return nil, fmt.Errorf("selecting reservations: %w", err)
	}
	return rs, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, status Status, now time.Time) error {
	in := struct {
		ID        string    `db:"reservation_id"`
		Status    Status    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, status, now.UTC()}

	const q = `
	UPDATE reservations SET
		status = :status,
		updated_at = :updated_at
	WHERE reservation_id = :reservation_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating reservation[%s] status: %w", id, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"reservation_id"`
	}{id}

	const q = `
	DELETE FROM reservations
	WHERE reservation_id = :reservation_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting reservation[%s]: %w", id, err)
	}
	return nil
}

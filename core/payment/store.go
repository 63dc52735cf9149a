package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/foodie/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, p Payment) error {
	const q = `
	INSERT INTO payments
		(payment_id, order_id, method, provider_id, amount, currency, status, created_at, updated_at)
	VALUES
		(:payment_id, :order_id, :method, :provider_id, :amount, :currency, :status, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, status Status, now time.Time) error {
	in := struct {
		ID        string    `db:"payment_id"`
		Status    Status    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, status, now.UTC()}

	const q = `
	UPDATE payments SET
		status = :status,
		updated_at = :updated_at
	WHERE payment_id = :payment_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating payment[%s] status: %w", id, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"payment_id"`
	}{id}

	const q = `
	DELETE FROM payments
	WHERE payment_id = :payment_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting payment[%s]: %w", id, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Payment, error) {
	in := struct {
		ID string `db:"payment_id"`
	}{id}

	const q = `
	SELECT * FROM payments
	WHERE payment_id = :payment_id`

	var p Payment
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Payment{}, fmt.Errorf("selecting payment[%s]: %w", id, err)
	}
	return p, nil
}

func FetchByProviderID(ctx context.Context, db sqlx.ExtContext, providerID string) (Payment, error) {
	in := struct {
		ProviderID string `db:"provider_id"`
	}{providerID}

	const q = `
	SELECT * FROM payments
	WHERE provider_id = :provider_id`

	var p Payment
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Payment{}, fmt.Errorf("selecting payment by provider id[%s]: %w", providerID, err)
	}
	return p, nil
}

func List(ctx context.Context, db sqlx.ExtContext) ([]Payment, error) {
	const q = `
	SELECT * FROM payments
	ORDER BY created_at DESC`

	var payments []Payment
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &payments); err != nil {
		return nil, fmt.Errorf("selecting payments: %w", err)
	}
	return payments, nil
}

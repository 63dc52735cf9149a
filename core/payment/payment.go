package payment

import (
	"time"

	"github.com/irsalhamdi/foodie/core/order"
	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending  Status = "pending"
	Captured Status = "captured"
	Failed   Status = "failed"
	Refunded Status = "refunded"
)

// Payment tracks one attempt to pay an order with a provider. ProviderID is
// the provider's own handle: a Stripe session, a PayPal order or a QR code.
type Payment struct {
	ID         string          `json:"id" db:"payment_id"`
	OrderID    string          `json:"orderId" db:"order_id"`
	Method     order.Method    `json:"method" db:"method"`
	ProviderID string          `json:"providerId" db:"provider_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   string          `json:"currency" db:"currency"`
	Status     Status          `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

type StatusUp struct {
	Status Status `json:"status" validate:"required,oneof=pending captured failed refunded"`
}

// Checkout is what a provider hands back when a payment is opened.
type Checkout struct {
	ProviderID  string
	RedirectURL string
	Currency    string
}

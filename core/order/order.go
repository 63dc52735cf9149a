package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending   Status = "pending"
	Paid      Status = "paid"
	Preparing Status = "preparing"
	Delivered Status = "delivered"
	Cancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case Pending, Paid, Preparing, Delivered, Cancelled:
		return true
	}
	return false
}

type Method string

const (
	Card   Method = "card"
	QR     Method = "qr"
	Paypal Method = "paypal"
)

func (m Method) Valid() bool {
	switch m {
	case Card, QR, Paypal:
		return true
	}
	return false
}

// Order is a submitted cart: a snapshot of its lines plus the shopper's
// delivery and payment details.
type Order struct {
	ID               string          `json:"id" db:"order_id"`
	UserID           string          `json:"userId" db:"user_id"`
	Reference        string          `json:"reference" db:"reference"`
	CustomerPhone    string          `json:"customerPhone" db:"customer_phone"`
	CustomerLocation string          `json:"customerLocation" db:"customer_location"`
	PaymentMethod    Method          `json:"paymentMethod" db:"payment_method"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	TotalAmount      decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Status           Status          `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
	Items            []Item          `json:"items" db:"-"`
}

type Item struct {
	OrderID    string          `json:"-" db:"order_id"`
	MenuItemID string          `json:"id" db:"menu_item_id"`
	Name       string          `json:"name" db:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity   int             `json:"quantity" db:"quantity"`
	ImageURL   string          `json:"imageRef" db:"image_url"`
}

// Details are entered by the shopper at checkout.
type Details struct {
	CustomerPhone    string `json:"customerPhone" validate:"required,phone"`
	CustomerLocation string `json:"customerLocation" validate:"required,max=500"`
	PaymentMethod    Method `json:"paymentMethod" validate:"required,oneof=card qr paypal"`
}

type StatusUp struct {
	Status Status `json:"status" validate:"required,oneof=pending paid preparing delivered cancelled"`
}

// Checkout tells the shopper how to pay for a submitted order.
type Checkout struct {
	PaymentID   string `json:"paymentId"`
	Method      Method `json:"method"`
	ProviderID  string `json:"providerId"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

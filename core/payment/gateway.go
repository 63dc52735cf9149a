package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/foodie/config"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/random"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// Gateway opens a payment for an order with one provider.
type Gateway interface {
	Begin(ctx context.Context, o order.Order) (Checkout, error)
}

type Stripe struct {
	api *stripecl.API
	cfg config.Stripe
}

func NewStripe(api *stripecl.API, cfg config.Stripe) *Stripe {
	return &Stripe{api: api, cfg: cfg}
}

// Begin creates a Checkout session. Amounts are sent in cents and prices
// already include tax.
func (s *Stripe) Begin(ctx context.Context, o order.Order) (Checkout, error) {
	li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(o.Items)+1)
	for _, it := range o.Items {
		li = append(li, stripeLine(s.cfg.Currency, it.Name, it.UnitPrice, it.Quantity))
	}
	if o.ShippingCost.IsPositive() {
		li = append(li, stripeLine(s.cfg.Currency, "Delivery", o.ShippingCost, 1))
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(o.ID),
		LineItems:         li,
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, fmt.Errorf("creating stripe session: %w", err)
	}

	return Checkout{ProviderID: sess.ID, RedirectURL: sess.URL, Currency: s.cfg.Currency}, nil
}

func stripeLine(currency, name string, price decimal.Decimal, qty int) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(int64(qty)),

		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(currency),
			TaxBehavior: stripe.String("inclusive"),
			UnitAmount:  stripe.Int64(cents(price)),

			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type Paypal struct {
	client   *paypal.Client
	currency string
}

func NewPaypal(client *paypal.Client, currency string) *Paypal {
	return &Paypal{client: client, currency: currency}
}

// Begin creates a PayPal order with CAPTURE intent. The shopper approves it
// at the returned link, then the client asks us to capture it.
func (p *Paypal) Begin(ctx context.Context, o order.Order) (Checkout, error) {
	items := make([]paypal.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, paypal.Item{
			Quantity: fmt.Sprint(it.Quantity),
			Name:     it.Name,

			UnitAmount: p.money(it.UnitPrice),
		})
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: o.ID,
		Items:       items,

		Amount: &paypal.PurchaseUnitAmount{
			Currency: p.currency,
			Value:    o.TotalAmount.StringFixed(2),

			Breakdown: &paypal.PurchaseUnitAmountBreakdown{
				ItemTotal: p.money(o.Subtotal),
				Shipping:  p.money(o.ShippingCost),
			},
		},
	}}

	ord, err := p.client.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
	if err != nil {
		return Checkout{}, fmt.Errorf("creating paypal order: %w", err)
	}

	co := Checkout{ProviderID: ord.ID, Currency: p.currency}
	for _, l := range ord.Links {
		if l.Rel == "approve" {
			co.RedirectURL = l.Href
		}
	}
	return co, nil
}

func (p *Paypal) money(d decimal.Decimal) *paypal.Money {
	return &paypal.Money{Currency: p.currency, Value: d.StringFixed(2)}
}

// Capture collects an approved PayPal order.
func (p *Paypal) Capture(ctx context.Context, providerID string) error {
	resp, err := p.client.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
	if err != nil {
		return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
	}

	if resp.Status != "COMPLETED" {
		return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
	}
	return nil
}

// QR payments are settled at the counter or by bank transfer. The generated
// code is shown to the shopper and an admin marks the payment captured.
type QR struct {
	currency string
}

func NewQR(currency string) *QR {
	return &QR{currency: strings.ToLower(currency)}
}

func (q *QR) Begin(ctx context.Context, o order.Order) (Checkout, error) {
	code, err := random.Reference("QR", 10)
	if err != nil {
		return Checkout{}, fmt.Errorf("generating qr code: %w", err)
	}
	return Checkout{ProviderID: code, Currency: q.currency}, nil
}

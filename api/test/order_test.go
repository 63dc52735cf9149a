package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/core/payment"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type orderTest struct {
	*TestEnv
}

var details = order.Details{
	CustomerPhone:    "+351 912 345 678",
	CustomerLocation: "Rua das Flores 12, Porto",
}

func TestOrder(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}
	mt := &menuTest{env}
	ct := &cartTest{env}

	soup := mt.createItemOK(t, "Soup", "6.00", true)
	bread := mt.createItemOK(t, "Bread", "1.00", true)

	env.expect(t, http.MethodPost, "/orders", withMethod(order.Card), nil, http.StatusUnauthorized)

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}

	env.expect(t, http.MethodPost, "/orders", withMethod(order.Card), nil, http.StatusUnprocessableEntity)

	// Paypal: 2 × 6.00 + 1.00 + 2.50 surcharge.
	ct.createItemOK(t, soup.ID)
	ct.createItemOK(t, soup.ID)
	ct.createItemOK(t, bread.ID)

	bad := withMethod(order.Paypal)
	bad.CustomerPhone = "call me"
	env.expect(t, http.MethodPost, "/orders", bad, nil, http.StatusUnprocessableEntity)

	env.Paypal.expect("15.50", false)
	res := ot.checkoutOK(t, order.Paypal)
	ct.showOK(t, 0, "0.00", "0.00")
	ot.testPaypalCapture(t, res)

	// Stripe charges in cents: 6.00 + 2.50.
	ct.createItemOK(t, soup.ID)
	env.Stripe.expect(850)
	res = ot.checkoutOK(t, order.Card)
	ot.testStripeWebhook(t, res)

	// A failing provider cancels the order and keeps the cart.
	ct.createItemOK(t, bread.ID)
	env.Paypal.expect("3.50", true)
	env.expect(t, http.MethodPost, "/orders", withMethod(order.Paypal), nil, http.StatusBadGateway)
	ct.showOK(t, 1, "1.00", "3.50")

	var mine []order.Order
	env.expect(t, http.MethodGet, "/orders", nil, &mine, http.StatusOK)
	if len(mine) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(mine))
	}
	statuses := map[order.Status]int{}
	for _, o := range mine {
		statuses[o.Status]++
	}
	if statuses[order.Paid] != 2 || statuses[order.Cancelled] != 1 {
		t.Fatalf("unexpected statuses %v", statuses)
	}

	// QR payments are confirmed by an admin.
	res = ot.checkoutOK(t, order.QR)
	Logout(env.Server)

	if err := Login(env.Server, env.AdminEmail, env.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	env.expect(t, http.MethodPut, "/admin/payments/"+res.Checkout.PaymentID+"/status",
		payment.StatusUp{Status: payment.Captured}, nil, http.StatusNoContent)
	ot.expectStatus(t, res.Order.ID, order.Paid)

	env.expect(t, http.MethodPut, "/admin/orders/"+res.Order.ID+"/status",
		order.StatusUp{Status: order.Delivered}, nil, http.StatusNoContent)
	ot.expectStatus(t, res.Order.ID, order.Delivered)

	var all []order.Order
	env.expect(t, http.MethodGet, "/admin/orders", nil, &all, http.StatusOK)
	if len(all) != 4 {
		t.Fatalf("expected 4 orders, got %d", len(all))
	}

	env.waitCounts(t, notify.Counts{
		notify.TableOrders:       4,
		notify.TablePayments:     3,
		notify.TableReservations: 0,
		notify.TableComments:     0,
	})

	env.expect(t, http.MethodPost, "/admin/counts/orders/seen", nil, nil, http.StatusNoContent)
	env.waitCounts(t, notify.Counts{
		notify.TableOrders:       0,
		notify.TablePayments:     3,
		notify.TableReservations: 0,
		notify.TableComments:     0,
	})

	env.expect(t, http.MethodDelete, "/admin/orders/"+res.Order.ID, nil, nil, http.StatusNoContent)
	env.expect(t, http.MethodGet, "/orders/"+res.Order.ID, nil, nil, http.StatusNotFound)
}

func withMethod(m order.Method) order.Details {
	d := details
	d.PaymentMethod = m
	return d
}

func (ot *orderTest) checkoutOK(t *testing.T, m order.Method) order.CheckoutResponse {
	t.Helper()

	var res order.CheckoutResponse
	ot.expect(t, http.MethodPost, "/orders", withMethod(m), &res, http.StatusCreated)

	if res.Order.Status != order.Pending || res.Checkout.ProviderID == "" {
		t.Fatalf("unexpected checkout %+v", res)
	}
	return res
}

func (ot *orderTest) expectStatus(t *testing.T, id string, status order.Status) {
	t.Helper()

	var o order.Order
	ot.expect(t, http.MethodGet, "/orders/"+id, nil, &o, http.StatusOK)
	if o.Status != status {
		t.Fatalf("order[%s]: expected status %s, got %s", id, status, o.Status)
	}
}

func (ot *orderTest) testPaypalCapture(t *testing.T, res order.CheckoutResponse) {
	t.Helper()

	ot.expect(t, http.MethodPost, "/payments/paypal/"+res.Checkout.ProviderID+"/capture", nil, nil, http.StatusNoContent)
	ot.expectStatus(t, res.Order.ID, order.Paid)
}

func (ot *orderTest) testStripeWebhook(t *testing.T, res order.CheckoutResponse) {
	t.Helper()

	obj := map[string]any{
		"id":   res.Checkout.ProviderID,
		"mode": stripe.CheckoutSessionModePayment,
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    ot.WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, ot.URL+"/payments/stripe/webhook", bytes.NewBuffer(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := ot.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't trigger stripe webhook: status code %s", w.Status)
	}

	ot.expectStatus(t, res.Order.ID, order.Paid)
}

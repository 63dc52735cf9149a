package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/foodie/api/web"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

type mockPaypal struct {
	mu            sync.Mutex
	expectedTotal string
	down          bool
	orders        int
}

func (m *mockPaypal) expect(total string, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedTotal = total
	m.down = down
}

func (m *mockPaypal) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.down {
			web.Respond(context.Background(), w, nil, http.StatusServiceUnavailable)
			return
		}

		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if len(pu.Units) != 1 || pu.Units[0].Amount.Value != m.expectedTotal {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.orders++
		id := fmt.Sprintf("paypal-%d", m.orders)
		ord := paypal.Order{
			ID:    id,
			Links: []paypal.Link{{Rel: "approve", Href: "https://paypal.test/approve/" + id}},
		}
		web.Respond(context.Background(), w, ord, http.StatusOK)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{ID: mux.Vars(r)["id"], Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

type mockStripe struct {
	mu            sync.Mutex
	expectedCents int64
	sessions      int
}

func (m *mockStripe) expect(cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedCents = cents
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		lines, ok := params["line_items"].(map[string]any)
		if !ok {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		var tot int64
		for _, li := range lines {
			it := li.(map[string]any)

			qty, err := strconv.ParseInt(it["quantity"].(string), 10, 64)
			if err != nil {
				web.Respond(context.Background(), w, nil, http.StatusBadRequest)
				return
			}

			pd := it["price_data"].(map[string]any)
			amount, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64)
			if err != nil {
				web.Respond(context.Background(), w, nil, http.StatusBadRequest)
				return
			}

			tot += qty * amount
		}

		if tot != m.expectedCents {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.sessions++
		id := fmt.Sprintf("cs_test_%d", m.sessions)
		web.Respond(context.Background(), w, map[string]any{"id": id, "url": "https://checkout.test/" + id}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

package test

import (
	"net/http"
	"testing"

	"github.com/irsalhamdi/foodie/core/cart"
)

type cartTest struct {
	*TestEnv
}

func TestCart(t *testing.T) {
	env, err := NewTestEnv(t, "cart_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	mt := &menuTest{env}
	ct := &cartTest{env}

	soup := mt.createItemOK(t, "Soup", "6.00", true)
	bread := mt.createItemOK(t, "Bread", "1.00", true)
	pie := mt.createItemOK(t, "Seasonal pie", "9.50", false)

	env.expect(t, http.MethodGet, "/cart", nil, nil, http.StatusUnauthorized)

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	ct.showOK(t, 0, "0.00", "0.00")

	ct.createItemOK(t, soup.ID)
	ct.createItemOK(t, soup.ID)
	ct.createItemOK(t, soup.ID)
	v := ct.createItemOK(t, bread.ID)
	if len(v.Items) != 2 || v.Items[0].ID != soup.ID || v.Items[0].Quantity != 3 {
		t.Fatalf("unexpected lines %+v", v.Items)
	}
	ct.showOK(t, 4, "19.00", "21.50")

	env.expect(t, http.MethodPut, "/cart/items", cart.ItemNew{ID: pie.ID}, nil, http.StatusUnprocessableEntity)

	env.expect(t, http.MethodPost, "/cart/items/"+soup.ID+"/decrease", nil, &v, http.StatusOK)
	env.expect(t, http.MethodPost, "/cart/items/"+soup.ID+"/decrease", nil, &v, http.StatusOK)
	ct.showOK(t, 2, "7.00", "9.50")

	env.expect(t, http.MethodDelete, "/cart/items/"+bread.ID, nil, &v, http.StatusOK)
	ct.showOK(t, 1, "6.00", "8.50")

	env.expect(t, http.MethodDelete, "/cart", nil, nil, http.StatusNoContent)
	ct.showOK(t, 0, "0.00", "0.00")
}

func (ct *cartTest) createItemOK(t *testing.T, id string) cart.View {
	t.Helper()

	var v cart.View
	ct.expect(t, http.MethodPut, "/cart/items", cart.ItemNew{ID: id}, &v, http.StatusOK)
	return v
}

func (ct *cartTest) showOK(t *testing.T, count int, subtotal, grandTotal string) cart.View {
	t.Helper()

	var v cart.View
	ct.expect(t, http.MethodGet, "/cart", nil, &v, http.StatusOK)

	if v.ItemCount != count || v.Subtotal != subtotal || v.GrandTotal != grandTotal {
		t.Fatalf("expected %d items, subtotal %s, total %s; got %d, %s, %s",
			count, subtotal, grandTotal, v.ItemCount, v.Subtotal, v.GrandTotal)
	}
	return v
}

// Package cart holds a shopper's line items.
//
// Cart values are immutable snapshots: every operation returns a new Cart and
// leaves its receiver untouched. Item count and subtotal are always derived
// from the lines, never stored.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Product describes what is being added, without a quantity.
type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
}

// LineItem is one product and its quantity. Quantity is always >= 1.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageRef  string          `json:"imageRef"`
	Quantity  int             `json:"quantity"`
}

// Total is UnitPrice × Quantity, unrounded.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart keeps at most one line per product id, in the order products were
// first added. The zero value is an empty cart.
type Cart struct {
	items []LineItem
}

func (c Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c Cart) Item(id string) (LineItem, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

func (c Cart) IsEmpty() bool { return len(c.items) == 0 }

// ItemCount is the sum of the line quantities.
func (c Cart) ItemCount() int {
	var n int
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

// Subtotal is Σ unitPrice × quantity in exact decimal arithmetic.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.items {
		sum = sum.Add(li.Total())
	}
	return sum
}

// Add puts one more unit of p in the cart, creating its line if needed.
func (c Cart) Add(p Product) Cart {
	items := c.Items()
	if i := c.index(p.ID); i >= 0 {
		items[i].Quantity++
		return Cart{items: items}
	}

	items = append(items, LineItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		ImageRef:  p.ImageRef,
		Quantity:  1,
	})
	return Cart{items: items}
}

// Remove drops the line for id. Removing an absent id is a no-op.
func (c Cart) Remove(id string) Cart {
	i := c.index(id)
	if i < 0 {
		return c
	}

	items := make([]LineItem, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	return Cart{items: items}
}

// Decrease takes one unit of id out of the cart. The last unit removes the
// line. Decreasing an absent id is a no-op.
func (c Cart) Decrease(id string) Cart {
	i := c.index(id)
	if i < 0 {
		return c
	}
	if c.items[i].Quantity <= 1 {
		return c.Remove(id)
	}

	items := c.Items()
	items[i].Quantity--
	return Cart{items: items}
}

// Clear returns the empty cart.
func (c Cart) Clear() Cart { return Cart{} }

func (c Cart) index(id string) int {
	for i, li := range c.items {
		if li.ID == id {
			return i
		}
	}
	return -1
}

type wireCart struct {
	Items []LineItem `json:"items"`
}

func (c Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCart{Items: c.Items()})
}

// UnmarshalJSON restores a cart, dropping lines with a non-positive quantity
// and merging duplicated ids so a damaged slot cannot break the invariants.
func (c *Cart) UnmarshalJSON(b []byte) error {
	var w wireCart
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var out Cart
	for _, li := range w.Items {
		if li.Quantity < 1 || li.ID == "" {
			continue
		}
		if i := out.index(li.ID); i >= 0 {
			out.items[i].Quantity += li.Quantity
			continue
		}
		out.items = append(out.items, li)
	}

	*c = out
	return nil
}

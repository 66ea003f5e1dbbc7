package domain

import (
	"github.com/shopspring/decimal"
)

// TaxRate is applied to the cart subtotal.
var TaxRate = decimal.RequireFromString("0.18")

type Cart struct {
	Lines []CartLine
}

// CartLine is a snapshot of the product at the time it was added plus a quantity.
// The JSON shape is the persisted cart format.
type CartLine struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quantity  int             `json:"quantity"`
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func NewCartLine(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
		Quantity:  1,
	}
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Add increments the line of the same product or appends a new line with quantity 1.
func (c *Cart) Add(p Product) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity++
			return
		}
	}

	c.Lines = append(c.Lines, NewCartLine(p))
}

func (c *Cart) Remove(productID int64) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}

	return false
}

// SetQuantity updates the quantity of a line; a quantity below 1 removes it.
func (c *Cart) SetQuantity(productID int64, quantity int) bool {
	if quantity < 1 {
		return c.Remove(productID)
	}

	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = quantity
			return true
		}
	}

	return false
}

func (c Cart) Line(productID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}

	return CartLine{}, false
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy so callers can't mutate shared state.
func (c Cart) Clone() Cart {
	if c.Lines == nil {
		return Cart{}
	}

	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)

	return Cart{Lines: lines}
}

func (c Cart) Totals() Totals {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	tax := subtotal.Mul(TaxRate)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Subtract lowers the quantities of c by the lines of paid. Lines that drop
// below 1 are removed, products not in paid are left alone.
func (c *Cart) Subtract(paid Cart) {
	lines := c.Lines[:0]
	for _, l := range c.Lines {
		if p, ok := paid.Line(l.ProductID); ok {
			l.Quantity -= p.Quantity
		}
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}

	if len(lines) == 0 {
		lines = nil
	}
	c.Lines = lines
}

// Items returns the order payload of the cart: product id and quantity per line.
func (c Cart) Items() []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, OrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	return items
}

// SameLines reports whether both carts hold the same products in the same quantities.
func (c Cart) SameLines(other Cart) bool {
	if len(c.Lines) != len(other.Lines) {
		return false
	}

	for _, l := range c.Lines {
		o, ok := other.Line(l.ProductID)
		if !ok || o.Quantity != l.Quantity || !o.Price.Equal(l.Price) {
			return false
		}
	}

	return true
}

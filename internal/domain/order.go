package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
)

type Shipping struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Complete reports whether every shipping field has a non-blank value.
func (s Shipping) Complete() bool {
	for _, v := range []string{s.Name, s.Email, s.Phone, s.Address} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}

	return true
}

// Billing returns the billing details sent with the card payment.
func (s Shipping) Billing() BillingDetails {
	return BillingDetails{Name: s.Name, Email: s.Email, Line1: s.Address}
}

// Trim drops leading whitespace the way the form inputs do.
func (s Shipping) Trim() Shipping {
	return Shipping{
		Name:    strings.TrimLeft(s.Name, " \t\r\n"),
		Email:   strings.TrimLeft(s.Email, " \t\r\n"),
		Phone:   strings.TrimLeft(s.Phone, " \t\r\n"),
		Address: strings.TrimLeft(s.Address, " \t\r\n"),
	}
}

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderRequest struct {
	CustomerName string
	Address      string
	Phone        string
	Items        []OrderItem

	// IdempotencyKey identifies the checkout attempt, sent as a request header.
	IdempotencyKey string
}

// Order is the client's view of an order created at checkout.
// The backend may return several ids; the first one is the order of record.
type Order struct {
	ID       int64
	IDs      []int64
	Cart     Cart
	Shipping Shipping
	Totals   Totals
	Status   OrderStatus

	// PaymentIntentID is set once the payment was confirmed.
	PaymentIntentID string
}

func (o Order) PaymentCaptured() bool {
	return o.PaymentIntentID != ""
}

// OrderConfirmation is the navigation state handed from checkout to the confirmation view.
type OrderConfirmation struct {
	OrderID      int64
	CustomerName string
	Total        decimal.Decimal
	Items        []OrderItem
}

type PaymentMethod struct {
	ID      string
	Billing BillingDetails
}

type BillingDetails struct {
	Name  string
	Email string
	Line1 string
}

// PendingCheckout is an unfinished checkout attempt kept in the session so a
// later run can reuse its order or finish a captured payment.
type PendingCheckout struct {
	AttemptID string `json:"attempt_id"`
	Order     Order  `json:"order"`
}

type PaymentIntent struct {
	ID     string
	Status string
}

const PaymentSucceeded = "succeeded"

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nikolayk812/storefront/internal/catalog"
	"github.com/nikolayk812/storefront/internal/confirmation"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const dateLayout = "January 2, 2006"

func money(amount decimal.Decimal, unit currency.Unit) string {
	return domain.NewMoney(amount, unit).String()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func renderCatalog(w io.Writer, v *catalog.View, unit currency.Unit) {
	products := v.Products()
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}

	if categories := v.Categories(); len(categories) > 0 {
		fmt.Fprintf(w, "Categories: All, %s\n", strings.Join(categories, ", "))
	}

	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tWISHLIST")
	for _, p := range products {
		wish := ""
		if v.InWishlist(p.ID) {
			wish = "♥"
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%.1f (%d)\t%s\n", p.ID, p.Name, p.Category, money(p.Price, unit), p.Rating, p.ReviewCount, wish)
	}
	_ = t.Flush()

	fmt.Fprintf(w, "Cart: %d item(s)\n", v.CartCount())
}

func renderProduct(w io.Writer, p domain.Product, quantities []int, unit currency.Unit) {
	fmt.Fprintf(w, "%s  [%s]\n", p.Name, p.Category)
	fmt.Fprintf(w, "Price:  %s\n", money(p.Price, unit))
	fmt.Fprintf(w, "Rating: %.1f (%d reviews)\n", p.Rating, p.ReviewCount)

	if p.InStock() {
		fmt.Fprintf(w, "Stock:  %d, order up to %d\n", p.Stock, len(quantities))
	} else {
		fmt.Fprintln(w, "Out of stock")
	}

	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}

	if len(p.Reviews) == 0 {
		return
	}

	fmt.Fprintln(w, "\nReviews:")
	for _, r := range p.Reviews {
		date := ""
		if r.CreatedAt != nil {
			date = r.CreatedAt.Format(dateLayout)
		}
		fmt.Fprintf(w, "  %s %s  %s\n", strings.Repeat("★", int(r.Rating)), date, r.Comment)
	}
}

func renderCart(w io.Writer, cart domain.Cart, unit currency.Unit) {
	if cart.IsEmpty() {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}

	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range cart.Lines {
		fmt.Fprintf(t, "%d\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, money(l.Price, unit), l.Quantity, money(l.Subtotal(), unit))
	}
	_ = t.Flush()

	totals := cart.Totals()
	t = newTable(w)
	fmt.Fprintf(t, "Subtotal:\t%s\n", money(totals.Subtotal, unit))
	fmt.Fprintf(t, "Tax (%s%%):\t%s\n", domain.TaxRate.Shift(2).String(), money(totals.Tax, unit))
	fmt.Fprintf(t, "Total:\t%s\n", money(totals.Total, unit))
	_ = t.Flush()
}

func renderWishlist(w io.Writer, entries []domain.WishlistEntry, unit currency.Unit) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Your wishlist is empty.")
		return
	}

	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tPRICE\tADDED")
	for _, e := range entries {
		added := ""
		if e.AddedAt != nil {
			added = e.AddedAt.Format(dateLayout)
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\n", e.ProductID, e.Name, money(e.Price, unit), added)
	}
	_ = t.Flush()

	fmt.Fprintf(w, "You have %d items in your wishlist\n", len(entries))
}

func renderConfirmation(w io.Writer, v *confirmation.View, unit currency.Unit) {
	order := v.Order()

	fmt.Fprintf(w, "Thank you, %s! Your order is confirmed.\n", order.CustomerName)

	t := newTable(w)
	fmt.Fprintf(t, "Order ID:\t%d\n", order.OrderID)
	fmt.Fprintf(t, "Order date:\t%s\n", v.OrderDate().Format(dateLayout))
	fmt.Fprintf(t, "Estimated delivery:\t%s\n", v.EstimatedDelivery().Format(dateLayout))
	fmt.Fprintf(t, "Total paid:\t%s\n", money(order.Total, unit))
	_ = t.Flush()

	t = newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tQTY")
	for _, l := range v.Lines() {
		fmt.Fprintf(t, "%d\t%s\t%d\n", l.Product.ID, l.Product.Name, l.Quantity)
	}
	_ = t.Flush()
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WishlistEntry is a backend wishlist record with denormalized product fields.
type WishlistEntry struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Image     string
	AddedAt   *time.Time
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Image       string
	Category    string
	Rating      float64
	ReviewCount int
	Stock       int
	Description string

	// Reviews is only filled by the detailed product endpoint.
	Reviews []Review
}

type Review struct {
	ID        int64
	Rating    float64
	Comment   string
	CreatedAt *time.Time
}

type ProductSort string

const (
	SortDefault ProductSort = ""
	SortPrice   ProductSort = "price"
	SortRating  ProductSort = "rating"
)

type ProductQuery struct {
	Category string
	Search   string
	Sort     ProductSort
}

func (p Product) InStock() bool {
	return p.Stock > 0
}

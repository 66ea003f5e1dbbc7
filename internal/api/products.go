package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type productDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Rating      float64         `json:"rating"`
	Reviews     *int            `json:"reviews"`
	ReviewCount *int            `json:"review_count"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"image_url"`
	Description *string         `json:"description"`
	AllReviews  []reviewDTO     `json:"all_reviews"`
}

type reviewDTO struct {
	ID        int64   `json:"id"`
	Rating    float64 `json:"rating"`
	Comment   *string `json:"comment"`
	CreatedAt *string `json:"created_at"`
}

type listQuery struct {
	Search string `schema:"search,omitempty"`
	Sort   string `schema:"sort,omitempty"`
}

// ListProducts combines an optional category path segment with an optional
// search query parameter.
func (c *Client) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	path := []string{"api", "products"}
	if q.Category != "" {
		path = append(path, "category", q.Category)
	}

	var dtos []productDTO

	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		query:  listQuery{Search: q.Search, Sort: string(q.Sort)},
	}, &dtos)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}

	return mapProductsToDomain(dtos), nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return c.getProduct(ctx, "api", "products", strconv.FormatInt(id, 10))
}

// GetProductDetails returns the product with its individual reviews.
func (c *Client) GetProductDetails(ctx context.Context, id int64) (domain.Product, error) {
	return c.getProduct(ctx, "api", "products", strconv.FormatInt(id, 10), "details")
}

func (c *Client) getProduct(ctx context.Context, path ...string) (domain.Product, error) {
	var dto productDTO

	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &dto); err != nil {
		return domain.Product{}, fmt.Errorf("c.do: %w", err)
	}

	return mapProductToDomain(dto), nil
}

func mapProductToDomain(dto productDTO) domain.Product {
	p := domain.Product{
		ID:       dto.ID,
		Name:     dto.Name,
		Price:    dto.Price,
		Image:    dto.ImageURL,
		Category: dto.Category,
		Rating:   dto.Rating,
		Stock:    dto.Stock,
	}

	if p.Image == "" {
		p.Image = dto.Image
	}

	switch {
	case dto.Reviews != nil:
		p.ReviewCount = *dto.Reviews
	case dto.ReviewCount != nil:
		p.ReviewCount = *dto.ReviewCount
	}

	if dto.Description != nil {
		p.Description = *dto.Description
	}

	for _, r := range dto.AllReviews {
		review := domain.Review{
			ID:        r.ID,
			Rating:    r.Rating,
			CreatedAt: parseTimestamp(r.CreatedAt),
		}
		if r.Comment != nil {
			review.Comment = *r.Comment
		}
		p.Reviews = append(p.Reviews, review)
	}

	return p
}

func mapProductsToDomain(dtos []productDTO) []domain.Product {
	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, mapProductToDomain(dto))
	}

	return products
}

// the backend emits ISO timestamps with or without a zone
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}

	return nil
}

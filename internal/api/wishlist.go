package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type wishlistDTO struct {
	WishlistID int64           `json:"wishlist_id"`
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	AddedAt    *string         `json:"added_at"`
}

type wishlistQuery struct {
	UserID    int64 `schema:"user_id"`
	ProductID int64 `schema:"product_id,omitempty"`
}

type wishlistChange struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

func (c *Client) ListWishlist(ctx context.Context, userID int64) ([]domain.WishlistEntry, error) {
	var dtos []wishlistDTO

	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"api", "wishlist"},
		query:  wishlistQuery{UserID: userID},
	}, &dtos)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}

	entries := make([]domain.WishlistEntry, 0, len(dtos))
	for _, dto := range dtos {
		entries = append(entries, domain.WishlistEntry{
			ID:        dto.WishlistID,
			ProductID: dto.ProductID,
			Name:      dto.Name,
			Price:     dto.Price,
			Image:     dto.Image,
			AddedAt:   parseTimestamp(dto.AddedAt),
		})
	}

	return entries, nil
}

func (c *Client) InWishlist(ctx context.Context, userID, productID int64) (bool, error) {
	var resp struct {
		InWishlist bool `json:"in_wishlist"`
	}

	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"api", "wishlist", "check"},
		query:  wishlistQuery{UserID: userID, ProductID: productID},
	}, &resp)
	if err != nil {
		return false, fmt.Errorf("c.do: %w", err)
	}

	return resp.InWishlist, nil
}

func (c *Client) AddToWishlist(ctx context.Context, userID, productID int64) error {
	return c.changeWishlist(ctx, "add", userID, productID)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	return c.changeWishlist(ctx, "remove", userID, productID)
}

func (c *Client) changeWishlist(ctx context.Context, action string, userID, productID int64) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", "wishlist", action},
		body:   wishlistChange{UserID: userID, ProductID: productID},
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}

	return nil
}

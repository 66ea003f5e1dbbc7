package api

import (
	"context"
	"fmt"
	"net/http"
)

type reviewRequest struct {
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (c *Client) SubmitReview(ctx context.Context, productID int64, rating int, comment string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", "reviews"},
		body:   reviewRequest{ProductID: productID, Rating: rating, Comment: comment},
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}

	return nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nikolayk812/storefront/internal/domain"
)

type createOrderRequest struct {
	CustomerName string             `json:"customer_name"`
	Address      string             `json:"address"`
	Phone        string             `json:"phone"`
	Cart         []domain.OrderItem `json:"cart"`
}

type createOrderResponse struct {
	OrderIDs []int64 `json:"order_ids"`
}

type paymentIntentRequest struct {
	Amount int64 `json:"amount"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) ([]int64, error) {
	var resp createOrderResponse

	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", "orders"},
		body: createOrderRequest{
			CustomerName: req.CustomerName,
			Address:      req.Address,
			Phone:        req.Phone,
			Cart:         req.Items,
		},
		header: idempotencyHeader(req.IdempotencyKey),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}

	if len(resp.OrderIDs) == 0 {
		return nil, errors.New("response has no order ids")
	}

	return resp.OrderIDs, nil
}

// CreatePaymentIntent asks the backend for a payment intent of amountMinor
// minor currency units and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountMinor int64, idempotencyKey string) (string, error) {
	var resp paymentIntentResponse

	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", "pay"},
		body:   paymentIntentRequest{Amount: amountMinor},
		header: idempotencyHeader(idempotencyKey),
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("c.do: %w", err)
	}

	if resp.ClientSecret == "" {
		return "", errors.New("response has no client secret")
	}

	return resp.ClientSecret, nil
}

func (c *Client) MarkOrderPaid(ctx context.Context, orderID int64) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", "orders", strconv.FormatInt(orderID, 10), "pay"},
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}

	return nil
}

func idempotencyHeader(key string) http.Header {
	if key == "" {
		return nil
	}

	return http.Header{"Idempotency-Key": []string{key}}
}

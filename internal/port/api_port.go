package port

import (
	"context"

	"github.com/nikolayk812/storefront/internal/domain"
)

type ProductAPI interface {
	ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetProductDetails(ctx context.Context, id int64) (domain.Product, error)
}

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Register(ctx context.Context, name, email, password string) (domain.User, error)
}

type OrderAPI interface {
	// CreateOrder returns the ids of the created order records.
	CreateOrder(ctx context.Context, req domain.OrderRequest) ([]int64, error)
	// CreatePaymentIntent returns the client secret of a new payment intent.
	CreatePaymentIntent(ctx context.Context, amountMinor int64, idempotencyKey string) (string, error)
	MarkOrderPaid(ctx context.Context, orderID int64) error
}

type WishlistAPI interface {
	ListWishlist(ctx context.Context, userID int64) ([]domain.WishlistEntry, error)
	InWishlist(ctx context.Context, userID, productID int64) (bool, error)
	AddToWishlist(ctx context.Context, userID, productID int64) error
	RemoveFromWishlist(ctx context.Context, userID, productID int64) error
}

type ReviewAPI interface {
	SubmitReview(ctx context.Context, productID int64, rating int, comment string) error
}

package port

import (
	"context"

	"github.com/nikolayk812/storefront/internal/domain"
)

// PaymentConfirmer confirms a payment intent with card input, client side.
// Processor-reported failures are returned as *domain.PaymentError.
type PaymentConfirmer interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, method domain.PaymentMethod) (domain.PaymentIntent, error)
}

// Notifier shows a blocking message to the user.
type Notifier interface {
	Alert(msg string)
}

package confirmation_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nikolayk812/storefront/internal/apitest"
	"github.com/nikolayk812/storefront/internal/confirmation"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderedAt = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	backend *apitest.Backend
	history *shell.History
	notify  *apitest.Notifier
	view    *confirmation.View
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	backend := apitest.NewBackend(t)
	history := shell.NewHistory(shell.RouteOrderSuccess)
	notify := &apitest.Notifier{}
	log, _ := test.NewNullLogger()

	client := backend.Client(t)
	v := confirmation.NewView(client, client, history, notify, log,
		confirmation.WithClock(func() time.Time { return orderedAt }),
	)

	return fixture{backend: backend, history: history, notify: notify, view: v}
}

func (f fixture) order(t *testing.T, quantities ...int) domain.OrderConfirmation {
	t.Helper()

	order := domain.OrderConfirmation{OrderID: 501, CustomerName: "Asha Rao", Total: decimal.NewFromInt(295)}
	for _, q := range quantities {
		p := f.backend.AddProduct(domain.Product{Name: "Item", Price: decimal.NewFromInt(50), Stock: 5})
		order.Items = append(order.Items, domain.OrderItem{ProductID: p.ID, Quantity: q})
	}

	return order
}

func TestMountWithoutOrder(t *testing.T) {
	tests := []struct {
		name  string
		state any
	}{
		{name: "no state: ok", state: nil},
		{name: "unrelated state: ok", state: "hello"},
		{name: "no items: ok", state: domain.OrderConfirmation{OrderID: 1}},
		{name: "nil pointer: ok", state: (*domain.OrderConfirmation)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.view.Mount(t.Context(), tt.state)
			require.ErrorIs(t, err, confirmation.ErrNoOrder)

			assert.Equal(t, shell.RouteProducts, f.history.Current().Route)
			assert.Equal(t, 0, f.backend.Count(apitest.RouteProduct))
		})
	}
}

func TestMount(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, 1, 3)

	require.NoError(t, f.view.Mount(t.Context(), order))

	assert.Equal(t, order, f.view.Order())
	assert.Equal(t, 2, f.backend.Count(apitest.RouteProduct))

	lines := f.view.Lines()
	require.Len(t, lines, 2)
	for i, l := range lines {
		assert.Equal(t, order.Items[i].ProductID, l.Product.ID)
		assert.Equal(t, order.Items[i].Quantity, l.Quantity)

		d, ok := f.view.Draft(l.Product.ID)
		require.True(t, ok)
		assert.Equal(t, domain.NewReviewDraft(l.Product.ID), d)
	}

	assert.Equal(t, orderedAt, f.view.OrderDate())
	assert.Equal(t, time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC), f.view.EstimatedDelivery())
}

func TestMountFetchFails(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, 1)
	order.Items = append(order.Items, domain.OrderItem{ProductID: 9999, Quantity: 1})

	err := f.view.Mount(t.Context(), &order)
	require.Error(t, err)

	assert.Empty(t, f.view.Lines())
	assert.Equal(t, shell.RouteOrderSuccess, f.history.Current().Route)
}

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, 1, 1)
	require.NoError(t, f.view.Mount(t.Context(), order))

	first, second := order.Items[0].ProductID, order.Items[1].ProductID

	require.NoError(t, f.view.SetRating(first, 4))
	require.NoError(t, f.view.SetComment(first, "Great kettle"))
	assert.ErrorIs(t, f.view.SetRating(first, 6), domain.ErrInvalidRating)
	assert.ErrorIs(t, f.view.SetRating(first, 0), domain.ErrInvalidRating)
	assert.ErrorIs(t, f.view.SetRating(12345, 3), confirmation.ErrUnknownProduct)

	require.NoError(t, f.view.SubmitReview(t.Context(), first))
	assert.Equal(t, "Review submitted successfully!", f.notify.Last())
	assert.Equal(t, []apitest.ReviewRecord{{ProductID: first, Rating: 4, Comment: "Great kettle"}}, f.backend.Reviews())

	d, _ := f.view.Draft(first)
	assert.True(t, d.Submitted)
	assert.ErrorIs(t, f.view.SetComment(first, "changed"), domain.ErrReviewSubmitted)
	assert.ErrorIs(t, f.view.SubmitReview(t.Context(), first), domain.ErrReviewSubmitted)

	// the other draft is independent
	d, _ = f.view.Draft(second)
	assert.False(t, d.Submitted)
	assert.Equal(t, domain.DefaultRating, d.Rating)
}

func TestSubmitReviewFails(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, 1)
	require.NoError(t, f.view.Mount(t.Context(), order))
	id := order.Items[0].ProductID

	f.backend.Fail(apitest.RouteReviews, http.StatusInternalServerError, "db down")

	err := f.view.SubmitReview(t.Context(), id)

	var userErr *domain.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Failed to submit review. Please try again.", userErr.Message)
	assert.Equal(t, "Failed to submit review. Please try again.", f.notify.Last())

	d, _ := f.view.Draft(id)
	assert.False(t, d.Submitted)
	require.NoError(t, f.view.SetComment(id, "still editable"))

	assert.Equal(t, 1, f.backend.Count(apitest.RouteReviews))
}

// heldReviews holds every review post until released.
type heldReviews struct {
	entered chan struct{}
	release chan struct{}
	posted  chan int64
}

func (h *heldReviews) SubmitReview(_ context.Context, productID int64, _ int, _ string) error {
	h.entered <- struct{}{}
	<-h.release
	h.posted <- productID

	return nil
}

func TestSubmitReviewInFlight(t *testing.T) {
	backend := apitest.NewBackend(t)
	p := backend.AddProduct(domain.Product{Name: "Kettle", Price: decimal.NewFromInt(250), Stock: 5})

	reviews := &heldReviews{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
		posted:  make(chan int64, 2),
	}
	notify := &apitest.Notifier{}
	log, _ := test.NewNullLogger()
	v := confirmation.NewView(backend.Client(t), reviews, shell.NewHistory(shell.RouteOrderSuccess), notify, log)

	order := domain.OrderConfirmation{OrderID: 9, Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 1}}}
	require.NoError(t, v.Mount(t.Context(), order))

	first := make(chan error, 1)
	go func() { first <- v.SubmitReview(t.Context(), p.ID) }()
	<-reviews.entered

	assert.ErrorIs(t, v.SubmitReview(t.Context(), p.ID), confirmation.ErrSubmitting)

	close(reviews.release)
	require.NoError(t, <-first)

	assert.Len(t, reviews.posted, 1)
	d, _ := v.Draft(p.ID)
	assert.True(t, d.Submitted)
	assert.Equal(t, []string{"Review submitted successfully!"}, notify.Alerts())
	assert.ErrorIs(t, v.SubmitReview(t.Context(), p.ID), domain.ErrReviewSubmitted)
}

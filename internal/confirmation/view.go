// Package confirmation shows a completed order and collects one review per
// purchased product.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DeliveryDays = 5

const (
	msgReviewSubmitted = "Review submitted successfully!"
	msgReviewFailed    = "Failed to submit review. Please try again."
)

var (
	ErrNoOrder        = errors.New("no order to show")
	ErrUnknownProduct = errors.New("product is not part of the order")
	ErrSubmitting     = errors.New("review is being submitted")
)

// Line is one purchased product with its quantity.
type Line struct {
	Product  domain.Product
	Quantity int
}

type View struct {
	products port.ProductAPI
	reviews  port.ReviewAPI
	nav      shell.Navigator
	notify   port.Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	order     domain.OrderConfirmation
	orderedAt time.Time
	lines     []Line
	drafts    map[int64]*domain.ReviewDraft
	sending   map[int64]bool
}

type Option func(*View)

func WithClock(now func() time.Time) Option {
	return func(v *View) {
		v.now = now
	}
}

func NewView(products port.ProductAPI, reviews port.ReviewAPI, nav shell.Navigator, notify port.Notifier, log logrus.FieldLogger, opts ...Option) *View {
	v := &View{
		products: products,
		reviews:  reviews,
		nav:      nav,
		notify:   notify,
		log:      log,
		now:      time.Now,
		drafts:   map[int64]*domain.ReviewDraft{},
		sending:  map[int64]bool{},
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Mount reads the order from navigation state. Without an order, or with an
// order that has no items, it redirects to the catalog and returns ErrNoOrder.
// The purchased products are fetched in parallel and fail as a group.
func (v *View) Mount(ctx context.Context, state any) error {
	order, ok := orderFromState(state)
	if !ok || len(order.Items) == 0 {
		v.nav.Navigate(shell.RouteProducts, nil)
		return ErrNoOrder
	}

	lines := make([]Line, len(order.Items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range order.Items {
		g.Go(func() error {
			p, err := v.products.GetProduct(gctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("products.GetProduct[%d]: %w", item.ProductID, err)
			}

			lines[i] = Line{Product: p, Quantity: item.Quantity}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		v.log.WithError(err).WithField("order_id", order.OrderID).Error("fetching ordered products")
		return err
	}

	drafts := make(map[int64]*domain.ReviewDraft, len(lines))
	for _, l := range lines {
		d := domain.NewReviewDraft(l.Product.ID)
		drafts[l.Product.ID] = &d
	}

	v.mu.Lock()
	v.order = order
	v.orderedAt = v.now()
	v.lines = lines
	v.drafts = drafts
	v.mu.Unlock()

	return nil
}

func orderFromState(state any) (domain.OrderConfirmation, bool) {
	switch s := state.(type) {
	case domain.OrderConfirmation:
		return s, true
	case *domain.OrderConfirmation:
		if s != nil {
			return *s, true
		}
	}

	return domain.OrderConfirmation{}, false
}

func (v *View) Order() domain.OrderConfirmation {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.order
}

func (v *View) Lines() []Line {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]Line(nil), v.lines...)
}

func (v *View) OrderDate() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.orderedAt
}

func (v *View) EstimatedDelivery() time.Time {
	return v.OrderDate().AddDate(0, 0, DeliveryDays)
}

// Draft returns a copy of the review draft of productID.
func (v *View) Draft(productID int64) (domain.ReviewDraft, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.drafts[productID]
	if !ok {
		return domain.ReviewDraft{}, false
	}

	return *d, true
}

func (v *View) SetRating(productID int64, rating int) error {
	return v.editDraft(productID, func(d *domain.ReviewDraft) error {
		return d.SetRating(rating)
	})
}

func (v *View) SetComment(productID int64, comment string) error {
	return v.editDraft(productID, func(d *domain.ReviewDraft) error {
		return d.SetComment(comment)
	})
}

func (v *View) editDraft(productID int64, fn func(d *domain.ReviewDraft) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.drafts[productID]
	if !ok {
		return ErrUnknownProduct
	}

	return fn(d)
}

// SubmitReview posts the draft of productID. Success locks the draft; failure
// leaves it editable. Either outcome is announced to the user. A second submit
// of the same draft while one is in flight returns ErrSubmitting.
func (v *View) SubmitReview(ctx context.Context, productID int64) error {
	draft, err := v.claimDraft(productID)
	if err != nil {
		return err
	}

	err = v.reviews.SubmitReview(ctx, productID, draft.Rating, draft.Comment)

	v.mu.Lock()
	delete(v.sending, productID)
	if d, ok := v.drafts[productID]; ok && err == nil {
		d.Submitted = true
	}
	v.mu.Unlock()

	if err != nil {
		v.log.WithError(err).WithField("product_id", productID).Error("submitting review")
		v.notify.Alert(msgReviewFailed)

		return domain.NewUserError(msgReviewFailed, err)
	}

	v.notify.Alert(msgReviewSubmitted)

	return nil
}

// claimDraft marks the draft of productID as in flight and returns a copy of it.
func (v *View) claimDraft(productID int64) (domain.ReviewDraft, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.drafts[productID]
	switch {
	case !ok:
		return domain.ReviewDraft{}, ErrUnknownProduct
	case d.Submitted:
		return domain.ReviewDraft{}, domain.ErrReviewSubmitted
	case v.sending[productID]:
		return domain.ReviewDraft{}, ErrSubmitting
	}

	v.sending[productID] = true

	return *d, nil
}

// Package checkout runs a checkout attempt: order creation, payment intent,
// card confirmation and finalization.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront/internal/api"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

const (
	msgFieldsRequired = "All fields are required"
	msgCartEmpty      = "Your cart is empty"
	msgCardRequired   = "Card details are required"
	msgPaymentFailed  = "Error processing payment. Try again."
	msgNotPaid        = "Payment was not completed. Try again."
)

var (
	ErrInProgress = errors.New("checkout is already in progress")
	ErrNotPaid    = errors.New("payment was not completed")
)

type Flow struct {
	orders   port.OrderAPI
	payments port.PaymentConfirmer
	session  *shell.Session
	nav      shell.Navigator
	log      logrus.FieldLogger
	unit     currency.Unit

	mu      sync.Mutex
	state   State
	busy    bool
	err     error
	pending *domain.Order
	attempt uuid.UUID
}

func NewFlow(orders port.OrderAPI, payments port.PaymentConfirmer, session *shell.Session, nav shell.Navigator, unit currency.Unit, log logrus.FieldLogger) *Flow {
	return &Flow{
		orders:   orders,
		payments: payments,
		session:  session,
		nav:      nav,
		unit:     unit,
		log:      log,
		state:    Collecting,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Err returns the error shown with the form, nil when there is none.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

// PendingOrder returns the order created by an earlier attempt that is not
// finalized yet.
func (f *Flow) PendingOrder() (domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending == nil {
		return domain.Order{}, false
	}

	return *f.pending, true
}

// Totals returns the totals of the session cart.
func (f *Flow) Totals() domain.Totals {
	return f.session.Cart().Totals()
}

// Restore picks up the unfinished checkout a previous run left in the session.
// It does nothing while the flow already tracks an order.
func (f *Flow) Restore(ctx context.Context) error {
	stored, found, err := f.session.Checkout(ctx)
	if err != nil {
		return fmt.Errorf("session.Checkout: %w", err)
	}
	if !found {
		return nil
	}

	attempt, err := uuid.Parse(stored.AttemptID)
	if err != nil {
		attempt = uuid.New()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy || f.pending != nil {
		return nil
	}

	order := stored.Order
	f.pending = &order
	f.attempt = attempt

	f.log.WithFields(logrus.Fields{
		"attempt_id": attempt.String(),
		"order_id":   order.ID,
		"captured":   order.PaymentCaptured(),
	}).Info("restored unfinished checkout")

	return nil
}

// Submit runs one checkout attempt. Validation fails before any request is
// sent. A failed step returns the flow to Collecting with the error kept for
// display; an order created by the failed attempt is kept, in memory and in
// the session, and reused by the next attempt while cart and shipping are
// unchanged.
func (f *Flow) Submit(ctx context.Context, shipping domain.Shipping, method domain.PaymentMethod) (domain.OrderConfirmation, error) {
	shipping = shipping.Trim()
	cart := f.session.Cart()

	if method.Billing == (domain.BillingDetails{}) {
		method.Billing = shipping.Billing()
	}

	resume, attempt, abandoned, err := f.begin(shipping, cart, method)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	defer f.end()

	log := f.log.WithField("attempt_id", attempt.String())

	if abandoned {
		if err := f.session.DiscardCheckout(ctx); err != nil {
			log.WithError(err).Warn("discarding abandoned checkout")
		}
	}

	order, err := f.run(ctx, log, attempt, resume, shipping, cart, method)
	if err != nil {
		return domain.OrderConfirmation{}, f.abort(log, err)
	}

	confirmation := domain.OrderConfirmation{
		OrderID:      order.ID,
		CustomerName: order.Shipping.Name,
		Total:        order.Totals.Total,
		Items:        order.Cart.Items(),
	}

	f.forget()
	f.nav.Navigate(shell.RouteOrderSuccess, confirmation)

	return confirmation, nil
}

// begin validates the input and claims the flow for one attempt. It returns
// the unfinished order the attempt continues, nil for a fresh one, and
// whether an earlier unpaid order was abandoned.
func (f *Flow) begin(shipping domain.Shipping, cart domain.Cart, method domain.PaymentMethod) (*domain.Order, uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return nil, uuid.Nil, false, ErrInProgress
	}
	if f.state == Completed {
		f.state = Collecting
	}

	captured := f.pending != nil && f.pending.PaymentCaptured()

	if err := validate(shipping, cart, method, captured); err != nil {
		f.err = err
		return nil, uuid.Nil, false, err
	}

	f.err = nil
	f.busy = true
	abandoned := f.resolvePending(shipping, cart)

	if f.pending == nil {
		return nil, f.attempt, abandoned, nil
	}

	order := *f.pending

	return &order, f.attempt, false, nil
}

func (f *Flow) end() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.busy = false
}

// remember keeps order as the unfinished order of the attempt and stores it in
// the session for later runs.
func (f *Flow) remember(ctx context.Context, log logrus.FieldLogger, order domain.Order) {
	f.mu.Lock()
	f.pending = &order
	stored := domain.PendingCheckout{AttemptID: f.attempt.String(), Order: order}
	f.mu.Unlock()

	if err := f.session.SaveCheckout(ctx, stored); err != nil {
		log.WithError(err).Error("saving unfinished checkout")
	}
}

func (f *Flow) forget() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = nil
}

// validate checks the form. A captured payment is finalized from its order,
// so the cart may be empty by then.
func validate(shipping domain.Shipping, cart domain.Cart, method domain.PaymentMethod, captured bool) error {
	switch {
	case !shipping.Complete():
		return domain.NewUserError(msgFieldsRequired, nil)
	case cart.IsEmpty() && !captured:
		return domain.NewUserError(msgCartEmpty, nil)
	case method.ID == "":
		return domain.NewUserError(msgCardRequired, nil)
	}

	return nil
}

func (f *Flow) run(ctx context.Context, log logrus.FieldLogger, attempt uuid.UUID, order *domain.Order, shipping domain.Shipping, cart domain.Cart, method domain.PaymentMethod) (domain.Order, error) {
	if order == nil {
		if err := f.transition(SubmittingOrder); err != nil {
			return domain.Order{}, err
		}

		created, err := f.createOrder(ctx, attempt, shipping, cart)
		if err != nil {
			return domain.Order{}, err
		}
		order = &created
		f.remember(ctx, log, created)

		log.WithField("order_id", order.ID).Info("order created")
	}

	log = log.WithField("order_id", order.ID)

	if !order.PaymentCaptured() {
		if err := f.transition(RequestingIntent); err != nil {
			return domain.Order{}, err
		}

		amount := domain.NewMoney(order.Totals.Total, f.unit).MinorUnits()

		secret, err := f.orders.CreatePaymentIntent(ctx, amount, attempt.String()+"-intent")
		if err != nil {
			return domain.Order{}, fmt.Errorf("orders.CreatePaymentIntent: %w", err)
		}

		if err := f.transition(ConfirmingPayment); err != nil {
			return domain.Order{}, err
		}

		intent, err := f.payments.ConfirmCardPayment(ctx, secret, method)
		if err != nil {
			return domain.Order{}, fmt.Errorf("payments.ConfirmCardPayment: %w", err)
		}
		if intent.Status != domain.PaymentSucceeded {
			return domain.Order{}, fmt.Errorf("%w: status %s", ErrNotPaid, intent.Status)
		}
		order.PaymentIntentID = intent.ID
		f.remember(ctx, log, *order)

		log.WithField("payment_intent_id", intent.ID).Info("payment confirmed")
	}

	if err := f.transition(Finalizing); err != nil {
		return domain.Order{}, err
	}

	if order.Status != domain.OrderPaid {
		if err := f.orders.MarkOrderPaid(ctx, order.ID); err != nil {
			return domain.Order{}, fmt.Errorf("orders.MarkOrderPaid: %w", err)
		}
		order.Status = domain.OrderPaid
		f.remember(ctx, log, *order)
	}

	if err := f.session.FinishCheckout(ctx, order.Cart); err != nil {
		return domain.Order{}, fmt.Errorf("session.FinishCheckout: %w", err)
	}

	if err := f.transition(Completed); err != nil {
		return domain.Order{}, err
	}

	return *order, nil
}

// resolvePending decides what an earlier unfinished order means for this
// attempt. A captured payment is always finalized. An unpaid order is reused
// for the same cart and shipping details and abandoned otherwise.
//
// callers hold f.mu
func (f *Flow) resolvePending(shipping domain.Shipping, cart domain.Cart) bool {
	switch {
	case f.pending == nil:
		f.attempt = uuid.New()
		return false
	case f.pending.PaymentCaptured():
		return false
	case f.pending.Cart.SameLines(cart) && f.pending.Shipping == shipping:
		return false
	}

	f.log.WithFields(logrus.Fields{
		"attempt_id": f.attempt.String(),
		"order_id":   f.pending.ID,
	}).Warn("checkout changed, abandoning unpaid order")

	f.pending = nil
	f.attempt = uuid.New()

	return true
}

func (f *Flow) createOrder(ctx context.Context, attempt uuid.UUID, shipping domain.Shipping, cart domain.Cart) (domain.Order, error) {
	ids, err := f.orders.CreateOrder(ctx, domain.OrderRequest{
		CustomerName:   shipping.Name,
		Address:        shipping.Address,
		Phone:          shipping.Phone,
		Items:          cart.Items(),
		IdempotencyKey: attempt.String(),
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.CreateOrder: %w", err)
	}

	return domain.Order{
		ID:       ids[0],
		IDs:      ids,
		Cart:     cart,
		Shipping: shipping,
		Totals:   cart.Totals(),
		Status:   domain.OrderCreated,
	}, nil
}

func (f *Flow) transition(to State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !canTransition(f.state, to) {
		return fmt.Errorf("cannot transition checkout from %s to %s", f.state, to)
	}

	f.state = to

	return nil
}

// abort returns the flow to Collecting and keeps a displayable error.
// Processor errors are shown verbatim, backend errors by their message.
func (f *Flow) abort(log logrus.FieldLogger, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := log.WithError(err).WithField("state", f.state.String())
	if f.pending != nil {
		entry = entry.WithField("order_id", f.pending.ID)
	}
	entry.Error("checkout failed")

	f.state = Collecting

	var paymentErr *domain.PaymentError
	switch {
	case errors.As(err, &paymentErr):
		f.err = domain.NewUserError(paymentErr.Message, err)
	case errors.Is(err, ErrNotPaid):
		f.err = domain.NewUserError(msgNotPaid, err)
	default:
		f.err = domain.NewUserError(api.Message(err, msgPaymentFailed), err)
	}

	return f.err
}

// Package shell owns the process-wide session context (current user and cart),
// the routes of the storefront and the route guard.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/session"
	"github.com/sirupsen/logrus"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Session is the single source of truth for the current user and cart.
// Every mutation is written through to the session store before it returns.
type Session struct {
	store *session.Store
	log   logrus.FieldLogger

	mu   sync.Mutex
	user *domain.User
	cart domain.Cart
}

// NewSession hydrates a session from the store. Corrupt stored values are
// discarded by the store and yield an empty cart or no user.
func NewSession(ctx context.Context, store *session.Store, log logrus.FieldLogger) (*Session, error) {
	s := &Session{store: store, log: log}

	user, found, err := store.LoadUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.LoadUser: %w", err)
	}
	if found {
		s.user = &user
	}

	cart, err := store.LoadCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.LoadCart: %w", err)
	}
	s.cart = cart

	return s, nil
}

func (s *Session) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return domain.User{}, false
	}

	return *s.user, true
}

func (s *Session) Authenticated() bool {
	_, ok := s.User()
	return ok
}

// RequireUser returns the current user or ErrNotLoggedIn.
func (s *Session) RequireUser() (domain.User, error) {
	user, ok := s.User()
	if !ok {
		return domain.User{}, ErrNotLoggedIn
	}

	return user, nil
}

func (s *Session) SetUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("store.SaveUser: %w", err)
	}
	s.user = &user

	return nil
}

// Logout ends the session: the user is dropped from memory and storage.
// The cart is kept for the next user of this client.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, session.KeyUser); err != nil {
		return fmt.Errorf("store.Remove: %w", err)
	}
	s.user = nil

	return nil
}

func (s *Session) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Clone()
}

func (s *Session) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cart.Lines)
}

// AddToCart increments the line of p, or appends a new line with quantity 1.
func (s *Session) AddToCart(ctx context.Context, p domain.Product) error {
	return s.updateCart(ctx, func(c *domain.Cart) bool {
		c.Add(p)
		return true
	})
}

func (s *Session) RemoveFromCart(ctx context.Context, productID int64) (bool, error) {
	var removed bool

	err := s.updateCart(ctx, func(c *domain.Cart) bool {
		removed = c.Remove(productID)
		return removed
	})

	return removed, err
}

// UpdateQuantity sets the quantity of a line; a quantity below 1 removes the line.
func (s *Session) UpdateQuantity(ctx context.Context, productID int64, quantity int) (bool, error) {
	var updated bool

	err := s.updateCart(ctx, func(c *domain.Cart) bool {
		updated = c.SetQuantity(productID, quantity)
		return updated
	})

	return updated, err
}

func (s *Session) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, session.KeyCart); err != nil {
		return fmt.Errorf("store.Remove: %w", err)
	}
	s.cart = domain.Cart{}

	return nil
}

// Checkout returns the unfinished checkout stored by an earlier attempt.
func (s *Session) Checkout(ctx context.Context) (domain.PendingCheckout, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, found, err := s.store.LoadCheckout(ctx)
	if err != nil {
		return domain.PendingCheckout{}, false, fmt.Errorf("store.LoadCheckout: %w", err)
	}

	return pending, found, nil
}

func (s *Session) SaveCheckout(ctx context.Context, pending domain.PendingCheckout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveCheckout(ctx, pending); err != nil {
		return fmt.Errorf("store.SaveCheckout: %w", err)
	}

	return nil
}

func (s *Session) DiscardCheckout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, session.KeyCheckout); err != nil {
		return fmt.Errorf("store.Remove: %w", err)
	}

	return nil
}

// FinishCheckout drops the stored checkout and takes the paid lines out of
// the cart. Lines added after the payment stay in the cart.
func (s *Session) FinishCheckout(ctx context.Context, paid domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	next.Subtract(paid)

	if next.IsEmpty() {
		if err := s.store.Remove(ctx, session.KeyCart, session.KeyCheckout); err != nil {
			return fmt.Errorf("store.Remove: %w", err)
		}
		s.cart = domain.Cart{}

		return nil
	}

	if err := s.store.SaveCart(ctx, next); err != nil {
		return fmt.Errorf("store.SaveCart: %w", err)
	}
	s.cart = next

	if err := s.store.Remove(ctx, session.KeyCheckout); err != nil {
		return fmt.Errorf("store.Remove: %w", err)
	}

	return nil
}

// updateCart applies fn to a copy of the cart and persists it when fn reports a change.
// The in-memory cart only changes once the store accepted the new value.
func (s *Session) updateCart(ctx context.Context, fn func(c *domain.Cart) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if !fn(&next) {
		return nil
	}

	if err := s.store.SaveCart(ctx, next); err != nil {
		return fmt.Errorf("store.SaveCart: %w", err)
	}
	s.cart = next

	return nil
}

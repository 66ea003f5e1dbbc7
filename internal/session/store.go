// Package session persists client session state (current user, current cart)
// as JSON values in a key/value store.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/sirupsen/logrus"
)

const (
	KeyUser = "user"
	KeyCart = "cart"

	// KeyCheckout holds the unfinished checkout attempt, if any.
	KeyCheckout = "checkout"
)

type Store struct {
	kv  port.SessionStore
	log logrus.FieldLogger
}

func New(kv port.SessionStore, log logrus.FieldLogger) *Store {
	return &Store{kv: kv, log: log}
}

// Get decodes the value under key into v. A value that can't be decoded is
// removed from the store and reported as absent.
func (s *Store) Get(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("kv.Get: %w", err)
	}
	if !found || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("discarding corrupt session value")

		if err := s.kv.Remove(ctx, key); err != nil {
			return false, fmt.Errorf("kv.Remove: %w", err)
		}

		return false, nil
	}

	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("kv.Set: %w", err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if err := s.kv.Remove(ctx, keys...); err != nil {
		return fmt.Errorf("kv.Remove: %w", err)
	}

	return nil
}

// LoadUser returns the stored user. A stored user without an id counts as corrupt.
func (s *Store) LoadUser(ctx context.Context) (domain.User, bool, error) {
	var user domain.User

	found, err := s.Get(ctx, KeyUser, &user)
	if err != nil || !found {
		return domain.User{}, false, err
	}

	if user.IsZero() {
		s.log.WithField("key", KeyUser).Warn("discarding stored user without id")
		return domain.User{}, false, s.Remove(ctx, KeyUser)
	}

	return user, true, nil
}

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	return s.Set(ctx, KeyUser, user)
}

func (s *Store) LoadCart(ctx context.Context) (domain.Cart, error) {
	var lines []domain.CartLine

	if _, err := s.Get(ctx, KeyCart, &lines); err != nil {
		return domain.Cart{}, err
	}

	return domain.Cart{Lines: lines}, nil
}

func (s *Store) SaveCart(ctx context.Context, cart domain.Cart) error {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}

	return s.Set(ctx, KeyCart, lines)
}

// LoadCheckout returns the stored unfinished checkout. One without an order id
// counts as corrupt.
func (s *Store) LoadCheckout(ctx context.Context) (domain.PendingCheckout, bool, error) {
	var pending domain.PendingCheckout

	found, err := s.Get(ctx, KeyCheckout, &pending)
	if err != nil || !found {
		return domain.PendingCheckout{}, false, err
	}

	if pending.Order.ID == 0 {
		s.log.WithField("key", KeyCheckout).Warn("discarding stored checkout without order")
		return domain.PendingCheckout{}, false, s.Remove(ctx, KeyCheckout)
	}

	return pending, true, nil
}

func (s *Store) SaveCheckout(ctx context.Context, pending domain.PendingCheckout) error {
	return s.Set(ctx, KeyCheckout, pending)
}

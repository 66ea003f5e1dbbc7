// Package wishlist lists and prunes the current user's wishlist.
package wishlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
)

const (
	msgLoginRequired = "Please login to view wishlist"
	msgLoadFailed    = "Failed to load wishlist"
	msgRemoveFailed  = "Failed to remove from wishlist"
)

type View struct {
	api     port.WishlistAPI
	session *shell.Session
	notify  port.Notifier
	log     logrus.FieldLogger

	mu      sync.Mutex
	entries []domain.WishlistEntry
	lastErr error
}

func NewView(wishlistAPI port.WishlistAPI, session *shell.Session, notify port.Notifier, log logrus.FieldLogger) *View {
	return &View{
		api:     wishlistAPI,
		session: session,
		notify:  notify,
		log:     log,
	}
}

// Load fetches every wishlist entry of the current user.
func (v *View) Load(ctx context.Context) error {
	user, err := v.session.RequireUser()
	if err != nil {
		return v.fail(domain.NewUserError(msgLoginRequired, err))
	}

	entries, err := v.api.ListWishlist(ctx, user.ID)
	if err != nil {
		v.log.WithError(err).WithField("user_id", user.ID).Error("fetching wishlist")
		return v.fail(domain.NewUserError(msgLoadFailed, err))
	}

	v.mu.Lock()
	v.entries = entries
	v.lastErr = nil
	v.mu.Unlock()

	return nil
}

func (v *View) fail(err error) error {
	v.mu.Lock()
	v.lastErr = err
	v.mu.Unlock()

	return err
}

func (v *View) Entries() []domain.WishlistEntry {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]domain.WishlistEntry(nil), v.entries...)
}

// Err returns the error of the last load, nil after a successful one.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lastErr
}

// Remove deletes productID from the wishlist and reloads the whole list.
func (v *View) Remove(ctx context.Context, productID int64) error {
	user, err := v.session.RequireUser()
	if err != nil {
		return domain.NewUserError(msgLoginRequired, err)
	}

	if err := v.api.RemoveFromWishlist(ctx, user.ID, productID); err != nil {
		v.log.WithError(err).WithField("product_id", productID).Error("removing from wishlist")
		v.notify.Alert(msgRemoveFailed)

		return domain.NewUserError(msgRemoveFailed, err)
	}

	return v.Load(ctx)
}

// AddToCart only acknowledges the request; the session cart is left untouched.
func (v *View) AddToCart(entry domain.WishlistEntry) {
	v.notify.Alert(fmt.Sprintf("Added %s to cart!", entry.Name))
}

package wishlist_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nikolayk812/storefront/internal/apitest"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/wishlist"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var user = domain.User{ID: 7, Name: "Asha", Email: "asha@example.com"}

func newView(t *testing.T, u *domain.User) (*wishlist.View, *apitest.Backend, *apitest.Notifier) {
	t.Helper()

	backend := apitest.NewBackend(t)
	s, _ := apitest.NewSession(t, u)
	notify := &apitest.Notifier{}
	log, _ := test.NewNullLogger()

	return wishlist.NewView(backend.Client(t), s, notify, log), backend, notify
}

func userMessage(t *testing.T, err error) string {
	t.Helper()

	var userErr *domain.UserError
	require.True(t, errors.As(err, &userErr), "error %v is not a UserError", err)

	return userErr.Message
}

func TestLoad(t *testing.T) {
	t.Run("anonymous: error", func(t *testing.T) {
		v, backend, _ := newView(t, nil)

		err := v.Load(t.Context())
		assert.Equal(t, "Please login to view wishlist", userMessage(t, err))
		assert.Equal(t, err, v.Err())
		assert.Equal(t, 0, backend.Count(apitest.RouteWishlist))
	})

	t.Run("entries: ok", func(t *testing.T) {
		v, backend, _ := newView(t, &user)
		p := backend.AddProduct(domain.Product{Name: "Lamp", Price: decimal.RequireFromString("30.50"), Image: "lamp.jpg"})
		other := backend.AddProduct(domain.Product{Name: "Rug", Price: decimal.NewFromInt(80)})
		backend.AddToWishlist(user.ID, p.ID)
		backend.AddToWishlist(user.ID+1, other.ID)

		require.NoError(t, v.Load(t.Context()))
		assert.NoError(t, v.Err())

		entries := v.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, p.ID, entries[0].ProductID)
		assert.Equal(t, "Lamp", entries[0].Name)
		assert.True(t, p.Price.Equal(entries[0].Price))
		assert.NotNil(t, entries[0].AddedAt)
	})

	t.Run("backend failure: error", func(t *testing.T) {
		v, backend, _ := newView(t, &user)
		backend.Fail(apitest.RouteWishlist, http.StatusInternalServerError, "boom")

		err := v.Load(t.Context())
		assert.Equal(t, "Failed to load wishlist", userMessage(t, err))
	})
}

func TestRemove(t *testing.T) {
	v, backend, notify := newView(t, &user)
	a := backend.AddProduct(domain.Product{Name: "Lamp", Price: decimal.NewFromInt(30)})
	b := backend.AddProduct(domain.Product{Name: "Rug", Price: decimal.NewFromInt(80)})
	backend.AddToWishlist(user.ID, a.ID)
	backend.AddToWishlist(user.ID, b.ID)

	require.NoError(t, v.Load(t.Context()))
	require.Len(t, v.Entries(), 2)

	require.NoError(t, v.Remove(t.Context(), a.ID))

	entries := v.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, b.ID, entries[0].ProductID)
	assert.False(t, backend.InWishlist(user.ID, a.ID))
	assert.Equal(t, 2, backend.Count(apitest.RouteWishlist))

	// removing an entry that is gone fails without reloading
	err := v.Remove(t.Context(), a.ID)
	assert.Equal(t, "Failed to remove from wishlist", userMessage(t, err))
	assert.Equal(t, "Failed to remove from wishlist", notify.Last())
	assert.Equal(t, 2, backend.Count(apitest.RouteWishlist))
}

func TestAddToCartIsAcknowledgementOnly(t *testing.T) {
	v, _, notify := newView(t, &user)

	v.AddToCart(domain.WishlistEntry{ProductID: 3, Name: "Lamp"})

	assert.Equal(t, []string{"Added Lamp to cart!"}, notify.Alerts())
}

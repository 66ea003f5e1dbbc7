package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/storefront/internal/apitest"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/session"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func setup(t *testing.T) *apitest.Backend {
	t.Helper()

	backend := apitest.NewBackend(t)

	t.Setenv("STOREFRONT_API_URL", backend.URL())
	t.Setenv("STOREFRONT_SESSION_BACKEND", "file")
	t.Setenv("STOREFRONT_SESSION_DIR", t.TempDir())
	t.Setenv("STOREFRONT_CURRENCY", "INR")
	t.Setenv("STOREFRONT_SEARCH_DEBOUNCE", "10ms")
	t.Setenv("LOG_LEVEL", "panic")

	return backend
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := run(t.Context(), args, strings.NewReader(stdin), &out)

	return out.String(), err
}

func TestRunUsage(t *testing.T) {
	setup(t)

	out, err := runCommand(t, "")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "usage: storefront")

	_, err = runCommand(t, "", "dance")
	assert.Error(t, err)
}

func TestRunGuard(t *testing.T) {
	setup(t)

	for _, cmd := range []string{"products", "cart", "wishlist", "checkout"} {
		_, err := runCommand(t, "", cmd)
		assert.ErrorIs(t, err, shell.ErrNotLoggedIn, cmd)
	}
}

func TestRunShopping(t *testing.T) {
	backend := setup(t)
	backend.AddUser("Asha", "asha@example.com", "secret1")
	kettle := backend.AddProduct(domain.Product{Name: "Kettle", Price: decimal.NewFromInt(250), Category: "Home", Stock: 4})
	backend.AddProduct(domain.Product{Name: "Lamp", Price: decimal.NewFromInt(45), Category: "Home", Stock: 2})

	out, err := runCommand(t, "", "login", "-email", "asha@example.com", "-password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", displayError(err))
	assert.Empty(t, out)

	out, err = runCommand(t, "", "login", "-email", "asha@example.com", "-password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Asha!")

	out, err = runCommand(t, "", "login", "-email", "asha@example.com", "-password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Already logged in as Asha")
	assert.Equal(t, 2, backend.Count(apitest.RouteLogin))

	out, err = runCommand(t, "", "products", "-sort", "price")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Lamp"), strings.Index(out, "Kettle"))

	id := strconv.FormatInt(kettle.ID, 10)

	out, err = runCommand(t, "", "add", "-qty", "2", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 x Kettle to cart.")

	// the cart survives between runs
	out, err = runCommand(t, "", "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Kettle")
	assert.Contains(t, out, "Tax (18%)")

	_, err = runCommand(t, "", "qty", id, "0")
	require.NoError(t, err)

	out, err = runCommand(t, "", "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")

	out, err = runCommand(t, "", "wish", id)
	require.NoError(t, err)
	assert.Contains(t, out, "added to wishlist")

	out, err = runCommand(t, "", "wishlist")
	require.NoError(t, err)
	assert.Contains(t, out, "You have 1 items in your wishlist")

	_, err = runCommand(t, "", "logout")
	require.NoError(t, err)

	_, err = runCommand(t, "", "cart")
	assert.ErrorIs(t, err, shell.ErrNotLoggedIn)
}

func TestRunSearch(t *testing.T) {
	backend := setup(t)
	backend.AddUser("Asha", "asha@example.com", "secret1")
	backend.AddProduct(domain.Product{Name: "Laptop", Price: decimal.NewFromInt(900), Stock: 1})
	backend.AddProduct(domain.Product{Name: "Lamp", Price: decimal.NewFromInt(45), Stock: 1})

	_, err := runCommand(t, "", "login", "-email", "asha@example.com", "-password", "secret1")
	require.NoError(t, err)

	out, err := runCommand(t, "l\nla\nlap\n", "search")
	require.NoError(t, err)

	assert.Contains(t, out, "Laptop")

	requests := backend.Requests(apitest.RouteProducts)
	require.NotEmpty(t, requests)
	assert.Equal(t, []string{"lap"}, requests[len(requests)-1].Query["search"])
}

func TestDisplayError(t *testing.T) {
	assert.Equal(t, "Your cart is empty", displayError(domain.NewUserError("Your cart is empty", nil)))
	assert.Equal(t, "error: boom", displayError(errors.New("boom")))
}

// fakeStripe answers payment intent confirmations, declining the first
// declines of them.
type fakeStripe struct {
	mu       sync.Mutex
	declines int
	forms    []url.Values
	auth     []string
}

func newFakeStripe(t *testing.T, declines int) *fakeStripe {
	t.Helper()

	s := &fakeStripe{declines: declines}

	r := chi.NewRouter()
	r.Post("/v1/payment_intents/{id}/confirm", func(w http.ResponseWriter, req *http.Request) {
		assert.NoError(t, req.ParseForm())

		s.mu.Lock()
		s.forms = append(s.forms, req.PostForm)
		s.auth = append(s.auth, req.Header.Get("Authorization"))
		decline := s.declines > 0
		if decline {
			s.declines--
		}
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if decline {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"code":"card_declined","message":"Your card was declined."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + chi.URLParam(req, "id") + `","status":"succeeded"}`))
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	t.Setenv("STRIPE_API_URL", server.URL)
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")

	return s
}

func (s *fakeStripe) confirms() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.forms)
}

var checkoutArgs = []string{
	"checkout",
	"-name", "Asha Rao",
	"-email", "asha@example.com",
	"-phone", "9876543210",
	"-address", "12 MG Road, Bengaluru",
	"-card", "pm_card_visa",
}

// shop logs in and fills the cart with a kettle and a mug worth 250 together.
func shop(t *testing.T, backend *apitest.Backend) (domain.Product, domain.Product) {
	t.Helper()

	backend.AddUser("Asha", "asha@example.com", "secret1")
	kettle := backend.AddProduct(domain.Product{Name: "Kettle", Price: decimal.NewFromInt(200), Category: "Home", Stock: 4})
	mug := backend.AddProduct(domain.Product{Name: "Mug", Price: decimal.NewFromInt(50), Category: "Home", Stock: 4})

	_, err := runCommand(t, "", "login", "-email", "asha@example.com", "-password", "secret1")
	require.NoError(t, err)

	for _, p := range []domain.Product{kettle, mug} {
		_, err = runCommand(t, "", "add", strconv.FormatInt(p.ID, 10))
		require.NoError(t, err)
	}

	return kettle, mug
}

func storedKey(t *testing.T, key string) bool {
	t.Helper()

	kv, err := repository.NewFile(os.Getenv("STOREFRONT_SESSION_DIR"))
	require.NoError(t, err)

	_, found, err := kv.Get(t.Context(), key)
	require.NoError(t, err)

	return found
}

func TestRunCheckout(t *testing.T) {
	backend := setup(t)
	stripe := newFakeStripe(t, 0)
	kettle, _ := shop(t, backend)

	// kettle: an out of range rating first, then 4 with a comment; mug: skipped
	out, err := runCommand(t, "9\n4\nLovely\n\n", checkoutArgs...)
	require.NoError(t, err)

	for _, amount := range []int64{250, 45, 295} {
		assert.Contains(t, out, money(decimal.NewFromInt(amount), currency.INR))
	}
	assert.Contains(t, out, "Thank you, Asha Rao! Your order is confirmed.")
	assert.Equal(t, []int64{29500}, backend.PaymentAmounts())

	assert.False(t, storedKey(t, session.KeyCart))
	assert.False(t, storedKey(t, session.KeyCheckout))

	assert.Equal(t, 2, strings.Count(out, "Rate Kettle"))
	assert.Contains(t, out, fmt.Sprintf("Enter a number from %d to %d.", domain.MinRating, domain.MaxRating))
	assert.Equal(t, 1, strings.Count(out, "Rate Mug"))
	assert.Contains(t, out, "! Review submitted successfully!")
	assert.Equal(t, []apitest.ReviewRecord{{ProductID: kettle.ID, Rating: 4, Comment: "Lovely"}}, backend.Reviews())

	require.Equal(t, 1, stripe.confirms())
	assert.Equal(t, "Bearer pk_test_123", stripe.auth[0])
	assert.Equal(t, "pm_card_visa", stripe.forms[0].Get("payment_method"))
	assert.Equal(t, "Asha Rao", stripe.forms[0].Get("payment_method_data[billing_details][name]"))

	out, err = runCommand(t, "", "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")
}

func TestRunCheckoutRetryReusesOrder(t *testing.T) {
	backend := setup(t)
	stripe := newFakeStripe(t, 1)
	shop(t, backend)

	_, err := runCommand(t, "", checkoutArgs...)
	require.Error(t, err)
	assert.Equal(t, "Your card was declined.", displayError(err))
	assert.True(t, storedKey(t, session.KeyCart))
	assert.True(t, storedKey(t, session.KeyCheckout))

	// a failed review submit keeps asking for the same product
	backend.Fail(apitest.RouteReviews, http.StatusInternalServerError, "")

	out, err := runCommand(t, "3\nmeh\n", checkoutArgs...)
	require.NoError(t, err)

	assert.Contains(t, out, "Continuing order #")
	assert.Equal(t, 1, backend.OrderCount())
	assert.Equal(t, 1, backend.Count(apitest.RouteCreateOrder))
	assert.Equal(t, 2, stripe.confirms())

	assert.Contains(t, out, "! Failed to submit review. Please try again.")
	assert.Equal(t, 2, strings.Count(out, "Rate Kettle"))
	assert.False(t, storedKey(t, session.KeyCheckout))
}

func TestRunCheckoutFinishesCapturedPayment(t *testing.T) {
	backend := setup(t)
	stripe := newFakeStripe(t, 0)
	shop(t, backend)

	backend.Fail(apitest.RouteMarkPaid, http.StatusInternalServerError, "")

	_, err := runCommand(t, "", checkoutArgs...)
	require.Error(t, err)
	assert.Equal(t, 1, stripe.confirms())
	assert.True(t, storedKey(t, session.KeyCheckout))

	backend.Recover(apitest.RouteMarkPaid)

	out, err := runCommand(t, "", checkoutArgs...)
	require.NoError(t, err)

	assert.Contains(t, out, "Thank you, Asha Rao!")
	assert.Equal(t, 1, stripe.confirms())
	assert.Equal(t, 1, backend.Count(apitest.RoutePay))
	assert.Equal(t, 2, backend.Count(apitest.RouteMarkPaid))
	assert.False(t, storedKey(t, session.KeyCart))
	assert.False(t, storedKey(t, session.KeyCheckout))
}

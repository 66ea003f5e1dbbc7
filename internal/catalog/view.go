// Package catalog lists, searches and filters products, and toggles wishlist
// membership from the product list.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nikolayk812/storefront/internal/debounce"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
)

const DefaultSearchDelay = 300 * time.Millisecond

const (
	msgLoginForWishlist = "Please login to use wishlist"
	msgWishlistFailed   = "Error updating wishlist"
)

var ErrUnknownProduct = errors.New("product is not in the catalog")

type View struct {
	products port.ProductAPI
	wishlist port.WishlistAPI
	session  *shell.Session
	notify   port.Notifier
	log      logrus.FieldLogger
	search   *debounce.Debouncer
	onLoad   func(error)

	mu         sync.Mutex
	items      []domain.Product
	categories []string
	query      domain.ProductQuery
	presence   map[int64]bool
	lastErr    error

	// seq numbers loads; only the latest one may publish its result
	seq uint64
}

type Option func(*View)

func WithSearchDelay(d time.Duration) Option {
	return func(v *View) {
		v.search = debounce.New(d)
	}
}

// WithSort sets the initial sort order.
func WithSort(sort domain.ProductSort) Option {
	return func(v *View) {
		v.query.Sort = sort
	}
}

// WithOnLoad registers a callback run after every catalog load, including
// loads fired by the search debounce.
func WithOnLoad(fn func(error)) Option {
	return func(v *View) {
		v.onLoad = fn
	}
}

func NewView(products port.ProductAPI, wishlist port.WishlistAPI, session *shell.Session, notify port.Notifier, log logrus.FieldLogger, opts ...Option) *View {
	v := &View{
		products: products,
		wishlist: wishlist,
		session:  session,
		notify:   notify,
		log:      log,
		search:   debounce.New(DefaultSearchDelay),
		presence: map[int64]bool{},
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// LoadProducts issues one list request for the category and search term, derives
// the category filter set from the result and refreshes wishlist presence.
// A load overtaken by a later one returns nil and leaves the view alone.
func (v *View) LoadProducts(ctx context.Context, category, search string) error {
	v.mu.Lock()
	v.query.Category = category
	v.query.Search = search
	v.seq++
	q, seq := v.query, v.seq
	v.mu.Unlock()

	err := v.load(ctx, seq, q)
	if errors.Is(err, errSuperseded) {
		return nil
	}

	if v.onLoad != nil {
		v.onLoad(err)
	}

	return err
}

var errSuperseded = errors.New("catalog load superseded")

func (v *View) load(ctx context.Context, seq uint64, q domain.ProductQuery) error {
	items, err := v.products.ListProducts(ctx, q)

	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()

		v.log.WithField("search", q.Search).Debug("dropping superseded catalog load")

		return errSuperseded
	}
	if err != nil {
		v.lastErr = err
	} else {
		v.items = items
		v.categories = categoriesOf(items)
		v.lastErr = nil
	}
	v.mu.Unlock()

	if err != nil {
		v.log.WithError(err).WithFields(logrus.Fields{
			"category": q.Category,
			"search":   q.Search,
		}).Error("fetching products")

		return fmt.Errorf("products.ListProducts: %w", err)
	}

	v.refreshPresence(ctx, seq, items)

	return nil
}

// SelectCategory reloads the catalog for category, keeping the current search term.
func (v *View) SelectCategory(ctx context.Context, category string) error {
	v.mu.Lock()
	search := v.query.Search
	v.mu.Unlock()

	return v.LoadProducts(ctx, category, search)
}

// SetSort reloads the catalog with a new sort order.
func (v *View) SetSort(ctx context.Context, sort domain.ProductSort) error {
	v.mu.Lock()
	v.query.Sort = sort
	category, search := v.query.Category, v.query.Search
	v.mu.Unlock()

	return v.LoadProducts(ctx, category, search)
}

// Search records a keystroke. The reload fires once the search delay passed
// without another keystroke, superseding any pending reload.
func (v *View) Search(ctx context.Context, term string) {
	v.mu.Lock()
	v.query.Search = term
	category := v.query.Category
	v.mu.Unlock()

	v.search.Trigger(func() {
		// failures are logged and kept in Err
		_ = v.LoadProducts(ctx, category, term)
	})
}

// FlushSearch runs a pending search reload now and waits for a running one.
func (v *View) FlushSearch() {
	v.search.Flush()
}

// Close cancels a pending search reload.
func (v *View) Close() {
	v.search.Stop()
}

func (v *View) Products() []domain.Product {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]domain.Product(nil), v.items...)
}

func (v *View) Categories() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]string(nil), v.categories...)
}

func (v *View) Query() domain.ProductQuery {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.query
}

// Err returns the error of the last load, nil after a successful one.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lastErr
}

func (v *View) InWishlist(productID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.presence[productID]
}

func (v *View) CartCount() int {
	return v.session.CartCount()
}

// AddToCart adds a listed product to the session cart.
func (v *View) AddToCart(ctx context.Context, productID int64) error {
	p, ok := v.product(productID)
	if !ok {
		return ErrUnknownProduct
	}

	if err := v.session.AddToCart(ctx, p); err != nil {
		return fmt.Errorf("session.AddToCart: %w", err)
	}

	return nil
}

// ToggleWishlist flips wishlist membership of productID. It needs a logged-in
// user; without one the user is prompted and nothing is sent.
func (v *View) ToggleWishlist(ctx context.Context, productID int64) error {
	user, err := v.session.RequireUser()
	if err != nil {
		v.notify.Alert(msgLoginForWishlist)
		return domain.NewUserError(msgLoginForWishlist, err)
	}

	v.mu.Lock()
	in := v.presence[productID]
	v.mu.Unlock()

	if in {
		err = v.wishlist.RemoveFromWishlist(ctx, user.ID, productID)
	} else {
		err = v.wishlist.AddToWishlist(ctx, user.ID, productID)
	}
	if err != nil {
		v.log.WithError(err).WithField("product_id", productID).Error("wishlist toggle")
		v.notify.Alert(msgWishlistFailed)

		return domain.NewUserError(msgWishlistFailed, err)
	}

	v.mu.Lock()
	v.presence[productID] = !in
	v.mu.Unlock()

	// the mutation invalidates the entry; the backend has the final word
	if current, err := v.wishlist.InWishlist(ctx, user.ID, productID); err != nil {
		v.log.WithError(err).WithField("product_id", productID).Warn("wishlist re-check")
	} else {
		v.mu.Lock()
		v.presence[productID] = current
		v.mu.Unlock()
	}

	return nil
}

// refreshPresence checks every listed product against the user's wishlist,
// one request per product. A failed check counts as absent.
func (v *View) refreshPresence(ctx context.Context, seq uint64, items []domain.Product) {
	user, ok := v.session.User()
	if !ok {
		return
	}

	presence := make(map[int64]bool, len(items))
	for _, p := range items {
		in, err := v.wishlist.InWishlist(ctx, user.ID, p.ID)
		if err != nil {
			v.log.WithError(err).WithField("product_id", p.ID).Warn("wishlist check")
		}
		presence[p.ID] = in
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if seq == v.seq {
		v.presence = presence
	}
}

func (v *View) product(id int64) (domain.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, p := range v.items {
		if p.ID == id {
			return p, true
		}
	}

	return domain.Product{}, false
}

// categoriesOf returns the distinct categories in order of first appearance.
func categoriesOf(items []domain.Product) []string {
	seen := map[string]bool{}

	var categories []string
	for _, p := range items {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}

	return categories
}

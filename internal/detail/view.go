// Package detail shows one product with its reviews and adds it to the cart.
package detail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
)

// MaxQuantity caps the quantity selector.
const MaxQuantity = 10

const msgLoadFailed = "Failed to load product details"

var (
	ErrNotLoaded       = errors.New("product is not loaded")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity is not valid")
)

type View struct {
	products port.ProductAPI
	session  *shell.Session
	nav      shell.Navigator
	log      logrus.FieldLogger

	mu      sync.Mutex
	product *domain.Product
}

func NewView(products port.ProductAPI, session *shell.Session, nav shell.Navigator, log logrus.FieldLogger) *View {
	return &View{
		products: products,
		session:  session,
		nav:      nav,
		log:      log,
	}
}

// Load fetches the product with its reviews, falling back to the basic product
// record when the detailed one is unavailable.
func (v *View) Load(ctx context.Context, id int64) (domain.Product, error) {
	p, err := v.products.GetProductDetails(ctx, id)
	if err != nil {
		v.log.WithError(err).WithField("product_id", id).Warn("product details, falling back")

		p, err = v.products.GetProduct(ctx, id)
		if err != nil {
			v.log.WithError(err).WithField("product_id", id).Error("fetching product")
			return domain.Product{}, domain.NewUserError(msgLoadFailed, err)
		}
	}

	v.mu.Lock()
	v.product = &p
	v.mu.Unlock()

	return p, nil
}

func (v *View) Product() (domain.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.product == nil {
		return domain.Product{}, false
	}

	return *v.product, true
}

// QuantityOptions returns the selectable quantities, 1 up to the stock capped
// at MaxQuantity. Nothing is selectable when out of stock.
func (v *View) QuantityOptions() []int {
	p, ok := v.Product()
	if !ok || !p.InStock() {
		return nil
	}

	limit := min(p.Stock, MaxQuantity)

	options := make([]int, 0, limit)
	for q := 1; q <= limit; q++ {
		options = append(options, q)
	}

	return options
}

// AddToCart adds quantity units one at a time, so an existing cart line is
// incremented, then navigates to the cart.
func (v *View) AddToCart(ctx context.Context, quantity int) error {
	p, ok := v.Product()
	if !ok {
		return ErrNotLoaded
	}

	if !p.InStock() {
		return ErrOutOfStock
	}

	if quantity < 1 || quantity > min(p.Stock, MaxQuantity) {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	for range quantity {
		if err := v.session.AddToCart(ctx, p); err != nil {
			return fmt.Errorf("session.AddToCart: %w", err)
		}
	}

	v.nav.Navigate(shell.RouteCart, nil)

	return nil
}

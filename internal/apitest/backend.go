// Package apitest runs an in-process fake of the storefront backend for tests.
// It mirrors the JSON shapes of the real API and records every request.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/storefront/internal/api"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

// Route names used by Fail and Count.
const (
	RouteLogin          = "POST /api/login"
	RouteRegister       = "POST /api/register"
	RouteProducts       = "GET /api/products"
	RouteCategory       = "GET /api/products/category/{category}"
	RouteProduct        = "GET /api/products/{id}"
	RouteProductDetails = "GET /api/products/{id}/details"
	RouteCreateOrder    = "POST /api/orders"
	RoutePay            = "POST /api/pay"
	RouteMarkPaid       = "POST /api/orders/{id}/pay"
	RouteReviews        = "POST /api/reviews"
	RouteWishlist       = "GET /api/wishlist"
	RouteWishlistCheck  = "GET /api/wishlist/check"
	RouteWishlistAdd    = "POST /api/wishlist/add"
	RouteWishlistRemove = "POST /api/wishlist/remove"
)

type Request struct {
	Route  string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

type ReviewRecord struct {
	ProductID int64
	Rating    int
	Comment   string
}

type failure struct {
	status  int
	message string
}

type account struct {
	user     domain.User
	password string
}

type wishlistRecord struct {
	id        int64
	userID    int64
	productID int64
	addedAt   time.Time
}

type Backend struct {
	server *httptest.Server

	mu         sync.Mutex
	products   []domain.Product
	accounts   []account
	wishlist   []wishlistRecord
	orders     map[int64]string
	reviews    []ReviewRecord
	amounts    []int64
	requests   []Request
	failures   map[string]failure
	nextID     int64
	nextSecret int
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		orders:   map[int64]string{},
		failures: map[string]failure{},
		nextID:   100,
	}

	r := chi.NewRouter()
	b.route(r, RouteLogin, b.login)
	b.route(r, RouteRegister, b.register)
	b.route(r, RouteProducts, b.listProducts)
	b.route(r, RouteCategory, b.listCategory)
	b.route(r, RouteProduct, b.getProduct)
	b.route(r, RouteProductDetails, b.getProductDetails)
	b.route(r, RouteCreateOrder, b.createOrder)
	b.route(r, RoutePay, b.pay)
	b.route(r, RouteMarkPaid, b.markPaid)
	b.route(r, RouteReviews, b.addReview)
	b.route(r, RouteWishlist, b.listWishlist)
	b.route(r, RouteWishlistCheck, b.checkWishlist)
	b.route(r, RouteWishlistAdd, b.addWishlist)
	b.route(r, RouteWishlistRemove, b.removeWishlist)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)

	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

// Client returns an API client pointed at the backend with a silent logger.
func (b *Backend) Client(t testing.TB) *api.Client {
	t.Helper()

	log, _ := test.NewNullLogger()

	c, err := api.New(b.URL(), api.WithLogger(log), api.WithHTTPClient(b.server.Client()))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}

	return c
}

// AddProduct stores p, assigning an id when it has none.
func (b *Backend) AddProduct(p domain.Product) domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.ID == 0 {
		p.ID = b.newID()
	}
	b.products = append(b.products, p)

	return p
}

func (b *Backend) AddUser(name, email, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := domain.User{ID: b.newID(), Name: name, Email: email}
	b.accounts = append(b.accounts, account{user: u, password: password})

	return u
}

func (b *Backend) AddToWishlist(userID, productID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wishlist = append(b.wishlist, wishlistRecord{id: b.newID(), userID: userID, productID: productID, addedAt: time.Now().UTC()})
}

// Fail makes every request to route answer with status and an {"error": message} body.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[route] = failure{status: status, message: message}
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.failures, route)
}

func (b *Backend) Requests(route string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Request
	for _, r := range b.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}

	return out
}

func (b *Backend) Count(route string) int {
	return len(b.Requests(route))
}

func (b *Backend) OrderStatus(id int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.orders[id]
}

func (b *Backend) OrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.orders)
}

func (b *Backend) PaymentAmounts() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]int64(nil), b.amounts...)
}

func (b *Backend) Reviews() []ReviewRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]ReviewRecord(nil), b.reviews...)
}

func (b *Backend) InWishlist(userID, productID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.findWishlist(userID, productID) >= 0
}

func (b *Backend) Product(id int64) (domain.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.findProduct(id)
	if i < 0 {
		return domain.Product{}, false
	}

	return b.products[i], true
}

func (b *Backend) route(r chi.Router, route string, h http.HandlerFunc) {
	method, pattern, _ := strings.Cut(route, " ")

	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Route:  route,
			Path:   req.URL.Path,
			Query:  req.URL.Query(),
			Header: req.Header.Clone(),
			Body:   body,
		})
		f, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			writeError(w, f.status, f.message)
			return
		}

		req.Body = io.NopCloser(strings.NewReader(string(body)))
		h(w, req)
	}))
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range b.accounts {
		if a.user.Email == in.Email && a.password == in.Password {
			writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": a.user})
			return
		}
	}

	writeError(w, http.StatusUnauthorized, "Invalid email or password")
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range b.accounts {
		if a.user.Email == in.Email {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}

	u := domain.User{ID: b.newID(), Name: in.Name, Email: in.Email}
	b.accounts = append(b.accounts, account{user: u, password: in.Password})

	writeJSON(w, http.StatusOK, map[string]any{"message": "User registered successfully", "user": u})
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	b.writeProducts(w, r, "", true)
}

func (b *Backend) listCategory(w http.ResponseWriter, r *http.Request) {
	b.writeProducts(w, r, chi.URLParam(r, "category"), false)
}

func (b *Backend) writeProducts(w http.ResponseWriter, r *http.Request, category string, full bool) {
	search := strings.ToLower(r.URL.Query().Get("search"))

	b.mu.Lock()
	var matched []domain.Product
	for _, p := range b.products {
		if category != "" && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	b.mu.Unlock()

	switch r.URL.Query().Get("sort") {
	case "price":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price.LessThan(matched[j].Price) })
	case "rating":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	}

	out := make([]map[string]any, 0, len(matched))
	for _, p := range matched {
		m := map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"price":    number(p.Price),
			"rating":   p.Rating,
			"category": p.Category,
			"image":    p.Image,
		}
		if full {
			m["reviews"] = p.ReviewCount
			m["stock"] = p.Stock
			m["description"] = p.Description
		}
		out = append(out, m)
	}

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	b.writeProduct(w, r, false)
}

func (b *Backend) getProductDetails(w http.ResponseWriter, r *http.Request) {
	b.writeProduct(w, r, true)
}

func (b *Backend) writeProduct(w http.ResponseWriter, r *http.Request, details bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	p, ok := b.Product(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	m := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"price":       number(p.Price),
		"rating":      p.Rating,
		"reviews":     p.ReviewCount,
		"category":    p.Category,
		"stock":       p.Stock,
		"image_url":   p.Image,
		"description": p.Description,
	}

	if details {
		reviews := make([]map[string]any, 0, len(p.Reviews))
		for _, rv := range p.Reviews {
			item := map[string]any{"id": rv.ID, "rating": rv.Rating, "comment": rv.Comment, "created_at": nil}
			if rv.CreatedAt != nil {
				item["created_at"] = rv.CreatedAt.Format("2006-01-02T15:04:05.999999")
			}
			reviews = append(reviews, item)
		}
		m["all_reviews"] = reviews
	}

	writeJSON(w, http.StatusOK, m)
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CustomerName string             `json:"customer_name"`
		Address      string             `json:"address"`
		Phone        string             `json:"phone"`
		Cart         []domain.OrderItem `json:"cart"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if in.CustomerName == "" || in.Address == "" || in.Phone == "" {
		writeError(w, http.StatusBadRequest, "Customer info is required")
		return
	}
	if len(in.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty or invalid")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, item := range in.Cart {
		i := b.findProduct(item.ProductID)
		if i < 0 {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Product ID %d not found", item.ProductID))
			return
		}
		if b.products[i].Stock < item.Quantity {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s out of stock", b.products[i].Name))
			return
		}
	}

	ids := make([]int64, 0, len(in.Cart))
	for _, item := range in.Cart {
		i := b.findProduct(item.ProductID)
		b.products[i].Stock -= item.Quantity

		id := b.newID()
		b.orders[id] = "Pending"
		ids = append(ids, id)
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Orders placed successfully", "order_ids": ids})
}

func (b *Backend) pay(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if in.Amount == 0 {
		writeError(w, http.StatusBadRequest, "Amount is required")
		return
	}

	b.mu.Lock()
	b.amounts = append(b.amounts, in.Amount)
	b.nextSecret++
	secret := fmt.Sprintf("pi_test%d_secret_s%d", b.nextSecret, b.nextSecret)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"client_secret": secret})
}

func (b *Backend) markPaid(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.orders[id]; !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	b.orders[id] = "Paid"

	writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("Order %d marked as Paid", id)})
}

func (b *Backend) addReview(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID *int64 `json:"product_id"`
		Rating    *int   `json:"rating"`
		Comment   string `json:"comment"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProductID == nil || in.Rating == nil {
		writeError(w, http.StatusBadRequest, "Product ID and rating are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.reviews = append(b.reviews, ReviewRecord{ProductID: *in.ProductID, Rating: *in.Rating, Comment: in.Comment})

	if i := b.findProduct(*in.ProductID); i >= 0 {
		var sum, n int
		for _, rv := range b.reviews {
			if rv.ProductID == *in.ProductID {
				sum += rv.Rating
				n++
			}
		}
		b.products[i].ReviewCount = n
		b.products[i].Rating = float64(sum) / float64(n)
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Review added successfully"})
}

func (b *Backend) listWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User ID required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []map[string]any{}
	for _, rec := range b.wishlist {
		if rec.userID != userID {
			continue
		}
		i := b.findProduct(rec.productID)
		if i < 0 {
			continue
		}
		p := b.products[i]
		out = append(out, map[string]any{
			"wishlist_id": rec.id,
			"product_id":  p.ID,
			"name":        p.Name,
			"price":       number(p.Price),
			"image":       p.Image,
			"added_at":    rec.addedAt.Format("2006-01-02T15:04:05.999999"),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) checkWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err1 := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	productID, err2 := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "User ID and Product ID required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"in_wishlist": b.InWishlist(userID, productID)})
}

type wishlistChange struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

func (b *Backend) addWishlist(w http.ResponseWriter, r *http.Request) {
	var in wishlistChange
	if !readJSON(w, r, &in) {
		return
	}
	if in.UserID == 0 || in.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "User ID and Product ID required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findWishlist(in.UserID, in.ProductID) >= 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Product already in wishlist"})
		return
	}
	if b.findProduct(in.ProductID) < 0 {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	rec := wishlistRecord{id: b.newID(), userID: in.UserID, productID: in.ProductID, addedAt: time.Now().UTC()}
	b.wishlist = append(b.wishlist, rec)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Added to wishlist", "wishlist_id": rec.id})
}

func (b *Backend) removeWishlist(w http.ResponseWriter, r *http.Request) {
	var in wishlistChange
	if !readJSON(w, r, &in) {
		return
	}
	if in.UserID == 0 || in.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "User ID and Product ID required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.findWishlist(in.UserID, in.ProductID)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Item not found in wishlist")
		return
	}
	b.wishlist = append(b.wishlist[:i], b.wishlist[i+1:]...)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Removed from wishlist"})
}

// callers hold b.mu
func (b *Backend) newID() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) findProduct(id int64) int {
	for i, p := range b.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) findWishlist(userID, productID int64) int {
	for i, rec := range b.wishlist {
		if rec.userID == userID && rec.productID == productID {
			return i
		}
	}
	return -1
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package shell

import "strconv"

type Route string

const (
	RouteHome         Route = "/"
	RouteLogin        Route = "/login"
	RouteRegister     Route = "/register"
	RouteProducts     Route = "/products"
	RouteProduct      Route = "/product"
	RouteCart         Route = "/cart"
	RouteWishlist     Route = "/wishlist"
	RouteCheckout     Route = "/checkout"
	RouteOrderSuccess Route = "/order-success"
)

// ProductRoute is the detail route of one product.
func ProductRoute(id int64) Route {
	return RouteProduct + "/" + Route(strconv.FormatInt(id, 10))
}

func (r Route) public() bool {
	return r == RouteHome || r == RouteLogin || r == RouteRegister
}

// Guard resolves the route actually rendered for route. Public routes send
// an authenticated user to the catalog; every other route sends an anonymous
// user to login. The home route shows login to anonymous users.
func Guard(route Route, authenticated bool) Route {
	switch {
	case route.public() && authenticated:
		return RouteProducts
	case route == RouteHome:
		return RouteLogin
	case route.public():
		return route
	case !authenticated:
		return RouteLogin
	default:
		return route
	}
}

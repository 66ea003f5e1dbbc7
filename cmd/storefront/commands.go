package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nikolayk812/storefront/internal/auth"
	"github.com/nikolayk812/storefront/internal/catalog"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/confirmation"
	"github.com/nikolayk812/storefront/internal/detail"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/payment"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/nikolayk812/storefront/internal/wishlist"
)

var (
	errUsage         = errors.New("no command given")
	errLoginRequired = domain.NewUserError("Please login first: storefront login -email <email> -password <password>", shell.ErrNotLoggedIn)
)

type command struct {
	route shell.Route
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":    {route: shell.RouteLogin, usage: "-email <email> -password <password>", run: runLogin},
	"register": {route: shell.RouteRegister, usage: "-name <name> -email <email> -password <pw> -confirm <pw>", run: runRegister},
	"logout":   {route: shell.RouteProducts, usage: "", run: runLogout},
	"products": {route: shell.RouteProducts, usage: "[-category <c>] [-search <q>] [-sort price|rating]", run: runProducts},
	"search":   {route: shell.RouteProducts, usage: "(reads search terms from stdin)", run: runSearch},
	"product":  {route: shell.RouteProduct, usage: "<id>", run: runProduct},
	"add":      {route: shell.RouteProduct, usage: "[-qty n] <id>", run: runAdd},
	"cart":     {route: shell.RouteCart, usage: "", run: runCart},
	"remove":   {route: shell.RouteCart, usage: "<id>", run: runRemove},
	"qty":      {route: shell.RouteCart, usage: "<id> <quantity>", run: runQuantity},
	"checkout": {route: shell.RouteCheckout, usage: "-name -email -phone -address -card <payment method id>", run: runCheckout},
	"wishlist": {route: shell.RouteWishlist, usage: "", run: runWishlist},
	"wish":     {route: shell.RouteWishlist, usage: "<id>", run: runWish},
	"unwish":   {route: shell.RouteWishlist, usage: "<id>", run: runUnwish},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: storefront <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].usage)
	}
}

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)

	return fs
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("product id[%s] is not valid", s)
	}

	return id, nil
}

// idArg parses the single product id argument of a command.
func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one product id, got %d arguments", len(args))
	}

	return parseID(args[0])
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := auth.NewView(a.client, a.session, a.history, a.log).Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome back, %s!\n", user.Name)

	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "register")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, at least 6 characters")
	confirm := fs.String("confirm", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := auth.NewView(a.client, a.session, a.history, a.log).Register(ctx, *name, *email, *password, *confirm)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", user.Name)

	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := auth.NewView(a.client, a.session, a.history, a.log).Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out.")

	return nil
}

func (a *app) catalogView(opts ...catalog.Option) *catalog.View {
	opts = append([]catalog.Option{catalog.WithSearchDelay(a.cfg.SearchDebounce)}, opts...)

	return catalog.NewView(a.client, a.client, a.session, a.notify, a.log, opts...)
}

func runProducts(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "products")
	category := fs.String("category", "", "only this category")
	search := fs.String("search", "", "name contains")
	sortBy := fs.String("sort", "", "price or rating")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := domain.ProductSort(*sortBy)
	if s != domain.SortDefault && s != domain.SortPrice && s != domain.SortRating {
		return fmt.Errorf("sort[%s] is not supported", *sortBy)
	}

	v := a.catalogView(catalog.WithSort(s))
	defer v.Close()

	if err := v.LoadProducts(ctx, *category, *search); err != nil {
		return domain.NewUserError("Failed to load products", err)
	}

	renderCatalog(a.out, v, a.cfg.Unit())

	return nil
}

func runSearch(ctx context.Context, a *app, _ []string) error {
	var v *catalog.View
	v = a.catalogView(catalog.WithOnLoad(func(err error) {
		var buf bytes.Buffer
		if err != nil {
			fmt.Fprintln(&buf, "! Failed to load products")
		} else {
			renderCatalog(&buf, v, a.cfg.Unit())
		}
		_, _ = a.out.Write(buf.Bytes())
	}))
	defer v.Close()

	fmt.Fprintln(a.out, "Type to search, one term per line. End input to finish.")

	for {
		line, ok := a.prompt("")
		if !ok {
			break
		}

		v.Search(ctx, strings.TrimSpace(line))
	}

	v.FlushSearch()

	return nil
}

func runProduct(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}

	v := detail.NewView(a.client, a.session, a.history, a.log)

	p, err := v.Load(ctx, id)
	if err != nil {
		return err
	}

	renderProduct(a.out, p, v.QuantityOptions(), a.cfg.Unit())

	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "add")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}

	v := detail.NewView(a.client, a.session, a.history, a.log)

	p, err := v.Load(ctx, id)
	if err != nil {
		return err
	}

	if err := v.AddToCart(ctx, *qty); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added %d x %s to cart.\n", *qty, p.Name)
	renderCart(a.out, a.session.Cart(), a.cfg.Unit())

	return nil
}

func runCart(_ context.Context, a *app, _ []string) error {
	renderCart(a.out, a.session.Cart(), a.cfg.Unit())
	return nil
}

func runRemove(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}

	removed, err := a.session.RemoveFromCart(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("product %d is not in the cart", id)
	}

	renderCart(a.out, a.session.Cart(), a.cfg.Unit())

	return nil
}

func runQuantity(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected a product id and a quantity")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantity[%s] is not a number", args[1])
	}

	found, err := a.session.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("product %d is not in the cart", id)
	}

	renderCart(a.out, a.session.Cart(), a.cfg.Unit())

	return nil
}

func runCheckout(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "checkout")
	var shipping domain.Shipping
	fs.StringVar(&shipping.Name, "name", "", "full name")
	fs.StringVar(&shipping.Email, "email", "", "email")
	fs.StringVar(&shipping.Phone, "phone", "", "phone")
	fs.StringVar(&shipping.Address, "address", "", "shipping address")
	card := fs.String("card", "", "payment method id, e.g. pm_card_visa")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stripe, err := payment.NewStripe(a.cfg.StripeKey,
		payment.WithBaseURL(a.cfg.StripeURL),
		payment.WithLogger(a.log),
	)
	if err != nil {
		return fmt.Errorf("payment.NewStripe: %w", err)
	}

	renderCart(a.out, a.session.Cart(), a.cfg.Unit())

	flow := checkout.NewFlow(a.client, stripe, a.session, a.history, a.cfg.Unit(), a.log)
	if err := flow.Restore(ctx); err != nil {
		return err
	}
	if order, ok := flow.PendingOrder(); ok {
		fmt.Fprintf(a.out, "Continuing order #%d.\n", order.ID)
	}

	if _, err := flow.Submit(ctx, shipping, domain.PaymentMethod{ID: *card}); err != nil {
		return err
	}

	v := confirmation.NewView(a.client, a.client, a.history, a.notify, a.log)
	if err := v.Mount(ctx, a.history.Current().State); err != nil {
		return err
	}

	renderConfirmation(a.out, v, a.cfg.Unit())

	return a.collectReviews(ctx, v)
}

// collectReviews asks for a rating and comment per purchased product.
// A blank rating skips the product; the end of input stops.
func (a *app) collectReviews(ctx context.Context, v *confirmation.View) error {
	for _, l := range v.Lines() {
		for {
			answer, ok := a.prompt(fmt.Sprintf("Rate %s %d-%d (blank to skip): ", l.Product.Name, domain.MinRating, domain.MaxRating))
			if !ok {
				return nil
			}

			answer = strings.TrimSpace(answer)
			if answer == "" {
				break
			}

			rating, err := strconv.Atoi(answer)
			if err == nil {
				err = v.SetRating(l.Product.ID, rating)
			}
			if err != nil {
				fmt.Fprintf(a.out, "Enter a number from %d to %d.\n", domain.MinRating, domain.MaxRating)
				continue
			}

			comment, ok := a.prompt("Comment: ")
			if !ok {
				return nil
			}
			if err := v.SetComment(l.Product.ID, strings.TrimSpace(comment)); err != nil {
				return err
			}

			// failures are announced and leave the draft editable
			if err := v.SubmitReview(ctx, l.Product.ID); err != nil {
				continue
			}

			break
		}
	}

	return nil
}

func runWishlist(ctx context.Context, a *app, _ []string) error {
	v := wishlist.NewView(a.client, a.session, a.notify, a.log)

	if err := v.Load(ctx); err != nil {
		return err
	}

	renderWishlist(a.out, v.Entries(), a.cfg.Unit())

	return nil
}

func runWish(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}

	v := a.catalogView()
	defer v.Close()

	if err := v.LoadProducts(ctx, "", ""); err != nil {
		return domain.NewUserError("Failed to load products", err)
	}

	if err := v.ToggleWishlist(ctx, id); err != nil {
		return err
	}

	if v.InWishlist(id) {
		fmt.Fprintf(a.out, "Product %d added to wishlist.\n", id)
	} else {
		fmt.Fprintf(a.out, "Product %d removed from wishlist.\n", id)
	}

	return nil
}

func runUnwish(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}

	v := wishlist.NewView(a.client, a.session, a.notify, a.log)

	if err := v.Remove(ctx, id); err != nil {
		return err
	}

	renderWishlist(a.out, v.Entries(), a.cfg.Unit())

	return nil
}

// Package auth logs users in and registers new accounts.
package auth

import (
	"context"
	"fmt"

	"github.com/nikolayk812/storefront/internal/api"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
)

const MinPasswordLength = 6

const (
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordShort    = "Password must be at least 6 characters"
	msgLoginFailed      = "Login failed"
	msgRegisterFailed   = "Registration failed"
)

type View struct {
	api     port.AuthAPI
	session *shell.Session
	nav     shell.Navigator
	log     logrus.FieldLogger
	onLogin func(domain.User)
}

type Option func(*View)

// WithOnLogin registers a callback invoked with the user after a successful
// login or registration.
func WithOnLogin(fn func(domain.User)) Option {
	return func(v *View) {
		v.onLogin = fn
	}
}

func NewView(authAPI port.AuthAPI, session *shell.Session, nav shell.Navigator, log logrus.FieldLogger, opts ...Option) *View {
	v := &View{
		api:     authAPI,
		session: session,
		nav:     nav,
		log:     log,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func (v *View) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := v.api.Login(ctx, email, password)
	if err != nil {
		v.log.WithError(err).Warn("login")
		return domain.User{}, domain.NewUserError(api.Message(err, msgLoginFailed), err)
	}

	if err := v.complete(ctx, user); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// Register checks the passwords locally before creating the account.
func (v *View) Register(ctx context.Context, name, email, password, confirm string) (domain.User, error) {
	if password != confirm {
		return domain.User{}, domain.NewUserError(msgPasswordMismatch, nil)
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, domain.NewUserError(msgPasswordShort, nil)
	}

	user, err := v.api.Register(ctx, name, email, password)
	if err != nil {
		v.log.WithError(err).Warn("register")
		return domain.User{}, domain.NewUserError(api.Message(err, msgRegisterFailed), err)
	}

	if err := v.complete(ctx, user); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// Logout clears the user from the session and shows the login form.
func (v *View) Logout(ctx context.Context) error {
	if err := v.session.Logout(ctx); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}

	v.nav.Navigate(shell.RouteLogin, nil)

	return nil
}

func (v *View) complete(ctx context.Context, user domain.User) error {
	if err := v.session.SetUser(ctx, user); err != nil {
		return fmt.Errorf("session.SetUser: %w", err)
	}

	if v.onLogin != nil {
		v.onLogin(user)
	}

	v.nav.Navigate(shell.RouteProducts, nil)

	return nil
}

package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/storefront/internal/apitest"
	"github.com/nikolayk812/storefront/internal/auth"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/session"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *apitest.Backend
	session  *shell.Session
	kv       port.SessionStore
	history  *shell.History
	view     *auth.View
	loggedIn []domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{backend: apitest.NewBackend(t)}
	f.session, f.kv = apitest.NewSession(t, nil)
	f.history = shell.NewHistory(shell.RouteLogin)

	log, _ := test.NewNullLogger()
	f.view = auth.NewView(f.backend.Client(t), f.session, f.history, log,
		auth.WithOnLogin(func(u domain.User) { f.loggedIn = append(f.loggedIn, u) }),
	)

	return f
}

func (f *fixture) assertLoggedIn(t *testing.T, want domain.User) {
	t.Helper()

	got, ok := f.session.User()
	require.True(t, ok)
	assert.Equal(t, want, got)

	log, _ := test.NewNullLogger()

	var stored domain.User
	found, err := session.New(f.kv, log).Get(t.Context(), session.KeyUser, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, stored)

	assert.Equal(t, []domain.User{want}, f.loggedIn)
	assert.Equal(t, shell.RouteProducts, f.history.Current().Route)
}

func (f *fixture) assertLoggedOut(t *testing.T) {
	t.Helper()

	assert.False(t, f.session.Authenticated())
	assert.Empty(t, f.loggedIn)
	assert.Equal(t, shell.RouteLogin, f.history.Current().Route)
}

func userMessage(t *testing.T, err error) string {
	t.Helper()

	var userErr *domain.UserError
	require.True(t, errors.As(err, &userErr), "error %v is not a UserError", err)

	return userErr.Message
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		password string
		fail     bool
		want     string
	}{
		{
			name:     "valid credentials: ok",
			password: "secret1",
		},
		{
			name:     "wrong password: error",
			password: "wrong",
			want:     "Invalid email or password",
		},
		{
			name:     "backend error without message: error",
			password: "secret1",
			fail:     true,
			want:     "Login failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			email := gofakeit.Email()
			registered := f.backend.AddUser(gofakeit.Name(), email, "secret1")
			if tt.fail {
				f.backend.Fail(apitest.RouteLogin, http.StatusBadGateway, "")
			}

			user, err := f.view.Login(t.Context(), email, tt.password)
			if tt.want != "" {
				assert.Equal(t, tt.want, userMessage(t, err))
				f.assertLoggedOut(t)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, registered, user)
			f.assertLoggedIn(t, registered)
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		existing bool
		want     string
		requests int
	}{
		{
			name:     "valid form: ok",
			password: "secret1",
			confirm:  "secret1",
			requests: 1,
		},
		{
			name:     "mismatch: error",
			password: "secret1",
			confirm:  "secret2",
			want:     "Passwords do not match",
		},
		{
			name:     "mismatch checked before length: error",
			password: "abc",
			confirm:  "abd",
			want:     "Passwords do not match",
		},
		{
			name:     "short password: error",
			password: "abc12",
			confirm:  "abc12",
			want:     "Password must be at least 6 characters",
		},
		{
			name:     "email taken: error",
			password: "secret1",
			confirm:  "secret1",
			existing: true,
			want:     "Email already registered",
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			name, email := gofakeit.Name(), gofakeit.Email()
			if tt.existing {
				f.backend.AddUser(name, email, "other-password")
			}

			user, err := f.view.Register(t.Context(), name, email, tt.password, tt.confirm)
			assert.Equal(t, tt.requests, f.backend.Count(apitest.RouteRegister))

			if tt.want != "" {
				assert.Equal(t, tt.want, userMessage(t, err))
				f.assertLoggedOut(t)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, name, user.Name)
			assert.Equal(t, email, user.Email)
			assert.NotZero(t, user.ID)
			f.assertLoggedIn(t, user)
		})
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	email := gofakeit.Email()
	f.backend.AddUser("Asha", email, "secret1")

	_, err := f.view.Login(t.Context(), email, "secret1")
	require.NoError(t, err)

	require.NoError(t, f.view.Logout(t.Context()))

	assert.False(t, f.session.Authenticated())
	assert.Equal(t, shell.RouteLogin, f.history.Current().Route)

	_, stored, err := f.kv.Get(t.Context(), session.KeyUser)
	require.NoError(t, err)
	assert.False(t, stored)
}

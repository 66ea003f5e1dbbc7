package apitest

import (
	"sync"
	"testing"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/session"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus/hooks/test"
)

// NewSession returns a session backed by a file store in a temporary directory,
// logged in as user when user is not nil.
func NewSession(t testing.TB, user *domain.User) (*shell.Session, port.SessionStore) {
	t.Helper()

	kv, err := repository.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("repository.NewFile: %v", err)
	}

	log, _ := test.NewNullLogger()

	s, err := shell.NewSession(t.Context(), session.New(kv, log), log)
	if err != nil {
		t.Fatalf("shell.NewSession: %v", err)
	}

	if user != nil {
		if err := s.SetUser(t.Context(), *user); err != nil {
			t.Fatalf("s.SetUser: %v", err)
		}
	}

	return s, kv
}

// Notifier records alerts. It is safe for concurrent use.
type Notifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *Notifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.alerts = append(n.alerts, msg)
}

func (n *Notifier) Alerts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.alerts...)
}

func (n *Notifier) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.alerts) == 0 {
		return ""
	}
	return n.alerts[len(n.alerts)-1]
}

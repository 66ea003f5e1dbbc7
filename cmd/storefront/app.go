package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/api"
	"github.com/nikolayk812/storefront/internal/config"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/session"
	"github.com/nikolayk812/storefront/internal/shell"
	"github.com/sirupsen/logrus"
)

type app struct {
	cfg     config.Config
	log     *logrus.Logger
	client  *api.Client
	session *shell.Session
	history *shell.History
	notify  *console
	in      *bufio.Scanner
	out     io.Writer
	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) (*app, error) {
	// search results are written from the debounce goroutine
	out = &lockedWriter{w: out}

	a := &app{
		cfg:     cfg,
		log:     cfg.NewLogger(),
		history: shell.NewHistory(shell.RouteHome),
		notify:  &console{out: out},
		in:      bufio.NewScanner(in),
		out:     out,
	}

	kv, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.session, err = shell.NewSession(ctx, session.New(kv, a.log), a.log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("shell.NewSession: %w", err)
	}

	a.client, err = api.New(cfg.APIURL, api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(a.log))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("api.New: %w", err)
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) (port.SessionStore, error) {
	switch a.cfg.SessionBackend {
	case config.SessionPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("pool.Ping: %w", err)
		}

		return repository.NewSession(pool, a.cfg.Namespace), nil
	default:
		kv, err := repository.NewFile(a.cfg.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("repository.NewFile: %w", err)
		}

		return kv, nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// dispatch resolves the command's route through the guard before running it.
func (a *app) dispatch(ctx context.Context, name string, cmd command, args []string) error {
	resolved := shell.Guard(cmd.route, a.session.Authenticated())
	a.history.Navigate(resolved, nil)

	switch {
	case resolved == cmd.route:
	case resolved == shell.RouteLogin:
		return errLoginRequired
	case resolved == shell.RouteProducts:
		user, _ := a.session.User()
		fmt.Fprintf(a.out, "Already logged in as %s. Run \"storefront logout\" first.\n", user.Name)
		return nil
	}

	a.log.WithFields(logrus.Fields{"command": name, "route": resolved}).Debug("dispatch")

	return cmd.run(ctx, a, args)
}

// prompt prints label and reads one line of input. It reports false at the
// end of input.
func (a *app) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)

	if !a.in.Scan() {
		return "", false
	}

	return a.in.Text(), true
}

// console shows alerts on the terminal.
type console struct {
	out io.Writer
}

func (c *console) Alert(msg string) {
	fmt.Fprintf(c.out, "! %s\n", msg)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}

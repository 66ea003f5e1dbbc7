package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/nikolayk812/storefront/internal/config"
	"github.com/nikolayk812/storefront/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, displayError(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	a, err := newApp(ctx, cfg, in, out)
	if err != nil {
		return err
	}
	defer a.close()

	return a.dispatch(ctx, args[0], cmd, args[1:])
}

// displayError prefers the user-facing message of err.
func displayError(err error) string {
	var userErr *domain.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}

	return "error: " + err.Error()
}

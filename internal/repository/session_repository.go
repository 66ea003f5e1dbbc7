package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/db"
	"github.com/nikolayk812/storefront/internal/port"
)

// DefaultNamespace is used when a store is created with an empty namespace.
const DefaultNamespace = "default"

type sessionRepository struct {
	q         *db.Queries
	pool      *pgxpool.Pool
	namespace string
}

// NewSession returns a session store backed by the session_entries table.
// Keys are scoped by namespace so several clients can share one database.
func NewSession(pool *pgxpool.Pool, namespace string) port.SessionStore {
	return &sessionRepository{
		q:         db.New(pool),
		pool:      pool,
		namespace: namespaceOrDefault(namespace),
	}
}

func NewSessionWithTx(tx pgx.Tx, namespace string) port.SessionStore {
	return &sessionRepository{
		q:         db.New(tx),
		pool:      nil, // use provided transaction instead
		namespace: namespaceOrDefault(namespace),
	}
}

func (r *sessionRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("key is empty")
	}

	value, err := r.q.GetEntry(ctx, db.GetEntryParams{
		Namespace: r.namespace,
		Key:       key,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("q.GetEntry: %w", err)
	}

	return value, true, nil
}

func (r *sessionRepository) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	err := r.q.UpsertEntry(ctx, db.UpsertEntryParams{
		Namespace: r.namespace,
		Key:       key,
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("q.UpsertEntry: %w", err)
	}

	return nil
}

// Remove deletes all given keys in one transaction. Missing keys are not an error.
func (r *sessionRepository) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if key == "" {
			return fmt.Errorf("key is empty")
		}
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (int64, error) {
		var deleted int64

		for _, key := range keys {
			n, err := q.DeleteEntry(ctx, db.DeleteEntryParams{
				Namespace: r.namespace,
				Key:       key,
			})
			if err != nil {
				return 0, fmt.Errorf("q.DeleteEntry[%s]: %w", key, err)
			}
			deleted += n
		}

		return deleted, nil
	})
	if err != nil {
		return fmt.Errorf("withTx: %w", err)
	}

	return nil
}

func namespaceOrDefault(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}

	return namespace
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/shared/constant"
	"thakajabe/shared/logger"

	"github.com/jmoiron/sqlx"
)

// Transactor runs a unit of work atomically. Repositories called with the
// context handed to fn take part in the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Lock takes an exclusive lock on key held until the transaction in ctx ends.
	// Callers sharing a key are serialized even when they touch no common row.
	Lock(ctx context.Context, key string) error
}

type txKey struct{}

type hooksKey struct{}

// CommitHooks collects work that must only happen once the surrounding transaction is durable.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithCommitHooks attaches a fresh hook list to ctx.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}

	return context.WithValue(ctx, hooksKey{}, hooks), hooks
}

// Run executes the collected hooks in registration order on a context that outlives the request.
func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(detached)
	}
}

func (h *CommitHooks) add(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fns = append(h.fns, fn)
}

// AfterCommit defers fn until the transaction in ctx commits. Without a transaction fn runs immediately.
// Hooks registered inside a transaction that rolls back never run.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(hooksKey{}).(*CommitHooks); ok {
		hooks.add(fn)

		return
	}

	fn(context.WithoutCancel(ctx))
}

// InTx reports whether ctx already carries a unit of work.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*CommitHooks)

	return ok
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)

	return tx
}

type transactor struct {
	db   *postgres.Connection
	otel otel.Otel
}

func NewTransactor(db *postgres.Connection, otl otel.Otel) Transactor {
	return &transactor{
		db:   db,
		otel: otl,
	}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	// nested calls join the outer transaction
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, scope := t.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".WithinTx")
	defer scope.End()

	tx, err := t.db.Write.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	txCtx, hooks := WithCommitHooks(txCtx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorWithStack(rbErr)
		}

		scope.TraceError(err)

		return err
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}

	hooks.Run(ctx)

	return nil
}

func (t *transactor) Lock(ctx context.Context, key string) error {
	ctx, scope := t.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".Lock")
	defer scope.End()

	tx := txFromContext(ctx)
	if tx == nil {
		scope.TraceError(errRequiredTx)

		return fmt.Errorf("failed to lock %s: %w", key, errRequiredTx)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to lock %s: %w", key, err)
	}

	return nil
}

// Package memory is a process-local storage backend with the same semantics as the postgres
// repositories: serialized units of work that roll back on error, constraint checks that
// surface the shared repository sentinels, and row locks that require a unit of work.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	gRepo "thakajabe/shared/repository"
)

var errRequiredTx = errors.New("row locks require a transaction in context")

type storeKey struct{}

type snapshotter interface {
	snapshot() (restore func())
}

// Store owns every table and serializes access to them. It implements repository.Transactor.
type Store struct {
	mu     sync.Mutex
	tables []snapshotter
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) register(table snapshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = append(s.tables, table)
}

func (s *Store) held(ctx context.Context) bool {
	owner, _ := ctx.Value(storeKey{}).(*Store)

	return owner == s
}

// acquire locks the store unless ctx already runs inside one of its units of work.
func (s *Store) acquire(ctx context.Context) (release func()) {
	if s.held(ctx) {
		return func() {}
	}

	s.mu.Lock()

	return s.mu.Unlock
}

// WithinTx runs fn holding the store lock. Every table is restored if fn fails or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.held(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()

	restores := make([]func(), 0, len(s.tables))
	for _, table := range s.tables {
		restores = append(restores, table.snapshot())
	}

	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	txCtx := context.WithValue(ctx, storeKey{}, s)
	txCtx, hooks := gRepo.WithCommitHooks(txCtx)

	err := func() error {
		defer func() {
			if p := recover(); p != nil {
				rollback()
				s.mu.Unlock()

				panic(p)
			}
		}()

		return fn(txCtx)
	}()
	if err != nil {
		rollback()
		s.mu.Unlock()

		return err
	}

	s.mu.Unlock()

	hooks.Run(ctx)

	return nil
}

// Lock only checks that ctx runs inside a unit of work; holding the store lock already serializes every key.
func (s *Store) Lock(ctx context.Context, key string) error {
	if !s.held(ctx) {
		return fmt.Errorf("failed to lock %s: %w", key, errRequiredTx)
	}

	return nil
}

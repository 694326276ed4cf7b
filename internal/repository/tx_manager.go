package repository

import (
	"context"
	"fmt"
	"sync"

	"supplychain/internal/apperr"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// Locker takes named, non-blocking exclusive locks. TryLock must be called
// with a transaction context; the lock is held until release is called or
// the transaction ends, whichever comes first. A held lock yields an error
// matching apperr.ErrConflict.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), err error)
}

// NewLocker returns a postgres advisory locker for postgres connections and
// an in-process keyed locker for every other dialect.
func NewLocker(db *gorm.DB) Locker {
	if db.Dialector.Name() == "postgres" {
		return &advisoryLocker{db: db}
	}
	return NewLocalLocker()
}

type advisoryLocker struct {
	db *gorm.DB
}

func (l *advisoryLocker) TryLock(ctx context.Context, key string) (func(), error) {
	var acquired bool
	if err := GetDB(ctx, l.db).Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", key).Scan(&acquired).Error; err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, apperr.Wrap(apperr.ErrConflict, "%s is locked by another operation, retry later", key)
	}
	// released by the transaction
	return func() {}, nil
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns a Locker scoped to the current process.
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]struct{})}
}

func (l *localLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, apperr.Wrap(apperr.ErrConflict, "%s is locked by another operation, retry later", key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

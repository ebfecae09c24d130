// Package memory implements the repositories on process memory. Writes are
// buffered in a transaction and applied at commit; rows touched for update
// stay locked until the transaction ends.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("transaction already closed")

// Store holds committed state shared by all repositories.
type Store struct {
	mu           sync.RWMutex
	locks        *lockTable
	accounts     map[string]*domain.Account
	transactions []*domain.Transaction
	byAccount    map[string][]*domain.Transaction
	intents      map[string]*domain.PaymentIntent
	intentRefs   map[string]string
	splits       map[string]*domain.SplitConfiguration
	outbox       []*domain.OutboxEvent
	audit        []*domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		locks:      newLockTable(),
		accounts:   make(map[string]*domain.Account),
		byAccount:  make(map[string][]*domain.Transaction),
		intents:    make(map[string]*domain.PaymentIntent),
		intentRefs: make(map[string]string),
		splits:     make(map[string]*domain.SplitConfiguration),
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTx(m.store), nil
}

// lockTable hands out one lock per key. Waiting honours ctx. An entry lives
// only while some transaction holds or waits for its key.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

func (t *lockTable) acquire(ctx context.Context, key string) error {
	t.mu.Lock()
	e, ok := t.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		t.locks[key] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		t.unref(key, e)
		t.mu.Unlock()
		return ctx.Err()
	}
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.locks[key]
	<-e.ch
	t.unref(key, e)
}

func (t *lockTable) unref(key string, e *lockEntry) {
	e.refs--
	if e.refs == 0 {
		delete(t.locks, key)
	}
}

func (t *lockTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// Tx buffers writes until Commit.
type Tx struct {
	store    *Store
	held     map[string]bool
	order    []string
	accounts map[string]*domain.Account
	intents  map[string]*domain.PaymentIntent
	checks   []func() error
	ops      []func()
	closed   bool
}

func newTx(store *Store) *Tx {
	return &Tx{
		store:    store,
		held:     make(map[string]bool),
		accounts: make(map[string]*domain.Account),
		intents:  make(map[string]*domain.PaymentIntent),
	}
}

func asTx(tx usecase.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errors.New("memory: foreign transaction")
	}
	if t.closed {
		return nil, ErrTxClosed
	}
	return t, nil
}

// lock takes key for the rest of the transaction. Re-locking is a no-op.
func (t *Tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.store.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

// Commit validates and applies buffered writes atomically.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	defer t.finish()

	if err := ctx.Err(); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, check := range t.checks {
		if err := check(); err != nil {
			return err
		}
	}

	for id, acc := range t.accounts {
		t.store.accounts[id] = acc
	}
	for id, intent := range t.intents {
		t.store.intents[id] = intent
		t.store.intentRefs[intent.ExternalReference] = id
	}
	for _, op := range t.ops {
		op()
	}

	return nil
}

// Rollback discards buffered writes. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(_ context.Context) error {
	if t.closed {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.closed = true
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.locks.release(t.order[i])
	}
	t.held = nil
	t.order = nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func cloneTransaction(tr *domain.Transaction) *domain.Transaction {
	c := *tr
	return &c
}

func cloneIntent(p *domain.PaymentIntent) *domain.PaymentIntent {
	c := *p
	c.Recipients = append([]domain.IntentRecipient(nil), p.Recipients...)
	c.TransactionIDs = append([]string(nil), p.TransactionIDs...)
	if p.Proof != nil {
		c.Proof = make(map[string]any, len(p.Proof))
		for k, v := range p.Proof {
			c.Proof[k] = v
		}
	}
	return &c
}

func cloneSplit(cfg *domain.SplitConfiguration) *domain.SplitConfiguration {
	c := *cfg
	c.Shares = append([]domain.SplitShare(nil), cfg.Shares...)
	return &c
}

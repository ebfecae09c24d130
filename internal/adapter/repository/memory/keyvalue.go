package memory

import (
	"context"
	"sync"
	"time"
)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

// KeyValue is an expiring key set used when Redis is not configured.
// It implements usecase.IdempotencyStore and usecase.DeliveryDeduper.
type KeyValue struct {
	mu      sync.Mutex
	entries map[string]kvEntry
	now     func() time.Time
}

// NewKeyValue creates an empty KeyValue.
func NewKeyValue() *KeyValue {
	return &KeyValue{
		entries: make(map[string]kvEntry),
		now:     time.Now,
	}
}

func (kv *KeyValue) get(key string) ([]byte, bool) {
	e, ok := kv.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !kv.now().Before(e.expiresAt) {
		delete(kv.entries, key)
		return nil, false
	}
	return e.value, true
}

func (kv *KeyValue) set(key string, value []byte, ttl time.Duration) {
	e := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = kv.now().Add(ttl)
	}
	kv.entries[key] = e
}

// CheckAndSet claims key unless it is already held.
func (kv *KeyValue) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if existing, ok := kv.get("idem:" + key); ok {
		return true, existing, nil
	}
	if response == nil {
		response = []byte("processing")
	}
	kv.set("idem:"+key, response, ttl)
	return false, nil, nil
}

// Update stores the final response for key.
func (kv *KeyValue) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.set("idem:"+key, response, ttl)
	return nil
}

// Release drops a claim.
func (kv *KeyValue) Release(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.entries, "idem:"+key)
	return nil
}

// FirstSeen records a delivery ID and reports whether it was new.
func (kv *KeyValue) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if _, ok := kv.get("delivery:" + id); ok {
		return false, nil
	}
	kv.set("delivery:"+id, nil, ttl)
	return true, nil
}

// Forget removes a delivery ID.
func (kv *KeyValue) Forget(ctx context.Context, id string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.entries, "delivery:"+id)
	return nil
}

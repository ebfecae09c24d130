package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/adapter/repository/memory"
)

type fakeIdempotencyStore struct {
	checkAndSetFn func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	updateFn      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, response, ttl)
	}
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, key, response, ttl)
	}
	return nil
}

func post(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ledger/usage", bytes.NewBufferString(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func TestIdempotencyMiddleware_StoreErrorIsUnavailable(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(context.Context, string, []byte, time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour)

	called := false
	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(rr, post("key-err", `{}`))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
}

func TestIdempotencyMiddleware_SkipsNonMutatingRequests(t *testing.T) {
	mw := NewIdempotencyMiddleware(&fakeIdempotencyStore{
		checkAndSetFn: func(context.Context, string, []byte, time.Duration) (bool, []byte, error) {
			t.Fatal("store should not be consulted")
			return false, nil, nil
		},
	}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set(IdempotencyKeyHeader, "key")

	called := false
	mw.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestIdempotencyMiddleware_ReplaysSuccess(t *testing.T) {
	mw := NewIdempotencyMiddleware(memory.NewKeyValue(), time.Hour)

	calls := 0
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"t1"}` + "\n"))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, post("key-1", `{}`))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, post("key-1", `{}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))
	assert.JSONEq(t, `{"id":"t1"}`, second.Body.String())
}

func TestIdempotencyMiddleware_ReleasesFailedRequests(t *testing.T) {
	mw := NewIdempotencyMiddleware(memory.NewKeyValue(), time.Hour)

	status := http.StatusUnprocessableEntity
	calls := 0
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, post("key-2", `{}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	status = http.StatusCreated
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, post("key-2", `{}`))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_InFlightConflict(t *testing.T) {
	store := memory.NewKeyValue()
	_, _, err := store.CheckAndSet(context.Background(), "POST /api/v1/ledger/usage key-3", nil, time.Hour)
	require.NoError(t, err)

	mw := NewIdempotencyMiddleware(store, time.Hour)
	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run while the key is held")
	})).ServeHTTP(rr, post("key-3", `{}`))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestIdempotencyMiddleware_KeysAreScopedByPath(t *testing.T) {
	mw := NewIdempotencyMiddleware(memory.NewKeyValue(), time.Hour)

	calls := 0
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), post("shared", `{}`))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/ledger/refunds", bytes.NewBufferString(`{}`))
	other.Header.Set(IdempotencyKeyHeader, "shared")
	h.ServeHTTP(httptest.NewRecorder(), other)

	assert.Equal(t, 2, calls)
}

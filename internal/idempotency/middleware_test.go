package idempotency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func countingHandler(calls *atomic.Int64, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if n == 1 {
			w.Write([]byte(`{"call":1}`))
		} else {
			w.Write([]byte(`{"call":"again"}`))
		}
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusCreated))

	first := post(h, "/transfers", "abc")
	second := post(h, "/transfers", "abc")

	if calls.Load() != 1 {
		t.Fatalf("handler called %d times, want 1", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("replay = %d %q, want %d %q", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get(HeaderHit) != "true" || first.Header().Get(HeaderHit) != "" {
		t.Fatal("hit header set on the wrong response")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", second.Header().Get("Content-Type"))
	}
}

func TestMiddlewareScopesKeysByPath(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	post(h, "/accounts/user1/deposit", "k")
	post(h, "/accounts/user1/withdraw", "k")
	if calls.Load() != 2 {
		t.Fatalf("handler called %d times, want 2", calls.Load())
	}
}

func TestMiddlewarePassesThrough(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	post(h, "/transfers", "")
	post(h, "/transfers", "")

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set(HeaderKey, "g")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if calls.Load() != 4 {
		t.Fatalf("handler called %d times, want 4", calls.Load())
	}
}

func TestMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusInternalServerError))

	post(h, "/transfers", "retry-me")
	post(h, "/transfers", "retry-me")
	if calls.Load() != 2 {
		t.Fatalf("handler called %d times, want 2", calls.Load())
	}
}

func TestMiddlewareStoresClientErrors(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusBadRequest))

	post(h, "/transfers", "bad")
	rec := post(h, "/transfers", "bad")
	if calls.Load() != 1 || rec.Code != http.StatusBadRequest {
		t.Fatalf("calls = %d, code = %d", calls.Load(), rec.Code)
	}
}

func TestMiddlewareConflictWhileInFlight(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	var calls atomic.Int64
	h := Middleware(store, nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	if ok, _ := store.Reserve(context.Background(), "POST /transfers busy", time.Minute); !ok {
		t.Fatal("Reserve failed")
	}
	rec := post(h, "/transfers", "busy")
	if rec.Code != http.StatusConflict || calls.Load() != 0 {
		t.Fatalf("code = %d, calls = %d", rec.Code, calls.Load())
	}
}

func TestMiddlewareSettlesKeyAfterClientDisconnect(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	h := Middleware(store, nil, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
		cancel()
	}))

	req := httptest.NewRequest(http.MethodPost, "/accounts/user1/deposit", strings.NewReader(`{"amount":"5"}`)).WithContext(ctx)
	req.Header.Set(HeaderKey, "gone")
	h.ServeHTTP(httptest.NewRecorder(), req)

	record, found, err := store.Get(context.Background(), "POST /accounts/user1/deposit gone")
	if err != nil || !found || record.Pending || record.Status != http.StatusOK {
		t.Fatalf("record = %+v, found = %v, err = %v", record, found, err)
	}

	retry := httptest.NewRequest(http.MethodPost, "/accounts/user1/deposit", strings.NewReader(`{"amount":"5"}`))
	retry.Header.Set(HeaderKey, "gone")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, retry)
	if rec.Code != http.StatusOK || rec.Header().Get(HeaderHit) != "true" || calls.Load() != 1 {
		t.Fatalf("retry code = %d, hit = %q, calls = %d", rec.Code, rec.Header().Get(HeaderHit), calls.Load())
	}
}

func TestMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/accounts/user1/deposit", strings.NewReader(body))
		req.Header.Set(HeaderKey, "same")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	send(`{"amount":"10"}`)
	if rec := send(`{"amount":"1000"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}
	if rec := send(`{"amount":"10"}`); rec.Code != http.StatusOK || rec.Header().Get(HeaderHit) != "true" {
		t.Fatalf("replay code = %d, hit = %q", rec.Code, rec.Header().Get(HeaderHit))
	}
	if calls.Load() != 1 {
		t.Fatalf("handler called %d times, want 1", calls.Load())
	}
}

func TestMiddlewareRejectsLongKey(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(NewMemoryStore(time.Hour), nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	rec := post(h, "/transfers", strings.Repeat("k", maxKeyLen+1))
	if rec.Code != http.StatusBadRequest || calls.Load() != 0 {
		t.Fatalf("code = %d, calls = %d", rec.Code, calls.Load())
	}
}

type brokenStore struct{}

func (brokenStore) Reserve(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("store down")
}
func (brokenStore) Get(context.Context, string) (Record, bool, error) { return Record{}, false, nil }
func (brokenStore) Complete(context.Context, string, Record) error    { return nil }
func (brokenStore) Release(context.Context, string) error             { return nil }

func TestMiddlewareFailsOpen(t *testing.T) {
	var calls atomic.Int64
	h := Middleware(brokenStore{}, nil, zap.NewNop())(countingHandler(&calls, http.StatusOK))

	post(h, "/transfers", "k")
	post(h, "/transfers", "k")
	if calls.Load() != 2 {
		t.Fatalf("handler called %d times, want 2", calls.Load())
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	if ok, err := s.Reserve(ctx, "k", time.Minute); !ok || err != nil {
		t.Fatalf("first Reserve = %v, %v", ok, err)
	}
	if ok, _ := s.Reserve(ctx, "k", time.Minute); ok {
		t.Fatal("second Reserve should fail")
	}
	rec, found, _ := s.Get(ctx, "k")
	if !found || !rec.Pending {
		t.Fatalf("Get after Reserve = %+v, %v", rec, found)
	}

	if err := s.Complete(ctx, "k", Record{Status: 201, Body: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	rec, _, _ = s.Get(ctx, "k")
	if rec.Pending || rec.Status != 201 || string(rec.Body) != "x" {
		t.Fatalf("Get after Complete = %+v", rec)
	}

	if err := s.Release(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatal("Release did not remove the key")
	}
}

func TestMemoryStoreReservationExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	s.Reserve(ctx, "k", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if ok, _ := s.Reserve(ctx, "k", time.Minute); !ok {
		t.Fatal("expired reservation still held the key")
	}
}

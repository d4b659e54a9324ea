package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rigforge/rigforge-backend/pkg/logger"
)

type fakeIdempotencyStore struct {
	values map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string]string{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "rf:idempotency:" + scope + ":" + id
}

func checkoutRequestWithKey(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	store := newFakeIdempotencyStore()

	calls := 0
	handler := Idempotency(store, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"order":1}}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWithKey("k1", `{"payment_method":"cod"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first call: expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWithKey("k1", `{"payment_method":"cod"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", rec.Code)
	}
	if rec.Body.String() != `{"data":{"order":1}}` {
		t.Fatalf("replay body mismatch: %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	store := newFakeIdempotencyStore()

	handler := Idempotency(store, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWithKey("k1", `{"payment_method":"cod"}`))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWithKey("k1", `{"payment_method":"wallet"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on body mismatch, got %d", rec.Code)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	handler := Idempotency(newFakeIdempotencyStore(), logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without Idempotency-Key")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWithKey("", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	ran := false
	handler := Idempotency(newFakeIdempotencyStore(), logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if !ran {
		t.Fatal("GET routes must pass through without an idempotency key")
	}
}

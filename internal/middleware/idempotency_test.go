package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/promptbox/internal/middleware"
)

// memCache is an in-memory cache.Cache for testing.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func makeTestHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Minute)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/api/forks", "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if counter != 1 {
		t.Fatalf("expected 1 call, got %d", counter)
	}
	if store.len() != 0 {
		t.Fatal("expected nothing stored without a key")
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Minute)(makeTestHandler(&counter, http.StatusCreated))

	rec1 := post(handler, "/api/forks", "key-2")
	rec2 := post(handler, "/api/forks", "key-2")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if rec2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec2.Code)
	}
	if rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("expected replayed body %q, got %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected Idempotent-Replayed header on replay")
	}
	if rec2.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected stored headers replayed")
	}
}

func TestIdempotency_ScopedByPath(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Minute)(makeTestHandler(&counter, http.StatusOK))

	post(handler, "/api/forks/a/complete", "same")
	post(handler, "/api/forks/b/complete", "same")

	if counter != 2 {
		t.Fatalf("expected 2 calls for different paths, got %d", counter)
	}
}

func TestIdempotency_ServerErrorNotStored(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Minute)(makeTestHandler(&counter, http.StatusInternalServerError))

	post(handler, "/api/forks", "key-err")
	post(handler, "/api/forks", "key-err")

	if counter != 2 {
		t.Fatalf("expected retry after 500 to reach handler, got %d calls", counter)
	}
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Minute)(makeTestHandler(&counter, http.StatusOK))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/forks", http.NoBody)
		req.Header.Set("Idempotency-Key", "key-get")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if counter != 2 {
		t.Fatalf("expected handler called for each GET, got %d", counter)
	}
}

func TestIdempotency_DifferentKeys(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Minute)(makeTestHandler(&counter, http.StatusCreated))

	post(handler, "/api/forks", "key-a")
	post(handler, "/api/forks", "key-b")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_CacheErrorFallsThrough(t *testing.T) {
	counter := 0
	store := newMemCache()
	store.getErr = errors.New("cache down")
	handler := middleware.Idempotency(store, time.Minute)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/api/forks", "key-x")

	if rec.Code != http.StatusCreated || counter != 1 {
		t.Fatalf("expected request served despite cache error, got %d/%d", rec.Code, counter)
	}
}

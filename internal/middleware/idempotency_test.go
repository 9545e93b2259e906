package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalgona/diary/pkg/jwt"
)

func newTestStore(t *testing.T, ttl time.Duration) *IdempotencyStore {
	t.Helper()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: ttl, Cleanup: time.Minute})
	t.Cleanup(store.Stop)
	return store
}

// countingHandler answers 201 with a body naming how many times it ran
func countingHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/v1/diaries/diary:"+string(rune('0'+n)))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"run":` + string(rune('0'+n)) + `,"echo":` + string(body) + `}`))
	})
}

func keyedRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

// ============================================================================
// generateKey Tests
// ============================================================================

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	const bearer = "Bearer t1"
	base := generateKey("10.0.0.1", bearer, "k1", "POST", "/v1/diaries", []byte(`{}`))
	if base != generateKey("10.0.0.1", bearer, "k1", "POST", "/v1/diaries", []byte(`{}`)) {
		t.Error("same inputs should produce the same key")
	}

	variants := []string{
		generateKey("10.0.0.2", bearer, "k1", "POST", "/v1/diaries", []byte(`{}`)),
		generateKey("10.0.0.1", "Bearer t2", "k1", "POST", "/v1/diaries", []byte(`{}`)),
		generateKey("10.0.0.1", "", "k1", "POST", "/v1/diaries", []byte(`{}`)),
		generateKey("10.0.0.1", bearer, "k2", "POST", "/v1/diaries", []byte(`{}`)),
		generateKey("10.0.0.1", bearer, "k1", "PATCH", "/v1/diaries", []byte(`{}`)),
		generateKey("10.0.0.1", bearer, "k1", "POST", "/v1/diaries/1", []byte(`{}`)),
		generateKey("10.0.0.1", bearer, "k1", "POST", "/v1/diaries", []byte(`{"a":1}`)),
		// Field boundaries matter
		generateKey("10.0.0.1", "Bearer t", "1k1", "POST", "/v1/diaries", []byte(`{}`)),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should differ from base key", i)
		}
	}
}

// ============================================================================
// Idempotency Middleware Tests
// ============================================================================

func TestIdempotency_PassesThroughWithoutKeyOrForOtherMethods(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)
	var calls int32
	h := Idempotency(store)(countingHandler(&calls))

	reqs := []*http.Request{
		keyedRequest(http.MethodPost, "/v1/diaries", "", `{}`),
		keyedRequest(http.MethodPost, "/v1/diaries", "", `{}`),
		keyedRequest(http.MethodGet, "/v1/diaries", "k", ``),
		keyedRequest(http.MethodDelete, "/v1/diaries/1", "k", ``),
		keyedRequest(http.MethodDelete, "/v1/diaries/1", "k", ``),
	}
	for _, req := range reqs {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != int32(len(reqs)) {
		t.Errorf("expected every request to run, got %d runs", calls)
	}
	if store.Len() != 0 {
		t.Errorf("nothing should be remembered, got %d", store.Len())
	}
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)
	var calls int32
	h := Idempotency(store)(countingHandler(&calls))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(http.MethodPost, "/v1/auth/sign-up", "signup-1", `{"email":"dal@gona.com"}`))

	second := httptest.NewRecorder()
	secondReq := keyedRequest(http.MethodPost, "/v1/auth/sign-up", "signup-1", `{"email":"dal@gona.com"}`)
	h.ServeHTTP(second, secondReq)

	if calls != 1 {
		t.Fatalf("handler should run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("replayed response should be marked")
	}
	if second.Header().Get("Location") != first.Header().Get("Location") {
		t.Error("replayed response should carry the original headers")
	}
	if first.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("first response must not be marked as replayed")
	}
}

func TestIdempotency_DifferentBodyOrCaller_RunsAgain(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)
	var calls int32
	h := Idempotency(store)(countingHandler(&calls))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/diaries", "k", `{"title":"a"}`))
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/diaries", "k", `{"title":"b"}`))

	other := keyedRequest(http.MethodPost, "/v1/diaries", "k", `{"title":"a"}`)
	other = other.WithContext(context.WithValue(other.Context(), UserIDKey, "account:other"))
	h.ServeHTTP(httptest.NewRecorder(), other)

	if calls != 3 {
		t.Errorf("expected 3 runs, got %d", calls)
	}
}

func TestIdempotency_DifferentBearerSameAddress_RunsAgain(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)

	// Auth sits inside Idempotency, as it does on the diary routes
	accounts := &mockAuthService{
		validateFunc: func(token string) (*jwt.Claims, error) {
			return &jwt.Claims{Subject: "account:" + token}, nil
		},
	}
	var calls int32
	h := Idempotency(store)(Auth(accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created for " + GetUserID(r.Context())))
	})))

	send := func(token string) *httptest.ResponseRecorder {
		req := keyedRequest(http.MethodPost, "/v1/diaries", "k1", `{"title":"a"}`)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	alice := send("alice")
	bob := send("bob")

	if calls != 2 {
		t.Fatalf("expected 2 runs, got %d", calls)
	}
	if alice.Body.String() != "created for account:alice" {
		t.Errorf("unexpected first body %q", alice.Body.String())
	}
	if bob.Body.String() != "created for account:bob" {
		t.Errorf("second account got %q", bob.Body.String())
	}
	if bob.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("second account must not receive a replay")
	}

	// The same account retrying still replays
	again := send("bob")
	if calls != 2 {
		t.Errorf("retry should replay, got %d runs", calls)
	}
	if again.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replayed header on retry")
	}
	if again.Body.String() != "created for account:bob" {
		t.Errorf("retry replayed %q", again.Body.String())
	}
}

func TestIdempotency_RestoresRequestBody(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)

	var seen string
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
	}))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPatch, "/v1/diaries/1", "k", `{"title":"새 제목"}`))

	if seen != `{"title":"새 제목"}` {
		t.Errorf("handler saw %q", seen)
	}
}

func TestIdempotency_ExpiredEntry_RunsAgain(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 20*time.Millisecond)
	var calls int32
	h := Idempotency(store)(countingHandler(&calls))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/diaries", "k", `{}`))
	time.Sleep(40 * time.Millisecond)
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/diaries", "k", `{}`))

	if calls != 2 {
		t.Errorf("expected the expired key to run again, got %d runs", calls)
	}
}

func TestIdempotency_ConcurrentDuplicates_RunOnce(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)

	var calls int32
	release := make(chan struct{})
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	const n = 5
	var wg sync.WaitGroup
	recorders := make([]*httptest.ResponseRecorder, n)
	for i := 0; i < n; i++ {
		recorders[i] = httptest.NewRecorder()
		wg.Add(1)
		go func(rr *httptest.ResponseRecorder) {
			defer wg.Done()
			h.ServeHTTP(rr, keyedRequest(http.MethodPost, "/v1/auth/sign-up", "dup", `{}`))
		}(recorders[i])
	}

	// Let every goroutine reach the store before the first one finishes
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected a single run, got %d", calls)
	}
	for i, rr := range recorders {
		if rr.Code != http.StatusCreated || rr.Body.String() != "created" {
			t.Errorf("recorder %d: got %d %q", i, rr.Code, rr.Body.String())
		}
	}
}

func TestIdempotency_PanickedOwner_ReleasesKey(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Hour)

	var calls int32
	h := Recovery(Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusCreated)
	})))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(http.MethodPost, "/v1/diaries", "k", `{}`))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest(http.MethodPost, "/v1/diaries", "k", `{}`))

	if first.Code != http.StatusInternalServerError || second.Code != http.StatusCreated {
		t.Errorf("expected 500 then 201, got %d then %d", first.Code, second.Code)
	}
	if calls != 2 {
		t.Errorf("expected a retry after the panic, got %d runs", calls)
	}
}

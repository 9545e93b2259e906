package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// IdempotencyStore remembers responses to POST and PATCH requests that carry
// an Idempotency-Key header, so a double-submitted sign-up or diary write
// replays the first response instead of running twice.
type IdempotencyStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// idempotencyEntry is written once by the request that owns it and is
// read-only after done is closed
type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	completed bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep idempotency results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}

	return &IdempotencyStore{
		cache: gocache.New(cfg.TTL, cfg.Cleanup),
		ttl:   cfg.TTL,
	}
}

// Stop drops every remembered response. The cache janitor exits once the
// store is garbage collected.
func (s *IdempotencyStore) Stop() {
	s.cache.Flush()
}

// Len reports how many keys are currently remembered, in flight or not
func (s *IdempotencyStore) Len() int {
	return s.cache.ItemCount()
}

// claim registers key as in flight. It returns the existing entry when
// another request already owns the key.
func (s *IdempotencyStore) claim(key string) (entry *idempotencyEntry, owner bool) {
	entry = &idempotencyEntry{done: make(chan struct{})}
	if err := s.cache.Add(key, entry, gocache.NoExpiration); err == nil {
		return entry, true
	}

	existing, found := s.cache.Get(key)
	if !found {
		// Expired between Add and Get; take it over
		s.cache.Set(key, entry, gocache.NoExpiration)
		return entry, true
	}
	prior, ok := existing.(*idempotencyEntry)
	if !ok {
		slog.Error("idempotency: unexpected cache value", slog.String("key", key))
		s.cache.Set(key, entry, gocache.NoExpiration)
		return entry, true
	}
	return prior, false
}

// generateKey creates a unique key from the caller, its credential, the
// idempotency key, and the request fingerprint. Only the digest is kept, so
// the credential never sits in the cache.
func generateKey(caller, credential, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{caller, credential, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		w.Header()[k] = append([]string(nil), v...)
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}

// Idempotency returns middleware that handles idempotency keys for POST/PATCH requests
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			// Auth runs per route, inside this middleware, so the bearer
			// credential is what tells two accounts behind one address apart.
			key := generateKey(clientKey(r), r.Header.Get("Authorization"), idempotencyKey, r.Method, r.URL.Path, body)

			entry, owner := store.claim(key)
			if !owner {
				<-entry.done
				if entry.completed {
					replay(w, entry)
					return
				}
				// The first attempt panicked; run this one normally
				next.ServeHTTP(w, r)
				return
			}

			irw := &idempotencyResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			defer func() {
				if entry.completed {
					store.cache.Set(key, entry, store.ttl)
				} else {
					store.cache.Delete(key)
				}
				close(entry.done)
			}()

			next.ServeHTTP(irw, r)

			entry.status = irw.status
			entry.headers = irw.Header().Clone()
			entry.headers.Del("X-Request-ID")
			entry.body = irw.body.Bytes()
			entry.completed = true
		})
	}
}

// Package middleware provides HTTP middleware for the diary API.
//
// # Stack
//
// The server wraps its mux in this order:
//
//	middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger,
//	    middleware.Recovery,
//	    middleware.CORS(origins),
//	    middleware.RateLimit(limiter),
//	    middleware.Idempotency(store),
//	    middleware.Compress,
//	    middleware.Trace(tracer),
//	    middleware.Metrics(metrics),
//	)
//
// Trace and Metrics go last so they see the route pattern the mux matched.
//
// # Authentication
//
// Auth validates the bearer access token and stores the account ID (the
// token subject) in the request context. It is applied per route:
//
//	mux.Handle("GET /v1/auth/me", auth(http.HandlerFunc(h.Me)))
//
// Handlers read it back with GetUserID(r.Context()).
//
// # Rate Limiting and Idempotency
//
// RateLimit keeps one token bucket per caller in a bounded LRU. Idempotency
// remembers POST and PATCH responses keyed by the Idempotency-Key header, so
// a double-tapped sign-up button replays the first outcome.
package middleware

// Package handler provides the HTTP endpoints of the diary API.
//
// Each handler struct wraps the service it fronts behind a small interface
// so tests can drive it with httptest and hand-written fakes.
//
// # Response Format
//
//   - WriteData: a resource wrapped as {"data": ..., "_links": {...}}
//   - WriteError: RFC 9457 Problem Details (application/problem+json)
//
// Sign-up responses carry the next screen to visit as _links.next. Failures
// that need a modal rather than an inline message set blocking_notice.
//
// # Authentication
//
// Protected routes sit behind middleware.Auth, which stores the account ID
// from the access token in the request context.
package handler

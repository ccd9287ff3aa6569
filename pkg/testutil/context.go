package testutil

import (
	"net/http"
	"time"

	"credentry/pkg/domain"
	"credentry/pkg/requestcontext"
)

// WithCaller adds an authenticated caller address to the request context,
// simulating what the auth middleware does for authenticated requests.
// Invalid addresses are silently ignored.
func WithCaller(req *http.Request, address string) *http.Request {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request-scoped timestamp.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

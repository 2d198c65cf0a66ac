package http

import (
	"net/http"
)

// RequestVerifier authenticates a request.
type RequestVerifier interface {
	Verify(r *http.Request) error
}

// AuthMiddleware creates middleware that enforces AWS Signature V4 authentication.
// Pass nil to disable authentication (public access).
func AuthMiddleware(verifier RequestVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

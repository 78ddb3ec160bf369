package middleware

import (
	"net/http"

	pnet "habitreward/internal/platform/net"
)

// AuthPort is the seam the auth service implements
type AuthPort interface {
	// Parse authenticates the request and returns the acting user id
	Parse(r *http.Request) (userID int64, err error)
}

// Auth authenticates requests through the port and stores the user id on context
// passes through when no port is wired
func Auth(p AuthPort, write func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			uid, err := p.Parse(r)
			if err != nil {
				write(w, r, err)
				return
			}
			ctx := pnet.WithUser(r.Context(), uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

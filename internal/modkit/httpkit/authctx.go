package httpkit

import (
	"net/http"
	"strings"

	perrs "habitreward/internal/platform/errors"
	pnet "habitreward/internal/platform/net"
)

// User returns the authenticated user id from the request context
func User(r *http.Request) (int64, error) {
	uid := pnet.UserID(r.Context())
	if uid == 0 {
		return 0, perrs.Newf(perrs.ErrorCodeAuthRequired, "authentication required")
	}
	return uid, nil
}

// MustUser returns the authenticated user id or panics
func MustUser(r *http.Request) int64 {
	uid, err := User(r)
	if err != nil {
		panic(err)
	}
	return uid
}

// JWT returns the raw bearer token from the Authorization header
func JWT(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	if strings.TrimSpace(authz) == "" {
		return "", perrs.Newf(perrs.ErrorCodeMissingToken, "missing bearer token")
	}
	// case-insensitive Bearer prefix (don't trim the whole header first)
	const prefix = "bearer "
	if len(authz) < len(prefix) || strings.ToLower(authz[:len(prefix)]) != prefix {
		return "", perrs.Newf(perrs.ErrorCodeMissingToken, "missing bearer token")
	}
	raw := strings.TrimSpace(authz[len(prefix):])
	if raw == "" {
		return "", perrs.Newf(perrs.ErrorCodeMissingToken, "missing bearer token")
	}
	return raw, nil
}

// APIKey returns the raw api key from the X-API-Key header, "" when absent
func APIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

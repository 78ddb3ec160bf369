// Package httpkit provides tiny HTTP helpers and adapters
package httpkit

import (
	"context"
	"net/http"
	"strings"

	perrs "habitreward/internal/platform/errors"
)

// TokenFunc parses a bearer access token and returns the user id
type TokenFunc func(ctx context.Context, token string) (userID int64, err error)

// APIKeyFunc resolves a raw api key and returns the owning user id
type APIKeyFunc func(ctx context.Context, raw string) (userID int64, err error)

// Port implements middleware.AuthPort by reading Authorization / X-API-Key
// and delegating to the provided parsers. The bearer token wins when both
// credentials are present
type Port struct {
	parseToken TokenFunc
	parseKey   APIKeyFunc
}

// NewPortFunc builds a Port from the credential parsers
func NewPortFunc(token TokenFunc, key APIKeyFunc) *Port {
	return &Port{parseToken: token, parseKey: key}
}

// Parse authenticates the request and returns the acting user id
// returns unauthorized when no usable credential is present or a parser rejects it
func (p *Port) Parse(r *http.Request) (int64, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz != "" {
		ls := strings.ToLower(authz)
		const prefix = "bearer"
		if !strings.HasPrefix(ls, prefix) {
			return 0, perrs.Newf(perrs.ErrorCodeMissingToken, "missing bearer token")
		}
		raw := strings.TrimSpace(authz[len(prefix):])
		if raw == "" {
			return 0, perrs.Newf(perrs.ErrorCodeMissingToken, "missing bearer token")
		}
		if p.parseToken == nil {
			return 0, perrs.Newf(perrs.ErrorCodeInvalidToken, "invalid bearer token")
		}
		return p.parseToken(r.Context(), raw)
	}

	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		if p.parseKey == nil {
			return 0, perrs.Newf(perrs.ErrorCodeInvalidAPIKey, "invalid api key")
		}
		return p.parseKey(r.Context(), key)
	}

	return 0, perrs.Newf(perrs.ErrorCodeAuthRequired, "authentication required")
}

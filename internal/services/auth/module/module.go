// Package module wires the auth service into HTTP via modkit
package module

import (
	"context"
	"net/http"
	"time"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/net/middleware"
	"habitreward/internal/platform/strings"
	"habitreward/internal/services/auth/domain"
	authhttp "habitreward/internal/services/auth/http"
	"habitreward/internal/services/auth/repo"
	"habitreward/internal/services/auth/service"
	usersdomain "habitreward/internal/services/users/domain"

	"golang.org/x/time/rate"
)

// Ports exposes the auth ports for cross-module wiring
type Ports struct {
	Codes  domain.CodePort
	Keys   domain.KeyPort
	Tokens domain.TokenPort
}

// Module implements the auth module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)

	codes    *service.Codes
	keys     *service.Keys
	tokens   *service.Tokens
	handlers *authhttp.Handlers
}

// New constructs the auth module. transport delivers issued codes and may be
// nil, the secret comes from API_SECRET_KEY
func New(deps modkit.Deps, users usersdomain.ReaderPort, transport service.Sender, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("auth"), modkit.WithPrefix("/auth")}, opts...)...)

	tokens := service.NewTokens(deps.Cfg.MayString("API_SECRET_KEY", ""))
	codes := service.NewCodes(repokit.TxRunner(deps.PG), repo.NewCodesPG(), users, transport)
	keys := service.NewKeys(repokit.TxRunner(deps.PG), repo.NewKeysPG(), users)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		codes:  codes,
		keys:   keys,
		tokens: tokens,
		handlers: &authhttp.Handlers{
			Codes: codes, Keys: keys, Tokens: tokens, Users: users,
			// one code request per 20 s per client with a small burst
			RequestCodeLimiter: httpkit.RateLimit(middleware.RateLimitOptions{
				RPS:   rate.Every(20 * time.Second),
				Burst: 3,
			}),
		},
	}
	m.ports = Ports{Codes: codes, Keys: keys, Tokens: tokens}

	external := b.Register
	m.register = func(r httpkit.Router) {
		m.handlers.Register(r)
		if external != nil {
			external(r)
		}
	}
	return m
}

// AuthPort builds the credential parser used by the request middleware.
// A bearer token wins over an X-API-Key header
func (m *Module) AuthPort() *httpkit.Port {
	return httpkit.NewPortFunc(
		func(_ context.Context, token string) (int64, error) {
			claims, err := m.tokens.Verify(token, domain.TokenTypeAccess)
			if err != nil {
				return 0, err
			}
			return claims.UserID, nil
		},
		func(ctx context.Context, raw string) (int64, error) {
			u, err := m.keys.VerifyKey(ctx, raw)
			if err != nil {
				return 0, err
			}
			return u.ID, nil
		},
	)
}

// RegisterKeys mounts the API-key management routes, callers put them
// behind the auth middleware
func (m *Module) RegisterKeys(r httpkit.Router) { m.handlers.RegisterKeys(r) }

// Codes exposes the code service for the janitor and webhook
func (m *Module) Codes() *service.Codes { return m.codes }

// Keys exposes the key service for the janitor
func (m *Module) Keys() *service.Keys { return m.keys }

// Tokens exposes the token service
func (m *Module) Tokens() *service.Tokens { return m.tokens }

// MountRoutes mounts the public auth routes
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return strings.MustPrefix(m.prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

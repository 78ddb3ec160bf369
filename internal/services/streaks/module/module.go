// Package module wires the streaks service into HTTP via modkit
package module

import (
	"net/http"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/strings"

	habitsdomain "habitreward/internal/services/habits/domain"
	"habitreward/internal/services/streaks/domain"
	streakshttp "habitreward/internal/services/streaks/http"
	"habitreward/internal/services/streaks/repo"
	"habitreward/internal/services/streaks/service"
)

// Ports exposes the streak ports for cross-module lookups
type Ports struct {
	Reader domain.ReaderPort
}

// Module implements the streaks module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *service.Service
}

// New constructs the streaks module. The habits reader comes from the habits
// module ports during composition
func New(deps modkit.Deps, habits habitsdomain.ReaderPort, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("streaks"), modkit.WithPrefix("/streaks")}, opts...)...)

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), habits)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Reader: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		streakshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Service exposes the concrete service for composition wiring
func (m *Module) Service() *service.Service { return m.svc }

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
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

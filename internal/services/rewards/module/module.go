// Package module wires the rewards service into HTTP via modkit
package module

import (
	"net/http"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/strings"
	"habitreward/internal/services/rewards/domain"

	rewardshttp "habitreward/internal/services/rewards/http"
	"habitreward/internal/services/rewards/repo"
	"habitreward/internal/services/rewards/service"
)

// Ports exposes the reward ports for cross-module lookups
type Ports struct {
	Reader   domain.ReaderPort
	Writer   domain.WriterPort
	Progress domain.ProgressPort
}

// Module implements the rewards module
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

// New constructs the rewards module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("rewards"), modkit.WithPrefix("/rewards")}, opts...)...)

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG())

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Reader: svc, Writer: svc, Progress: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		rewardshttp.Register(r, m.svc)
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

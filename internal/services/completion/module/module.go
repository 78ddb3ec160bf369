// Package module wires the completion service into HTTP via modkit
package module

import (
	"math/rand"
	"net/http"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/strings"

	auditdomain "habitreward/internal/services/audit/domain"
	"habitreward/internal/services/completion/domain"
	completionhttp "habitreward/internal/services/completion/http"
	"habitreward/internal/services/completion/repo"
	"habitreward/internal/services/completion/service"
	habitsdomain "habitreward/internal/services/habits/domain"
	rewardsrepo "habitreward/internal/services/rewards/repo"
	usersdomain "habitreward/internal/services/users/domain"
)

// Ports exposes the completion ports for cross-module lookups
type Ports struct {
	Engine domain.EnginePort
	Logs   domain.LogReaderPort
}

// Wiring carries the cross-module dependencies of the completion engine
type Wiring struct {
	Users   usersdomain.ReaderPort
	Habits  habitsdomain.ReaderPort
	Streaks service.StreakSource
	Audit   auditdomain.WriterPort
	RNG     *rand.Rand
}

// Module implements the completion module
type Module struct {
	deps modkit.Deps
	name string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)

	svc *service.Service
}

// New constructs the completion module
func New(deps modkit.Deps, w Wiring, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("completion")}, opts...)...)

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), rewardsrepo.NewPG(),
		w.Users, w.Habits, w.Streaks, w.Audit, w.RNG)

	m := &Module{
		deps: deps,
		name: b.Name,
		mws:  b.Mw,
		svc:  svc,
	}
	m.ports = Ports{Engine: svc, Logs: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		completionhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Service exposes the concrete service for composition wiring
func (m *Module) Service() *service.Service { return m.svc }

// MountRoutes mounts the module routes. The routes are absolute paths under
// the habits and habit-logs surfaces, so no prefix group is opened
func (m *Module) MountRoutes(r httpkit.Router) {
	for _, mw := range m.mws {
		r.Use(mw)
	}
	if m.register != nil {
		m.register(r)
	}
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is empty, the module registers absolute paths
func (m *Module) Prefix() string { return "" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

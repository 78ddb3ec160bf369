// Package module wires the audit service. The trail has no public HTTP
// surface, other modules consume it through ports
package module

import (
	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/strings"
	"habitreward/internal/services/audit/domain"

	"habitreward/internal/services/audit/repo"
	"habitreward/internal/services/audit/service"
)

// Ports exposes the audit ports for cross-module wiring
type Ports struct {
	Writer  domain.WriterPort
	Reader  domain.ReaderPort
	Sweeper domain.SweeperPort
}

// Module implements the audit module
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports

	svc *service.Service
}

// New constructs the audit module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("audit")}, opts...)...)

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), deps.CH)

	m := &Module{deps: deps, name: b.Name, svc: svc}
	m.ports = Ports{Writer: svc, Reader: svc, Sweeper: svc}
	return m
}

// Service exposes the concrete service for composition wiring
func (m *Module) Service() *service.Service { return m.svc }

// MountRoutes is a no-op, the audit module exposes no routes
func (m *Module) MountRoutes(httpkit.Router) {}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is empty, the audit module exposes no routes
func (m *Module) Prefix() string { return "" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

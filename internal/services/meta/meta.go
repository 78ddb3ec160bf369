// Package meta serves the unversioned service endpoints, currently /health
package meta

import (
	stdhttp "net/http"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/platform/strings"
)

// Version is stamped at build time via -ldflags "-X habitreward/internal/services/meta.Version=..."
var Version = "dev"

// Module implements the meta module. It mounts at the server root, outside
// the versioned API prefix
type Module struct {
	deps modkit.Deps
	name string

	mws      []func(stdhttp.Handler) stdhttp.Handler
	register func(httpkit.Router)
}

// New constructs the meta module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta")}, opts...)...)

	m := &Module{deps: deps, name: b.Name, mws: b.Mw}

	external := b.Register
	m.register = func(r httpkit.Router) {
		httpkit.Get(r, "/health", m.health)
		if external != nil {
			external(r)
		}
	}
	return m
}

func (m *Module) health(*stdhttp.Request) (any, error) {
	return map[string]string{"status": "ok", "version": Version}, nil
}

// MountRoutes mounts the meta routes at the router root
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Group(func(gr httpkit.Router) {
		for _, mw := range m.mws {
			gr.Use(mw)
		}
		if m.register != nil {
			m.register(gr)
		}
	})
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is empty, meta routes live at the root
func (m *Module) Prefix() string { return "" }

// Ports returns the module ports
func (m *Module) Ports() any { return nil }

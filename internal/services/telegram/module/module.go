// Package module wires the Telegram webhook into HTTP via modkit
package module

import (
	stdhttp "net/http"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/platform/strings"

	authdomain "habitreward/internal/services/auth/domain"
	completiondomain "habitreward/internal/services/completion/domain"
	habitsdomain "habitreward/internal/services/habits/domain"
	"habitreward/internal/services/telegram/domain"
	telegramhttp "habitreward/internal/services/telegram/http"
	"habitreward/internal/services/telegram/service"
	usersdomain "habitreward/internal/services/users/domain"
)

// Wiring carries the cross-module ports the webhook commands act on
type Wiring struct {
	Users     usersdomain.ReaderPort
	Registrar usersdomain.WriterPort
	Habits    habitsdomain.ReaderPort
	Engine    completiondomain.EnginePort
	Codes     authdomain.CodePort
	Transport telegramhttp.Sender
}

// Ports exposes the webhook handler for composition
type Ports struct {
	Handler domain.HandlerPort
}

// Module implements the telegram webhook module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(stdhttp.Handler) stdhttp.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the webhook module. The secret comes from
// TELEGRAM_WEBHOOK_SECRET, empty disables the header check
func New(deps modkit.Deps, w Wiring, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("telegram"), modkit.WithPrefix("/webhook/telegram")}, opts...)...)

	svc := service.New(w.Users, w.Registrar, w.Habits, w.Engine, w.Codes)
	handlers := &telegramhttp.Handlers{
		Handler:   svc,
		Transport: w.Transport,
		Secret:    deps.Cfg.MayString("TELEGRAM_WEBHOOK_SECRET", ""),
	}

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
	}
	m.ports = Ports{Handler: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		handlers.Register(r)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the webhook route
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

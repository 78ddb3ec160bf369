// Package api composes the service modules into the versioned REST surface
package api

import (
	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/modkit/module"
	"habitreward/internal/modkit/swaggerkit"

	auditmod "habitreward/internal/services/audit/module"
	authmod "habitreward/internal/services/auth/module"
	authservice "habitreward/internal/services/auth/service"
	completionmod "habitreward/internal/services/completion/module"
	habitsmod "habitreward/internal/services/habits/module"
	"habitreward/internal/services/meta"
	rewardsmod "habitreward/internal/services/rewards/module"
	streaksmod "habitreward/internal/services/streaks/module"
	usersmod "habitreward/internal/services/users/module"
)

// Options tunes the composition
type Options struct {
	// Transport delivers login codes into chat, nil leaves codes undelivered
	// (they still land in storage, useful for local development)
	Transport authservice.Sender
	// Swagger mounts the docs UI
	Swagger bool
}

// API owns the composed modules of the REST server
type API struct {
	Meta       *meta.Module
	Users      *usersmod.Module
	Habits     *habitsmod.Module
	Rewards    *rewardsmod.Module
	Streaks    *streaksmod.Module
	Audit      *auditmod.Module
	Completion *completionmod.Module
	Auth       *authmod.Module

	swagger bool
}

// New builds every module and wires the cross-module ports
func New(deps modkit.Deps, o Options) *API {
	users := usersmod.New(deps)
	habits := habitsmod.New(deps)
	rewards := rewardsmod.New(deps)
	audit := auditmod.New(deps)
	streaks := streaksmod.New(deps, habits.Service())
	completion := completionmod.New(deps, completionmod.Wiring{
		Users:   users.Service(),
		Habits:  habits.Service(),
		Streaks: streaks.Service(),
		Audit:   audit.Service(),
	})
	auth := authmod.New(deps, users.Service(), o.Transport)

	a := &API{
		Meta:       meta.New(deps),
		Users:      users,
		Habits:     habits,
		Rewards:    rewards,
		Streaks:    streaks,
		Audit:      audit,
		Completion: completion,
		Auth:       auth,
		swagger:    o.Swagger,
	}

	for _, m := range []interface {
		Name() string
		Ports() any
	}{a.Users, a.Habits, a.Rewards, a.Streaks, a.Audit, a.Completion, a.Auth} {
		module.Register(m.Name(), m.Ports())
	}
	return a
}

// MountRoutes attaches the full route tree: unversioned meta endpoints,
// docs, the public auth surface and the protected /v1 API
func (a *API) MountRoutes(r httpkit.Router) {
	a.Meta.MountRoutes(r)
	swaggerkit.Mount(r, a.swagger)

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		a.Auth.MountRoutes(api)

		httpkit.Protected(api, a.Auth.AuthPort(), func(pr httpkit.Router) {
			a.Users.MountRoutes(pr)
			a.Habits.MountRoutes(pr)
			a.Rewards.MountRoutes(pr)
			a.Streaks.MountRoutes(pr)
			a.Completion.MountRoutes(pr)
			pr.Route("/api-keys", func(kr httpkit.Router) { a.Auth.RegisterKeys(kr) })
		})
	})
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitreward/internal/modkit"
	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/platform/config"
	"habitreward/internal/platform/logger"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/platform/store"

	auditmod "habitreward/internal/services/audit/module"
	authmod "habitreward/internal/services/auth/module"
	completionmod "habitreward/internal/services/completion/module"
	habitsmod "habitreward/internal/services/habits/module"
	"habitreward/internal/services/meta"
	streaksmod "habitreward/internal/services/streaks/module"
	"habitreward/internal/services/telegram/client"
	telegrammod "habitreward/internal/services/telegram/module"
	usersmod "habitreward/internal/services/users/module"
)

func main() {
	root := config.New()
	botCfg := root.Prefix("CORE_BOT_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	tgCfg := root.Prefix("TELEGRAM_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "habitreward-bot",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled: chCfg.MayBool("ENABLED", false),
				URL:     chCfg.MayString("DBURL", ""),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	tgc := client.New(tgCfg.MustString("BOT_TOKEN"))
	deps := modkit.Deps{Log: *l, Cfg: botCfg, PG: st.PG, CH: st.CH}

	users := usersmod.New(deps)
	habits := habitsmod.New(deps)
	audit := auditmod.New(deps)
	streaks := streaksmod.New(deps, habits.Service())
	completion := completionmod.New(deps, completionmod.Wiring{
		Users:   users.Service(),
		Habits:  habits.Service(),
		Streaks: streaks.Service(),
		Audit:   audit.Service(),
	})
	auth := authmod.New(deps, users.Service(), tgc)

	webhook := telegrammod.New(deps, telegrammod.Wiring{
		Users:     users.Service(),
		Registrar: users.Service(),
		Habits:    habits.Service(),
		Engine:    completion.Service(),
		Codes:     auth.Codes(),
		Transport: tgc,
	})

	srv := phttp.NewServer(botCfg)
	r := srv.Router()
	meta.New(deps).MountRoutes(r)
	r.Group(func(gr phttp.Router) {
		gr.Use(httpkit.CommonStack()...)
		webhook.MountRoutes(gr)
	})

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

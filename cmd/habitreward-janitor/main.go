package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"habitreward/internal/modkit"
	"habitreward/internal/platform/config"
	"habitreward/internal/platform/logger"
	"habitreward/internal/platform/store"

	auditmod "habitreward/internal/services/audit/module"
	auditservice "habitreward/internal/services/audit/service"
	authmod "habitreward/internal/services/auth/module"
	"habitreward/internal/services/janitor"
	usersmod "habitreward/internal/services/users/module"
)

func main() {
	root := config.New()
	jCfg := root.Prefix("CORE_JANITOR_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "habitreward-janitor",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 2)),
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

	deps := modkit.Deps{Log: *l, Cfg: jCfg, PG: st.PG, CH: st.CH}

	users := usersmod.New(deps)
	audit := auditmod.New(deps)
	auth := authmod.New(deps, users.Service(), nil)

	retainDays := jCfg.MayInt("AUDIT_RETAIN_DAYS", auditservice.DefaultRetainDays)

	runner := janitor.New(
		janitor.CodeCleanup(auth.Codes()),
		janitor.AuditRetention(audit.Service(), retainDays),
		janitor.KeyFlush(auth.Keys()),
	)

	l.Info().Int("audit_retain_days", retainDays).Msg("janitor started")
	runner.Run(ctx)
	l.Info().Msg("janitor stopped")
}

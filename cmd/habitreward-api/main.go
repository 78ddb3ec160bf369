// @title         Habitreward API
// @version       0.1.0
// @description   Habit tracking with probabilistic rewards

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitreward/internal/modkit"
	"habitreward/internal/platform/config"
	"habitreward/internal/platform/logger"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/platform/store"

	"habitreward/internal/services/api"
	authservice "habitreward/internal/services/auth/service"
	"habitreward/internal/services/telegram/client"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	tgCfg := root.Prefix("TELEGRAM_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "habitreward-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			// the audit mirror is best effort, the API runs fine without CH
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

	// outbound chat transport is optional on the API server, without a token
	// login codes stay undelivered (useful locally)
	var transport authservice.Sender
	if token := tgCfg.MayString("BOT_TOKEN", ""); token != "" {
		transport = client.New(token)
	}

	deps := modkit.Deps{Log: *l, Cfg: apiCfg, PG: st.PG, CH: st.CH}

	srv := phttp.NewServer(apiCfg)
	a := api.New(deps, api.Options{
		Transport: transport,
		Swagger:   apiCfg.MayBool("SWAGGER", true),
	})
	a.MountRoutes(srv.Router())

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

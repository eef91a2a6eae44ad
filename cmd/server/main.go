package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"texas-tradem/internal/config"
	"texas-tradem/internal/constants"
	fxmodules "texas-tradem/internal/fx"
	"texas-tradem/internal/game"
	"texas-tradem/internal/middleware"
	"texas-tradem/internal/server"
	"texas-tradem/internal/session"
	"texas-tradem/internal/sheet"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	engine *game.Engine,
	gate *session.Gate,
	loader *sheet.Loader,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(srv.Handler(cfg.StaticDir)))

	httpSrv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:     handler,
		ReadTimeout: constants.RequestTimeout,
	}

	gateCtx, stopGate := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			engine.LoadBalances(ctx)
			gate.Restore(ctx)

			cards, err := loader.Load(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("deck feed load failed, starting with empty deck")
			} else {
				engine.SetCards(cards)
			}

			go gate.Run(gateCtx)

			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			stopGate()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database")
			}
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

package fx

import (
	"texas-tradem/internal/api"
	"texas-tradem/internal/config"
	"texas-tradem/internal/database"
	"texas-tradem/internal/deck"
	"texas-tradem/internal/game"
	"texas-tradem/internal/logger"
	"texas-tradem/internal/repository"
	"texas-tradem/internal/server"
	"texas-tradem/internal/service"
	"texas-tradem/internal/session"
	"texas-tradem/internal/sheet"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideGate(repo *repository.SubscriptionRepository, log zerolog.Logger) *session.Gate {
	return session.NewGate(repo, log)
}

func ProvideEngine(d *deck.Manager, gate *session.Gate, repo *repository.BalanceRepository, log zerolog.Logger) *game.Engine {
	return game.NewEngine(d, gate, repo, log)
}

func ProvideWeeklyCache(svc *service.WeeklyService, log zerolog.Logger) *service.WeeklyCache {
	return service.NewWeeklyCache(svc, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// storage
	fx.Provide(repository.NewBalanceRepository),
	fx.Provide(repository.NewSubscriptionRepository),
	// upstream + deck feed
	fx.Provide(api.NewAlphaVantageClient),
	fx.Provide(sheet.NewLoader),
	// game state layer
	fx.Provide(deck.NewManager),
	fx.Provide(ProvideGate),
	fx.Provide(ProvideEngine),
	// weekly series
	fx.Provide(service.NewWeeklyService),
	fx.Provide(ProvideWeeklyCache),
	// http surface
	fx.Provide(server.NewServer),
)

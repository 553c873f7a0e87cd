package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/domainboard/internal/api"
	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/internal/config"
	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/provisioning"
	"github.com/dmitrymomot/domainboard/internal/quota"
	"github.com/dmitrymomot/domainboard/internal/store/postgres"
	"github.com/dmitrymomot/domainboard/pkg/broadcast"
	cfgloader "github.com/dmitrymomot/domainboard/pkg/config"
	"github.com/dmitrymomot/domainboard/pkg/httpserver"
	"github.com/dmitrymomot/domainboard/pkg/logger"
	"github.com/dmitrymomot/domainboard/pkg/pg"
	"github.com/dmitrymomot/domainboard/pkg/redis"
	"github.com/dmitrymomot/domainboard/pkg/webhook"
)

func main() {
	var cfg config.Config
	cfgloader.MustLoad(&cfg)

	log := logger.New(
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFmt),
		logger.WithService(cfg.AppName),
		logger.WithContextExtractors(auth.LoggerExtractor()),
	)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	pool, err := pg.Connect(startCtx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(startCtx, pool, cfg.PG, log); err != nil {
		return err
	}

	healthchecks := []func(context.Context) error{pg.Healthcheck(pool)}

	var bus broadcast.Broadcaster
	switch cfg.BroadcastDriver {
	case config.BroadcastRedis:
		client, err := redis.Connect(startCtx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		healthchecks = append(healthchecks, redis.Healthcheck(client))
		bus = broadcast.NewRedisBroadcaster(client, cfg.BroadcastBuffer)
	case config.BroadcastMemory:
		bus = broadcast.NewMemoryBroadcaster(cfg.BroadcastBuffer)
	default:
		return errors.New("main: unknown broadcast driver " + cfg.BroadcastDriver)
	}
	defer bus.Close()

	verifier, err := webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)
	if err != nil {
		return err
	}

	st := postgres.New(pool)
	plans := plan.NewRegistry()
	prov := provisioning.NewService(st, plans, log)
	gate := quota.NewGate(st, plans, bus, log)
	authn := auth.NewService(cfg.Auth, st)

	handler := api.NewHandler(log, verifier, prov, gate, st, plans, bus)
	router := handler.Router(authn, httpserver.HealthCheckHandler(log, healthchecks...))

	return httpserver.New(cfg.HTTP, log).Run(ctx, router)
}

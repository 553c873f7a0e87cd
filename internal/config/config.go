// Package config aggregates the service configuration from the
// environment.
package config

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/pkg/httpserver"
	"github.com/dmitrymomot/domainboard/pkg/logger"
	"github.com/dmitrymomot/domainboard/pkg/pg"
	"github.com/dmitrymomot/domainboard/pkg/redis"
)

// Broadcast driver names accepted by Config.BroadcastDriver.
const (
	BroadcastMemory = "memory"
	BroadcastRedis  = "redis"
)

// Config is the full service configuration, populated from environment
// variables (optionally via a .env file in development).
type Config struct {
	AppName  string        `env:"APP_NAME" envDefault:"domainboard"`
	LogLevel slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
	LogFmt   logger.Format `env:"LOG_FORMAT" envDefault:"json"`

	// WebhookSecret is the signing secret of the identity provider's
	// endpoint, typically prefixed with "whsec_".
	WebhookSecret    string        `env:"WEBHOOK_SIGNING_SECRET,required"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`

	// BroadcastDriver selects the event fan-out backend: "memory" for a
	// single-process deployment, "redis" to fan out across replicas.
	BroadcastDriver string `env:"BROADCAST_DRIVER" envDefault:"memory"`
	BroadcastBuffer int    `env:"BROADCAST_BUFFER" envDefault:"16"`

	HTTP  httpserver.Config
	PG    pg.Config
	Redis redis.Config
	Auth  auth.Config
}

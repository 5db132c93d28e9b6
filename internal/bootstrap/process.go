// Package bootstrap holds the startup and shutdown steps shared by every binary.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/migrate"
	"github.com/angelmondragon/shootpay-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Process is one running binary: its config, its logger and the resources to release on
// the way out.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env and config, then rebuilds the logger at the configured level. A config
// failure ends the process.
func Start(kind string) *Process {
	p := &Process{
		Kind:   kind,
		Logger: logger.New(logger.Options{ServiceName: kind}),
		exit:   os.Exit,
	}
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		p.Logger.Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	p.Must(ctx, "config", err)

	cfg.Service.Kind = kind
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Must releases everything opened so far and exits when err is set.
func (p *Process) Must(ctx context.Context, resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	p.Shutdown()
	p.exit(1)
}

// OnShutdown registers fn to run during Shutdown. Closers run in reverse order.
func (p *Process) OnShutdown(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Shutdown runs the registered closers once, logging failures.
func (p *Process) Shutdown() {
	ctx := context.Background()
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			p.Logger.Error(p.Logger.WithField(ctx, "resource", c.name), "error closing resource", err)
		}
	}
	p.closers = nil
}

// SignalContext is canceled on SIGINT or SIGTERM and carries env and service kind log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	env := ""
	if p.Config != nil {
		env = p.Config.App.Env
	}
	return p.Logger.WithFields(ctx, map[string]any{
		"env":         env,
		"serviceKind": p.Kind,
	}), stop
}

// Database opens Postgres and applies migrations in dev.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must(ctx, "database", err)
	p.OnShutdown("database", client.Close)
	p.Must(ctx, "dev migrations", migrate.MaybeRunDev(ctx, p.Config, p.Logger, client))
	return client
}

// Redis opens the shared Redis client.
func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must(ctx, "redis", err)
	p.OnShutdown("redis", client.Close)
	return client
}

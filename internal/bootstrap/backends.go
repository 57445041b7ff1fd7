package bootstrap

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/adapters/backend"
	"github.com/target/ticketflow/internal/adapters/devauth"
	"github.com/target/ticketflow/internal/adapters/gotrue"
	"github.com/target/ticketflow/internal/adapters/memstore"
	"github.com/target/ticketflow/internal/adapters/postgrest"
	redisadapter "github.com/target/ticketflow/internal/adapters/redis"
	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/data"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/observability/metrics"
	"github.com/target/ticketflow/internal/ports"
	"github.com/target/ticketflow/internal/service"
)

// BackendOptions configures NewBackends.
type BackendOptions struct {
	Config  *config.AppConfig // Required
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Backends is what every client opens against: one auth provider factory,
// one ticket service, and the connections they own.
type Backends struct {
	Auth    ports.AuthProviderFactory
	Data    ports.DataService
	Tickets *service.TicketService

	// DB and Redis are set only when the configured modes need them.
	DB    *sql.DB
	Redis redis.UniversalClient

	ui      config.UIConfig
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewBackends connects whatever the configured auth and data modes need.
// On error every connection opened so far is closed.
func NewBackends(ctx context.Context, opts BackendOptions) (b *Backends, err error) {
	if opts.Config == nil {
		return nil, errors.Configuration("bootstrap: BackendOptions.Config is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b = &Backends{ui: cfg.UI, logger: logger, metrics: opts.Metrics}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, b.Close())
			b = nil
		}
	}()

	var hosted *backend.Client
	if cfg.Backend.UsesHostedBackend() {
		hosted, err = backend.NewClient(backend.Config{
			URL:     cfg.Backend.URL,
			AnonKey: cfg.Backend.AnonKey,
			Timeout: cfg.Backend.RequestTimeout,
			Logger:  logger,
		})
		if err != nil {
			return b, errors.ConfigurationWithCause("backend client", err)
		}
	}

	var persister ports.SessionPersister
	if cfg.Redis.Enabled {
		b.Redis, err = ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return b, err
		}
		persister = redisadapter.NewSessionStore(b.Redis, redisadapter.WithTTL(cfg.Redis.SessionTTL))
	}

	if err = b.initAuth(ctx, cfg.Backend, hosted, persister); err != nil {
		return b, err
	}
	if err = b.initData(ctx, cfg, hosted); err != nil {
		return b, err
	}

	b.Tickets = service.NewTicketService(service.TicketServiceOptions{
		Data:    b.Data,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	logger.Info("backends ready",
		"auth_mode", cfg.Backend.AuthMode,
		"data_mode", cfg.Backend.DataMode,
		"session_persistence", cfg.Redis.Enabled,
	)
	return b, nil
}

func (b *Backends) initAuth(ctx context.Context, cfg config.BackendConfig, hosted *backend.Client, persister ports.SessionPersister) error {
	switch cfg.AuthMode {
	case config.AuthModeMemory:
		b.Auth = devauth.NewDirectory(devauth.Config{Persister: persister, Logger: b.logger})
		return nil
	case config.AuthModeGoTrue:
		f, err := gotrue.NewFactory(ctx, gotrue.Config{
			Client:        hosted,
			Persister:     persister,
			RefreshMargin: cfg.RefreshMargin,
			JWKSURL:       cfg.JWKSURL,
			Issuer:        cfg.JWTIssuer,
			AutoRefresh:   true,
			Logger:        b.logger,
		})
		if err != nil {
			return err
		}
		b.Auth = f
		return nil
	default:
		return errors.Configuration(fmt.Sprintf("unknown auth mode %q", cfg.AuthMode))
	}
}

func (b *Backends) initData(ctx context.Context, cfg *config.AppConfig, hosted *backend.Client) error {
	switch cfg.Backend.DataMode {
	case config.DataModeMemory:
		b.Data = memstore.NewTicketStore()
		return nil
	case config.DataModeREST:
		b.Data = postgrest.NewTicketStore(hosted)
		return nil
	case config.DataModePostgres:
		db, err := ConnectDB(ctx, cfg.Postgres, b.logger)
		if err != nil {
			return err
		}
		b.DB = db
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, b.logger); err != nil {
				return err
			}
		}
		b.Data = data.NewTicketRepo(db)
		return nil
	default:
		return errors.Configuration(fmt.Sprintf("unknown data mode %q", cfg.Backend.DataMode))
	}
}

// Open builds and starts the client for key and waits for its session to
// resolve (or ctx to end). release closes the client and anything its auth
// provider holds open.
func (b *Backends) Open(ctx context.Context, key string) (*client.App, func(), error) {
	provider := b.Auth.Open(key)
	app, err := client.NewApp(client.AppOptions{
		Auth:                  provider,
		Tickets:               b.Tickets,
		ToastDuration:         b.ui.ToastDuration,
		AuthAttemptsPerMinute: b.ui.SignInRatePerMinute,
		Logger:                b.logger,
		Metrics:               b.metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	app.Start(ctx)
	select {
	case <-app.Session.Ready():
	case <-ctx.Done():
	}

	release := func() {
		app.Close()
		if c, ok := provider.(interface{ Close() }); ok {
			c.Close()
		}
	}
	return app, release, nil
}

// Close closes the database and Redis connections.
func (b *Backends) Close() error {
	var errs []error
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

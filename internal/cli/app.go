// Package cli assembles a bot from configuration and drives it from the terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bbkanego/seerbot"
	"github.com/bbkanego/seerbot/internal/adapters/file"
	seerhttp "github.com/bbkanego/seerbot/internal/adapters/http"
	"github.com/bbkanego/seerbot/internal/adapters/memory"
	"github.com/bbkanego/seerbot/internal/adapters/postgres"
	"github.com/bbkanego/seerbot/internal/adapters/redis"
	"github.com/bbkanego/seerbot/internal/adapters/sqlite"
	"github.com/bbkanego/seerbot/internal/config"
	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/observability"
	"github.com/bbkanego/seerbot/pkg/persistence/middleware"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SessionLister is implemented by the session stores that can enumerate their sessions.
type SessionLister interface {
	List(ctx context.Context) ([]string, error)
}

// App is a bot wired to the stores and telemetry named by a Config.
type App struct {
	Bot      *seerbot.Bot
	Catalog  ports.CatalogStore
	Sessions ports.SessionStore
	Lister   SessionLister
	Registry *prometheus.Registry
	Feed     *seerhttp.Feed
	Logger   *slog.Logger

	closers []io.Closer
}

// Close releases databases, clients and log files in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

type storage struct {
	catalog  ports.CatalogStore
	chats    ports.ChatStore
	txs      ports.TransactionStore
	sessions ports.SessionStore
	uow      ports.UnitOfWork
}

// Build opens what cfg names, seeds fixtures and creates the bot.
// Extra options are applied last and override the configured ones.
func Build(ctx context.Context, cfg *config.Config, extra ...seerbot.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{}
	built := false
	defer func() {
		if !built {
			_ = app.Close()
		}
	}()

	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		logger, closer := logging.NewFile(cfg.Log.File, level)
		app.Logger = logger
		app.closers = append(app.closers, closer)
	} else {
		app.Logger = logging.New(level)
	}

	st, err := app.openStorage(cfg)
	if err != nil {
		return nil, err
	}
	app.Catalog = st.catalog

	if cfg.Fixtures != "" {
		fx, err := file.LoadFixtures(cfg.Fixtures)
		if err != nil {
			return nil, err
		}
		if err := fx.Seed(ctx, st.catalog); err != nil {
			return nil, err
		}
		app.Logger.Info("fixtures loaded", "path", cfg.Fixtures, "bots", len(fx.Bots), "intents", len(fx.Intents))
	}

	sessions, locker, err := app.openSessions(cfg, st)
	if err != nil {
		return nil, err
	}
	if l, ok := sessions.(SessionLister); ok {
		app.Lister = l
	}
	if sessions, err = protect(sessions, cfg.Session); err != nil {
		return nil, err
	}
	app.Sessions = sessions

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(app.Registry)

	app.Feed = seerhttp.NewFeed()
	hooks := observability.Hooks(metrics, app.Logger)
	record := hooks.OnTransaction
	hooks.OnTransaction = func(ctx context.Context, tx *domain.Transaction) {
		if record != nil {
			record(ctx, tx)
		}
		app.Feed.Publish(ctx, tx)
	}

	models := nlp.NewRouter(nlp.NewFileSource(cfg.NLP.ModelDir)).
		Handle(nlp.NewHTTPSource(nlp.WithSourceLogger(app.Logger)), "http", "https")

	opts := []seerbot.Option{
		seerbot.WithLogger(app.Logger),
		seerbot.WithCatalog(st.catalog, st.catalog),
		seerbot.WithChatStore(st.chats),
		seerbot.WithTransactionStore(st.txs),
		seerbot.WithSessionStore(sessions),
		seerbot.WithUnitOfWork(st.uow),
		seerbot.WithModelSource(models),
		seerbot.WithMetrics(metrics),
		seerbot.WithLifecycleHooks(hooks),
		seerbot.WithCacheLimits(cfg.Cache.MaxEntries, cfg.Cache.IdleTimeout),
		seerbot.WithBuildTimeout(cfg.Cache.BuildTimeout),
		seerbot.WithMaxUtterance(cfg.MaxUtterance),
	}
	if locker != nil {
		opts = append(opts, seerbot.WithLocker(locker))
	}

	bot, err := seerbot.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	app.Bot = bot

	built = true
	return app, nil
}

func (a *App) openStorage(cfg *config.Config) (storage, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		a.closers = append(a.closers, db)
		return storage{db.Catalog(), db.Chats(), db.Transactions(), db.Sessions(), db}, nil
	case "postgres":
		db, err := postgres.Open(cfg.Database.URL, a.Logger)
		if err != nil {
			return storage{}, err
		}
		a.closers = append(a.closers, db)
		return storage{db.Catalog(), db.Chats(), db.Transactions(), db.Sessions(), db}, nil
	default:
		return storage{
			catalog:  memory.NewCatalog(),
			chats:    memory.NewChatStore(),
			txs:      memory.NewTransactionStore(),
			sessions: memory.NewSessionStore(),
			uow:      ports.NoTransaction,
		}, nil
	}
}

func (a *App) openSessions(cfg *config.Config, st storage) (ports.SessionStore, ports.DistributedLocker, error) {
	switch cfg.Session.Driver {
	case "storage":
		return st.sessions, nil, nil
	case "file":
		return file.NewSessionStore(cfg.Session.Dir), nil, nil
	case "redis":
		client, err := redis.NewClient(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client)
		store := redis.NewSessionStore(client, redis.WithTTL(cfg.Session.TTL), redis.WithPrefix(cfg.Session.Prefix))
		return store, redis.NewLocker(client, cfg.Session.Prefix), nil
	default:
		return memory.NewSessionStore(), nil, nil
	}
}

// protect masks and then encrypts snapshots as configured.
func protect(store ports.SessionStore, cfg config.SessionConfig) (ports.SessionStore, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		mw, err := middleware.NewPIIMasking(cfg.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	active, fallbacks, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallbacks})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

// Package di assembles the module's components from a single configuration:
// logger, database, cache, publisher, and the factories that wire cached
// repositories and services on top of them.
package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/notify"
	"github.com/goliatone/go-entity-store/pkg/logging"
	"github.com/goliatone/go-entity-store/repository"
	"github.com/goliatone/go-entity-store/repositorycache"
	"github.com/goliatone/go-entity-store/users"
)

// Container holds the shared singletons. Build one per process with
// NewContainer and hand its accessors to the components that need them.
type Container struct {
	cfg Config

	log       *zap.Logger
	db        *bun.DB
	cacheSvc  *cache.Service
	store     cache.Store
	publisher notify.Publisher
}

// NewContainer validates cfg and constructs every component, pinging the
// database once so a dead DSN fails at startup instead of on first use.
func NewContainer(cfg Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	cacheSvc, err := cache.New(cfg.Cache, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	var store cache.Store = cacheSvc
	if cfg.Metrics.Enabled {
		instrumented, err := cache.Instrument(cacheSvc, prometheus.DefaultRegisterer)
		if err != nil {
			db.Close()
			cacheSvc.Close()
			return nil, err
		}
		store = instrumented
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.Notify.Enabled {
		publisher, err = notify.NewNATSPublisher(cfg.Notify.NATS, log)
		if err != nil {
			db.Close()
			cacheSvc.Close()
			return nil, err
		}
	}

	return &Container{
		cfg:       cfg,
		log:       log,
		db:        db,
		cacheSvc:  cacheSvc,
		store:     store,
		publisher: publisher,
	}, nil
}

func openDatabase(cfg DatabaseConfig, log *zap.Logger) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("di: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite":
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("di: open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("di: unknown database driver %q", cfg.Driver)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.QueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("di: database ping: %w", err)
	}

	log.Info("database connected",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns))
	return db, nil
}

// Logger returns the process logger.
func (c *Container) Logger() *zap.Logger { return c.log }

// DB returns the shared database handle.
func (c *Container) DB() *bun.DB { return c.db }

// Cache returns the cache store, instrumented when metrics are enabled.
func (c *Container) Cache() cache.Store { return c.store }

// CacheService returns the underlying service, which carries Ping and the
// metrics snapshot beyond the Store interface.
func (c *Container) CacheService() *cache.Service { return c.cacheSvc }

// Publisher returns the created-event publisher.
func (c *Container) Publisher() notify.Publisher { return c.publisher }

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() Config { return c.cfg }

// UsersService builds the full user stack: repository, cached repository,
// and service, all on the container's singletons.
func (c *Container) UsersService() (*users.Service, error) {
	repo, err := users.NewRepository(c.db)
	if err != nil {
		return nil, err
	}
	cached := users.NewCachedRepository(repo, c.store, c.cfg.Cache.DefaultTTL)
	return users.NewService(cached, c.db, c.publisher, c.log), nil
}

// Health pings the database and the cache backend. Both must answer for
// the container to be considered healthy.
func (c *Container) Health(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("di: database unhealthy: %w", err)
	}
	if err := c.cacheSvc.Ping(ctx); err != nil {
		return fmt.Errorf("di: cache unhealthy: %w", err)
	}
	return nil
}

// Close releases every component. Safe to call once at shutdown.
func (c *Container) Close() error {
	var firstErr error
	if err := c.publisher.Close(); err != nil {
		firstErr = err
	}
	if err := c.cacheSvc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.log.Sync()
	return firstErr
}

// NewCachedRepository wires a cached repository for any entity type on the
// container's cache store. Methods cannot carry type parameters, so this is
// a package-level factory:
//
//	repo, _ := repository.New[Article](container.DB())
//	cached := di.NewCachedRepository(container, repo, repositorycache.DefaultKeys[Article](""))
func NewCachedRepository[T any](c *Container, base repository.Repository[T], keys repositorycache.Keys[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, c.store, keys,
		repositorycache.WithTTL[T](c.cfg.Cache.DefaultTTL),
		repositorycache.WithLogger[T](c.log))
}

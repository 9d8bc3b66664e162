package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/config"
	"github.com/oksasatya/tripdesk/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/tripdesk/internal/infrastructure/postgres"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

// Connect opens every backend the config enables and returns the handles plus
// a function closing them. Optional integrations that fail to come up are
// logged and left nil; only the primary store is fatal.
func Connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger, migrateUp bool) (StoreHandles, func(), error) {
	var h StoreHandles
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.UseMemoryStore() {
		logger.Warn("using the in-memory store; data is lost on exit")
		h.Memory = memory.NewStore()
	} else {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return h, closeAll, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		h.PG = pool
		if migrateUp {
			if err := RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
				closeAll()
				return StoreHandles{}, func() {}, fmt.Errorf("migrate: %w", err)
			}
		}
	}

	if cfg.RedisEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limiting fails open")
		}
		closers = append(closers, func() { _ = rdb.Close() })
		h.Redis = rdb
	}

	if cfg.GCSEnabled {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs disabled")
		} else {
			closers = append(closers, func() { _ = gcs.Close() })
			h.GCS = gcs
		}
	}

	if cfg.ESEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err == nil {
			err = helpers.EnsureUsersIndex(ctx, es, cfg.ESUsersIndex)
		}
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else {
			h.ES = es
		}
	}

	if cfg.RabbitMQEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq disabled; notifications are dropped")
		} else {
			closers = append(closers, pub.Close)
			h.RabbitPub = pub
		}
	}

	return h, closeAll, nil
}

// RunMigrations applies the SQL files under dir through database/sql with the pgx driver.
func RunMigrations(dsn, dir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

package initializer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/banking/infra"
	infra_eventbus "github.com/amirasaad/banking/infra/eventbus"
	infra_repository "github.com/amirasaad/banking/infra/repository"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/eventbus"
	"github.com/amirasaad/banking/pkg/notify"
)

// InitializeDependencies initializes all the application dependencies.
// The returned cleanup closes the event bus and the database pool.
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	cleanup func() error,
	err error,
) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	// Initialize database
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	// Initialize unit of work
	deps.Uow = infra_repository.NewUoW(db)

	// Initialize event bus
	bus, err := initEventBus(cfg, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	deps.EventBus = bus

	// Initialize notifier
	deps.Notifier, err = notify.New(cfg.Notify, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	cleanup = func() error {
		var errs []error
		if c, ok := bus.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		errs = append(errs, sqlDB.Close())
		return errors.Join(errs...)
	}
	return deps, cleanup, nil
}

// initEventBus builds the bus named by cfg.EventBus.Driver. A broker that
// cannot be reached falls back to the in-memory bus; events stay in the
// outbox either way, so nothing is lost while the broker is down.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := ""
	if cfg.EventBus != nil {
		driver = cfg.EventBus.Driver
	}
	switch driver {
	case "", "memory":
		logger.Info("Using in-memory event bus")
		return infra_eventbus.NewWithMemory(logger), nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, errors.New("redis event bus requires REDIS_URL")
		}
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.Group, events.EventTypes, logger)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory event bus", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	case "kafka":
		if cfg.Kafka == nil || len(cfg.Kafka.Brokers) == 0 {
			return nil, errors.New("kafka event bus requires KAFKA_BROKERS")
		}
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, events.EventTypes, logger)
		if err != nil {
			logger.Warn("Kafka unavailable, falling back to in-memory event bus", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	}
	return nil, fmt.Errorf("unknown event bus driver %q", driver)
}

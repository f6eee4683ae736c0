/*-------------------------------------------------------------------------
 *
 * app.go
 *    Process bootstrap shared by the server and the CLI
 *
 * Opens the database, builds the query layer, the event broker with its
 * backends, the notification dispatcher and the approval manager.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/app/app.go
 *
 *-------------------------------------------------------------------------
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/notifications"
)

/* ErrBackendUnsupported is returned for a postgres event backend on another driver */
var ErrBackendUnsupported = errors.New("event backend not supported by database driver")

/* App holds the wired components of one process */
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	DB         *sqlx.DB
	Queries    *db.Queries
	Broker     *events.Broker
	Dispatcher *notifications.Dispatcher
	Manager    *approval.Manager

	source string
}

/* TablesFromConfig maps the tables and users sections to physical names */
func TablesFromConfig(cfg *config.Config) db.Tables {
	return db.Tables{
		Contacts:        cfg.Tables.Contacts,
		ContactUser:     cfg.Tables.ContactUser,
		Approvals:       cfg.Tables.Approvals,
		ApprovalRecords: cfg.Tables.ApprovalRecords,
		Notifications:   cfg.Tables.Notifications,
		Users:           cfg.Users.Table,
		UserIDType:      cfg.Users.IDType,
		UserName:        cfg.Users.NameColumn,
		UserEmail:       cfg.Users.EmailColumn,
	}
}

/* NewLogger builds the process logger from the logging section */
func NewLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Options{
		Enabled: cfg.Logging.Enabled,
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
	})
}

/* New connects and wires every component; source tags emitted events */
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, source string) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	database, err := db.ConnectWithRetry(ctx, cfg.Database.Driver, cfg.Database.DSN(), db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      database,
		Queries: db.NewQueries(database, TablesFromConfig(cfg)),
		source:  source,
	}

	if cfg.Database.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
	}

	a.Broker, err = newBroker(cfg, database, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	a.Dispatcher, err = notifications.FromConfig(cfg, a.Queries, logger)
	if err != nil {
		a.Broker.Disable()
		database.Close()
		return nil, err
	}

	opts := approval.OptionsFromConfig(cfg)
	opts.Source = source
	a.Manager = approval.NewManager(a.Queries, a.Broker, a.Dispatcher, nil, opts, logger)

	logger.Info("Approval components initialized", map[string]interface{}{
		"driver":                db.DriverName(cfg.Database.Driver),
		"event_backends":        cfg.Events.Backends,
		"notification_channels": a.Dispatcher.Channels(),
		"source":                source,
	})
	return a, nil
}

func newBroker(cfg *config.Config, database *sqlx.DB, logger *logging.Logger) (*events.Broker, error) {
	broker := events.NewBroker(logger)
	for _, name := range cfg.Events.Backends {
		switch name {
		case "log":
			broker.AddBackend(events.NewLogBackend(logger))
		case "postgres":
			if db.DialectFor(database.DriverName()) != db.DialectPostgres {
				return nil, fmt.Errorf("%w: backend='%s', driver='%s'", ErrBackendUnsupported, name, database.DriverName())
			}
			broker.AddBackend(events.NewPostgresBackend(database, cfg.Database.DSN(), cfg.Events.Channel, logger))
		default:
			return nil, fmt.Errorf("unknown event backend: %s", name)
		}
	}
	if !cfg.Events.Enabled {
		broker.Disable()
	}
	return broker, nil
}

/* Migrate creates the user table when missing and then the approval tables */
func (a *App) Migrate(ctx context.Context) error {
	tables := a.Queries.Tables()
	if err := db.EnsureUsersTable(ctx, a.DB, tables); err != nil {
		return err
	}
	if err := db.Migrate(ctx, a.DB, tables); err != nil {
		return err
	}
	a.Logger.Info("Migrations applied", map[string]interface{}{
		"dialect": string(a.Queries.Dialect()),
	})
	return nil
}

/* StartBridge relays events published by other processes to local subscribers */
func (a *App) StartBridge(ctx context.Context) error {
	return a.Broker.Bridge(ctx, a.source)
}

/* Close drains the notification queue, closes event backends and the database */
func (a *App) Close() error {
	a.Dispatcher.Close()
	var errs []error
	if err := a.Broker.Disable(); err != nil {
		errs = append(errs, err)
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close failed: %w", err))
	}
	return errors.Join(errs...)
}

// Package db opens the service database and brings its schema up to date.
package db

import (
	"embed"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres:// database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/models"
)

//go:embed migrations
var migrationsFS embed.FS

// retryDelay is the pause between connection attempts.
var retryDelay = 2 * time.Second

// Open connects to the configured database, retrying while it starts up.
func Open(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(NormalizeDSN(cfg.ConnString()))
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnString())
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	var (
		gdb *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		gdb, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			err = gdb.Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.WithFields(logrus.Fields{"attempt": i, "of": attempts}).WithError(err).Warn("database not ready")
		if i < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "connect database after %d attempts", attempts)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"dsn":    MaskDSN(cfg.ConnString()),
	}).Info("database connected")
	return gdb, nil
}

// Tables returns the models owned by service.
func Tables(service string) ([]any, error) {
	switch service {
	case config.ServiceInvoices:
		return models.InvoiceTables(), nil
	case config.ServiceWorkOrders:
		return models.WorkOrderTables(), nil
	}
	return nil, errors.Errorf("unknown service %q", service)
}

// Migrate brings the schema of service up to date. With MIGRATIONS set on
// postgres the embedded SQL files run through golang-migrate, otherwise the
// models are auto-migrated.
func Migrate(gdb *gorm.DB, cfg config.DatabaseConfig, service string, log logrus.FieldLogger) error {
	tables, err := Tables(service)
	if err != nil {
		return err
	}

	if cfg.Migrations && cfg.Driver == "postgres" {
		log.WithField("service", service).Info("running sql migrations")
		if err := runSQLMigrations(cfg, service, false); err != nil {
			return errors.Wrap(err, "sql migrations")
		}
	} else {
		for _, m := range tables {
			if err := gdb.AutoMigrate(m); err != nil {
				return errors.Wrapf(err, "automigrate %T", m)
			}
		}
	}

	for _, m := range tables {
		if !gdb.Migrator().HasTable(m) {
			return errors.Errorf("missing table for %T after migration", m)
		}
	}
	return nil
}

// Rollback reverts every SQL migration of service. Only postgres databases
// are managed by migration files.
func Rollback(cfg config.DatabaseConfig, service string) error {
	if cfg.Driver != "postgres" {
		return errors.Errorf("rollback needs the postgres driver, got %q", cfg.Driver)
	}
	return runSQLMigrations(cfg, service, true)
}

func runSQLMigrations(cfg config.DatabaseConfig, service string, down bool) error {
	if _, err := Tables(service); err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations/"+service)
	if err != nil {
		return errors.Wrap(err, "open migration files")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(cfg.ConnString())))
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

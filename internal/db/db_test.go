package db

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/models"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func memoryConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Retries: 1,
	}
}

func TestOpenAndMigrateInvoices(t *testing.T) {
	cfg := memoryConfig(t)
	gdb, err := Open(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Migrate(gdb, cfg, config.ServiceInvoices, quietLogger()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !gdb.Migrator().HasTable(&models.Invoice{}) || !gdb.Migrator().HasTable(&models.InvoiceItem{}) {
		t.Fatal("invoice tables missing")
	}
	if gdb.Migrator().HasTable(&models.WorkOrder{}) {
		t.Fatal("work order tables belong to the other service")
	}
}

func TestMigrateWorkOrdersIgnoresSQLFilesOnSqlite(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Migrations = true
	gdb, err := Open(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Migrate(gdb, cfg, config.ServiceWorkOrders, quietLogger()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !gdb.Migrator().HasTable("work_order_tasks") {
		t.Fatal("work_order_tasks missing")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "mysql"}, quietLogger()); err == nil {
		t.Fatal("expected error")
	}
}

func TestMigrateRejectsUnknownService(t *testing.T) {
	cfg := memoryConfig(t)
	gdb, err := Open(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Migrate(gdb, cfg, "reports", quietLogger()); err == nil {
		t.Fatal("expected error")
	}
	if err := Rollback(cfg, config.ServiceInvoices); err == nil {
		t.Fatal("rollback on sqlite should fail")
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for _, svc := range []string{config.ServiceInvoices, config.ServiceWorkOrders} {
		entries, err := migrationsFS.ReadDir("migrations/" + svc)
		if err != nil {
			t.Fatalf("%s: %v", svc, err)
		}
		if len(entries) != 2 {
			t.Fatalf("%s: want up and down files, got %d", svc, len(entries))
		}
	}
}

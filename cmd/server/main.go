package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/db"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "fieldops",
		Usage: "billing and work order services",
		Commands: []*cli.Command{
			serveCommand(config.ServiceInvoices, "serve the billing API"),
			serveCommand(config.ServiceWorkOrders, "serve the work order API"),
			migrateCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("fieldops failed")
	}
}

func serveCommand(service, usage string) *cli.Command {
	return &cli.Command{
		Name:  service,
		Usage: usage,
		Action: func(c *cli.Context) error {
			a, err := NewApp(service)
			if err != nil {
				return err
			}
			return a.Run(c.Context)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "bring a service schema up to date and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Usage: "invoices or workorders", Required: true},
			&cli.BoolFlag{Name: "down", Usage: "revert every sql migration instead"},
		},
		Action: func(c *cli.Context) error {
			service := c.String("service")
			cfg, log, err := setup(service)
			if err != nil {
				return err
			}
			if c.Bool("down") {
				if err := db.Rollback(cfg.DatabaseConfig, service); err != nil {
					return err
				}
				log.Info("migrations reverted")
				return nil
			}
			gdb, err := db.Open(cfg.DatabaseConfig, log)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb, cfg.DatabaseConfig, service, log); err != nil {
				return err
			}
			log.Info("migrations completed")
			return nil
		},
	}
}

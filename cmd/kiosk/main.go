package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"kiosk/pkg/config"
	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
	"kiosk/pkg/infrastructure/cleancloud"
	"kiosk/pkg/infrastructure/event"
	"kiosk/pkg/infrastructure/huebsch"
	"kiosk/pkg/infrastructure/memory"
	"kiosk/pkg/infrastructure/mysql"
	"kiosk/pkg/infrastructure/payments"
	"kiosk/pkg/transport"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on the environment")
	}

	app := &cli.App{
		Name:  "kiosk",
		Usage: "self-service laundromat kiosk",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the kiosk HTTP server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: "migrations",
						Usage: "directory with migration files",
					},
				},
				Action: runMigrations,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("kiosk terminated")
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	catalog := model.DefaultCatalog()
	directory := model.NewDirectory(catalog.Machines())

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	dispatcher := event.NewLoggingDispatcher()
	controller := huebsch.NewClient(cfg.HuebschBaseURL, cfg.HTTPClientTimeout)
	orders := cleancloud.NewClient(cfg.CleanCloudBaseURL, cfg.CleanCloudAPIKey, cfg.HTTPClientTimeout)
	terminal := payments.NewClient(cfg.PaymentsBaseURL, cfg.HTTPClientTimeout)

	cart := service.NewCartService(repo, catalog, directory, dispatcher)
	status := service.NewStatusService(controller, directory, cart)
	checkout := service.NewCheckoutService(service.CheckoutDeps{
		Cart:         cart,
		Availability: controller,
		Payments:     terminal,
		Orders:       orders,
		Starter:      controller,
		Dispatcher:   dispatcher,
	})

	if err := cart.Init(context.Background()); err != nil {
		return err
	}

	router := transport.Router(cart, checkout, status, orders, directory)

	log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "kiosk": cfg.KioskID}).Info("Starting server")

	killSignalChan := getKillSignalChan()
	srv := startServer(cfg.HTTPAddr, router)

	waitForKillSignalChan(killSignalChan)
	return srv.Shutdown(context.Background())
}

func buildRepository(cfg *config.Config) (model.CartRepository, func(), error) {
	if cfg.DatabaseDSN == "" {
		log.Warn("No database configured, cart state is in memory only")
		return memory.NewCartRepository(), func() {}, nil
	}

	db, err := sqlx.Connect("mysql", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return mysql.NewCartRepository(db, cfg.KioskID), func() { db.Close() }, nil
}

func runMigrations(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseDSN == "" {
		return cli.Exit("KIOSK_DATABASE_DSN is required for migrations", 1)
	}

	m, err := migrate.New("file://"+c.String("path"), "mysql://"+cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	log.Info("Migrations applied")
	return nil
}

func startServer(addr string, router http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	return srv
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignalChan(killSignalChan <-chan os.Signal) {
	killSignal := <-killSignalChan
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightorders/api"
	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/auth"
	"github.com/Domenick1991/flightorders/internal/bootstrap"
	"github.com/Domenick1991/flightorders/internal/cache"
	"github.com/Domenick1991/flightorders/internal/logger"
	"github.com/Domenick1991/flightorders/internal/migrations"
	"github.com/Domenick1991/flightorders/internal/service/flights"
	"github.com/Domenick1991/flightorders/internal/service/inventory"
	"github.com/Domenick1991/flightorders/internal/service/orders"
	"github.com/Domenick1991/flightorders/internal/service/users"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "flightorders",
		Usage: "flight booking API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
				Usage:   "path to the YAML config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "memory", Usage: "keep data in process instead of postgres and redis"},
				},
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back database migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Action: migrate(migrations.Up)},
					{Name: "down", Action: migrate(migrations.Down)},
				},
			},
			{
				Name:  "create-staff",
				Usage: "create a staff account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"STAFF_PASSWORD"}},
				},
				Action: createStaff,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("flightorders")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, errors.Wrap(err, "setup logger")
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		backend     *bootstrap.Backend
		flightCache flights.FlightCache
		orderOpts   []orders.OrderServiceOption
	)
	health := []func(context.Context) error{}

	if c.Bool("memory") {
		log.Warn("running on the in-memory store, data is not persisted")
		backend = bootstrap.NewMemoryBackend()
	} else {
		backend, err = bootstrap.NewPostgresBackend(ctx, cfg.Database)
		if err != nil {
			return err
		}
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()
		redisCache := cache.NewRedisCache(client, cfg.Flights.CacheTTL())
		flightCache = redisCache
		orderOpts = append(orderOpts, orders.WithCache(redisCache))
		health = append(health, redisCache.Ping)
	}
	defer backend.Close()
	health = append(health, backend.Ping)

	issuer := auth.NewIssuer(cfg.Auth)
	orderService := orders.NewOrderService(
		backend.Tx,
		backend.Orders,
		backend.Users,
		inventory.New(backend.Flights),
		backend.Outbox,
		backend.History,
		orderOpts...,
	)
	router := api.NewRouter(api.Dependencies{
		Flights: flights.NewFlightService(backend.Tx, backend.Flights, backend.Orders, backend.Outbox, flightCache),
		Orders:  orderService,
		Users:   users.NewUserService(backend.Users, issuer, cfg.Auth.BcryptCost),
		Tokens:  issuer,
		Health: func(ctx context.Context) error {
			for _, check := range health {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		SwaggerDir: cfg.HTTP.SwaggerDir,
	})

	return bootstrap.Run(ctx, cfg, router)
}

func migrate(apply func(databaseURL string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if err := apply(cfg.Database.MigrateURL()); err != nil {
			return err
		}
		log.WithField("command", c.Command.Name).Info("migrations applied")
		return nil
	}
}

func createStaff(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	backend, err := bootstrap.NewPostgresBackend(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer backend.Close()

	service := users.NewUserService(backend.Users, auth.NewIssuer(cfg.Auth), cfg.Auth.BcryptCost)
	user, _, err := service.Register(c.Context, users.RegisterInput{
		Username:        c.String("username"),
		Email:           c.String("email"),
		FirstName:       c.String("first-name"),
		LastName:        c.String("last-name"),
		Password:        c.String("password"),
		ConfirmPassword: c.String("password"),
		IsStaff:         true,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"id": user.ID, "username": user.Username}).Info("staff user created")
	return nil
}

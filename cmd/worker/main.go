package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/audit"
	"github.com/Domenick1991/flightorders/internal/bootstrap"
	"github.com/Domenick1991/flightorders/internal/kafka"
	"github.com/Domenick1991/flightorders/internal/logger"
	"github.com/Domenick1991/flightorders/internal/outbox"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "flightorders-worker",
		Usage: "relay order events to kafka and record order history",
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
				Name:  "run",
				Usage: "start the outbox relay, the audit consumer and the metrics listener",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-relay", Usage: "do not publish the outbox"},
					&cli.BoolFlag{Name: "no-audit", Usage: "do not consume order events"},
				},
				Action: run,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("flightorders-worker")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return errors.Wrap(err, "setup logger")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.NewPostgresBackend(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer backend.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.WithError(err).Warn("kafka is not reachable yet")
	}
	cancel()

	errCh := make(chan error, 3)
	workers := 0

	if !c.Bool("no-relay") {
		workers++
		relay := outbox.NewRelay(backend.Outbox, producer, cfg.Kafka.OrderEventsTopic, cfg.Worker.PollInterval(), cfg.Worker.OutboxBatchSize,
			outbox.WithLease(cfg.Worker.Lease()))
		go func() { errCh <- errors.Wrap(relay.Run(ctx), "outbox relay") }()
	}

	if !c.Bool("no-audit") {
		workers++
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrderEventsTopic)
		defer consumer.Close()
		recorder := audit.NewRecorder(backend.History)
		go func() { errCh <- errors.Wrap(consumer.Consume(ctx, recorder.Handle), "audit consumer") }()
	}

	if cfg.Metrics.WorkerAddress != "" {
		workers++
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.WorkerAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() { errCh <- bootstrap.Serve(ctx, srv) }()
	}

	log.WithField("workers", workers).Info("worker started")

	// The first failure stops the rest.
	var firstErr error
	for i := 0; i < workers; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	log.Info("worker stopped")
	return firstErr
}

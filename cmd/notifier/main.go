// notifier consumes booking and admin notification messages from RabbitMQ
// and delivers them as emails.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/travel-notify/config"
	"github.com/glimte/travel-notify/dispatch"
	"github.com/glimte/travel-notify/internal/rabbitmq"
	"github.com/glimte/travel-notify/notify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		configPath string
		logJSON    bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	flag.Parse()

	logger := newLogger(logJSON)
	slog.SetDefault(logger)

	if err := run(logger, configPath); err != nil {
		logger.Error("notifier exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(json bool) *slog.Logger {
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func run(logger *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A broker connection is a hard startup dependency: fail fast rather
	// than serve without a consumer.
	conn := rabbitmq.NewConnectionManager(cfg.RabbitMQ.URL,
		rabbitmq.WithConnectionLogger(logger),
	)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer conn.Close()

	if err := declareTopology(conn, cfg); err != nil {
		return err
	}

	sender := notify.NewSMTPSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.FromName,
		notify.WithSMTPLogger(logger),
	)

	engine := dispatch.NewEngine(sender, dispatch.WithEngineLogger(logger))

	bookingConsumer := dispatch.NewQueueConsumer(
		cfg.RabbitMQ.BookingQueue,
		func(ctx context.Context, d amqp.Delivery) (dispatch.Decision, error) {
			return engine.HandleBookingDelivery(ctx, d.Headers, d.Body, d.MessageId)
		},
		dispatch.WithRetryPolicy(dispatch.RetryPolicy{
			MaxAttempts: cfg.RabbitMQ.RetryAttempts,
			Delay:       cfg.RabbitMQ.RetryDelay(),
		}),
		dispatch.WithConsumerTag("notifier-booking"),
		dispatch.WithConsumerLogger(logger),
	)

	// Admin notifications do not retry: any failure dead-letters at once.
	adminConsumer := dispatch.NewQueueConsumer(
		cfg.RabbitMQ.AdminQueue,
		func(ctx context.Context, d amqp.Delivery) (dispatch.Decision, error) {
			return engine.HandleAdminDelivery(ctx, d.Body, d.MessageId)
		},
		dispatch.WithConsumerTag("notifier-admin"),
		dispatch.WithConsumerLogger(logger),
	)

	metricsSrv := serveMetrics(cfg.Metrics.Addr, logger)

	var wg sync.WaitGroup
	for _, consumer := range []*dispatch.QueueConsumer{bookingConsumer, adminConsumer} {
		consumer := consumer
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped with error", "error", err)
			}
		}()
	}

	logger.Info("notifier started",
		"bookingQueue", cfg.RabbitMQ.BookingQueue,
		"adminQueue", cfg.RabbitMQ.AdminQueue,
		"metricsAddr", cfg.Metrics.Addr,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}

	return nil
}

func declareTopology(conn *rabbitmq.ConnectionManager, cfg *config.Config) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	topology := rabbitmq.NotificationTopology(cfg.RabbitMQ.DeadLetterExchange,
		rabbitmq.QueueSpec{Name: cfg.RabbitMQ.BookingQueue, DLQ: cfg.RabbitMQ.BookingDLQ},
		rabbitmq.QueueSpec{Name: cfg.RabbitMQ.AdminQueue, DLQ: cfg.RabbitMQ.AdminDLQ},
	)
	return topology.Declare(ch)
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}

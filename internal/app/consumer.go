package app

import (
	"context"
	"fxrelay/internal/adapters"
	"fxrelay/internal/adapters/cache"
	"fxrelay/internal/adapters/logsink"
	"fxrelay/internal/adapters/postgres"
	"fxrelay/internal/adapters/rabbitmq"
	"fxrelay/internal/api"
	"fxrelay/internal/config"
	"fxrelay/internal/platform/db"
	httpserver "fxrelay/internal/platform/http"
	"fxrelay/internal/rate"
	"fxrelay/internal/rate/handler"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	statusContinuous = "RabbitMQ Consumer is running."
	statusScheduled  = "RabbitMQ Consumer is running as a scheduled job."
)

// RunConsumer wires the subscriber in the configured mode next to the status server.
func RunConsumer() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	setupLogger(appCfg.Logging)
	logrus.Info("✅ Config initialization successful")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ratesLog := logsink.New(os.Stdout)
	if appCfg.Consumer.LogFile != "" {
		ratesLog, err = logsink.OpenFile(appCfg.Consumer.LogFile)
		if err != nil {
			logrus.WithError(err).Error("Failed to open processed rates log")
			return err
		}
	}
	defer func() { _ = ratesLog.Close() }()

	var journal adapters.ProcessedRatesRepository
	if appCfg.DbServer.Enabled() {
		startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err = db.Migrate(startupCtx, appCfg.DbServer.GetConnectionStr()); err != nil {
			logrus.WithError(err).Error("Error migrating db")
			return err
		}
		pool, poolErr := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
		if poolErr != nil {
			logrus.WithError(poolErr).Error("Error connecting to db")
			return poolErr
		}
		defer pool.Close()
		journal = postgres.NewProcessedRatesRepository(pool)
		logrus.Info("✅ Postgres journal enabled")
	}

	seen, err := cache.NewDeliveryCache(appCfg.Consumer.DedupMaxItems)
	if err != nil {
		return err
	}
	defer seen.Close()

	recorder := rate.NewRecorder(ratesLog, journal, seen, time.Duration(appCfg.Consumer.DedupTTLSeconds)*time.Second)
	manager := newManager(appCfg, rabbitmq.NewDialer(appCfg.Rabbit.Prefetch))
	subscriber := rate.NewSubscriber(manager, recorder)

	var latest handler.LatestRatesReader
	if journal != nil {
		latest = journal
	}

	runErr := make(chan error, 1)
	status := statusContinuous
	switch appCfg.Consumer.Mode {
	case config.ConsumerModeScheduled:
		status = statusScheduled
		scheduler := rate.NewScheduler(
			"poll-rates",
			appCfg.Consumer.PollSchedule,
			time.Duration(appCfg.Consumer.JobTimeoutSec)*time.Second,
			subscriber.PollOnce,
		)
		defer func() {
			if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
				logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
			}
		}()
		if startErr := scheduler.Start(ctx); startErr != nil {
			logrus.WithError(startErr).Error("Failed to start poll scheduler")
			return startErr
		}
		logrus.WithField("schedule", appCfg.Consumer.PollSchedule).Info("✅ Scheduled consumer started")
		runErr <- nil
	default:
		go func() {
			loopErr := subscriber.Run(ctx)
			if loopErr != nil {
				logrus.WithError(loopErr).Error("Consumer stopped")
				// take the server down with the loop
				stop()
			}
			runErr <- loopErr
		}()
	}

	router := api.NewConsumerRouter(handler.NewConsumerHandler(latest, status), latest != nil)

	logrus.Info("Starting http server")
	serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router)
	stop()
	if loopErr := <-runErr; loopErr != nil {
		return loopErr
	}
	if serverErr != nil {
		logrus.Errorf("HTTP server error: %v", serverErr)
	}
	return serverErr
}

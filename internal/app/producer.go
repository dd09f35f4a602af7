package app

import (
	"context"
	"fxrelay/internal/adapters/rabbitmq"
	"fxrelay/internal/adapters/ratesource"
	"fxrelay/internal/api"
	"fxrelay/internal/config"
	httpserver "fxrelay/internal/platform/http"
	"fxrelay/internal/rate"
	"fxrelay/internal/rate/handler"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// RunProducer wires the rate source, broker and HTTP trigger, and blocks until
// the process is signalled or the server fails.
func RunProducer() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	setupLogger(appCfg.Logging)
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpTimeout := time.Duration(appCfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	source := ratesource.NewClient(&http.Client{Timeout: httpTimeout}, appCfg.RatesAPI.URL)

	manager := newManager(appCfg, rabbitmq.NewDialer(appCfg.Rabbit.Prefetch))
	publisher := rate.NewPublisher(source, manager, appCfg.Rabbit.PublishTimeout())

	if appCfg.Producer.PublishSchedule != "" {
		scheduler := rate.NewScheduler(
			"publish-rates",
			appCfg.Producer.PublishSchedule,
			time.Duration(appCfg.Producer.JobTimeoutSec)*time.Second,
			publisher.SendJob,
		)
		defer func() {
			if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
				logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
			}
		}()
		if startErr := scheduler.Start(ctx); startErr != nil {
			logrus.WithError(startErr).Error("Failed to start publish scheduler")
			return startErr
		}
		logrus.WithField("schedule", appCfg.Producer.PublishSchedule).Info("✅ Scheduled publishing enabled")
	}

	router := api.NewProducerRouter(handler.NewProducerHandler(publisher), appCfg.Producer.StaticDir)

	logrus.Info("Starting http server")
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

package app

import (
	"fxrelay/internal/adapters/rabbitmq"
	"fxrelay/internal/broker"
	"fxrelay/internal/config"
	"os"

	"github.com/sirupsen/logrus"
)

func setupLogger(cfg config.Logging) {
	logrus.SetOutput(os.Stdout)
	if parsedLvl, parseErr := logrus.ParseLevel(cfg.Level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
}

func newManager(appCfg *config.AppConfig, dialer *rabbitmq.Dialer) *broker.Manager {
	target := broker.Target{URL: appCfg.Rabbit.URL, Queue: appCfg.Rabbit.Queue}
	if err := target.Validate(); err != nil {
		// reported again by every invocation
		logrus.WithError(err).Warn("Message broker is not configured")
	}
	return broker.NewManager(dialer, target, appCfg.Rabbit.ReconnectInterval())
}

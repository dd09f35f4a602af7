package main

import (
	"fxrelay/internal/app"

	"github.com/sirupsen/logrus"
)

// @title fxrelay API
// @version 1.0
// @description Currency rates relay through a durable message queue.
// @BasePath /api
func main() {
	if err := app.RunProducer(); err != nil {
		logrus.WithError(err).Fatal("Producer stopped")
	}
}

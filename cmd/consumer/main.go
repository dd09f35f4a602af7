package main

import (
	"fxrelay/internal/app"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := app.RunConsumer(); err != nil {
		logrus.WithError(err).Fatal("Consumer stopped")
	}
}

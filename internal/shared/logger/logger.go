package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns the process-wide zap.Logger, built once. Development
// config by default; set APP_ENV=production for the production encoder.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var err error
		if os.Getenv("APP_ENV") == "production" {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		if err != nil {
			panic("failed logger setup: " + err.Error())
		}
	})
	return logger
}

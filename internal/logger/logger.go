// Package logger provides the shared structured logger used by the
// services, the seeding and sync jobs, and the CLI.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init initializes the global logger for the given environment. Production
// logs as JSON; everything else gets a human-readable console encoder, which
// is what the seeding and recalc jobs print when run from the CLI.
func Init(env string) {
	once.Do(func() {
		var base *zap.Logger
		var err error

		if env == "production" {
			base, err = zap.NewProduction()
		} else {
			base, err = zap.NewDevelopment()
		}

		if err != nil {
			base = zap.NewNop()
		}

		sugar = base.Sugar()
	})
}

// Get returns the global sugared logger, initializing a development logger
// if Init has not run. Tests rely on this path.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Sync flushes buffered entries. Called once on CLI exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

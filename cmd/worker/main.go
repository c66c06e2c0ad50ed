package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/db"
	"smallbiznis-license/pkg/hashistack/secretmanager"
	"smallbiznis-license/pkg/logger"
	"smallbiznis-license/pkg/task"
	"smallbiznis-license/services/auditlog"
)

// The worker purges activation logs older than AUDIT_RETENTION.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		task.Client,
		task.Server,
		auditlog.WorkerModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func() fxevent.Logger {
	return fxevent.NopLogger
})

package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/db"
	"smallbiznis-license/pkg/gen"
	"smallbiznis-license/pkg/hashistack/secretmanager"
	"smallbiznis-license/pkg/hashistack/servicediscover"
	"smallbiznis-license/pkg/health"
	"smallbiznis-license/pkg/httpapi"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/pkg/logger"
	"smallbiznis-license/pkg/otelcol"
	"smallbiznis-license/pkg/profiling"
	"smallbiznis-license/pkg/redis"
	"smallbiznis-license/pkg/server"
	"smallbiznis-license/services/access"
	"smallbiznis-license/services/auditlog"
	"smallbiznis-license/services/license"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		gen.Module,
		i18n.Module,
		health.Module,
		httpapi.Module,
		access.Module,
		auditlog.Module,
		license.Module,
		license.HTTP,
		server.ProvideHTTPServer,
		server.ProvideGRPCServer,
		servicediscover.Module,
		profiling.Module,
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

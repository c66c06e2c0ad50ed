package license

import (
	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/httpapi"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("license.service",
	fx.Provide(
		NewRepository,
		provideKeyGenerator,
		provideMetrics,
		NewService,
	),
	fx.Invoke(migrate),
)

// HTTP mounts the registry routes on the shared gin engine.
var HTTP = fx.Module("license.http",
	fx.Provide(NewHandler),
	fx.Invoke(func(api *httpapi.API, h *Handler) { h.Register(api) }),
)

func provideKeyGenerator(cfg *config.Config) (KeyGenerator, error) {
	g, err := NewKeyGenerator(cfg.License.KeyPrefix)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func provideMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

func migrate(cfg *config.Config, db *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return db.AutoMigrate(&License{})
}

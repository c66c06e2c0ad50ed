package httpapi

import (
	"fmt"
	"net/http"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/gen"
	"smallbiznis-license/pkg/health"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewEngine,
		NewLimiter,
		NewAPI,
		func(e *gin.Engine) http.Handler { return e },
	),
	fx.Invoke(registerHealthEndpoint),
)

// API exposes the route groups services mount their handlers on.
type API struct {
	// Public is rate limited when RATE_LIMIT_ENABLE is set.
	Public *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// NewEngine builds the gin engine. ClientIP only honours X-Forwarded-For
// when the peer is listed in HTTP_SERVER_TRUSTED_PROXIES.
func NewEngine(cfg *config.Config, node *gen.SnowflakeNode, p *i18n.Printer) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.ContextWithFallback = true
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid HTTP_SERVER_TRUSTED_PROXIES: %w", err)
	}
	r.Use(
		middleware.RequestID(node),
		middleware.Tracing(),
		middleware.AccessLog(),
		middleware.Recovery(p),
		middleware.Error(p),
	)

	return r, nil
}

type limiterParams struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

// NewLimiter returns nil when rate limiting is disabled.
func NewLimiter(p limiterParams) middleware.Limiter {
	rl := p.Config.RateLimit
	if !rl.Enable {
		return nil
	}

	if p.Redis != nil {
		zap.L().Info("rate limiting enabled (redis)", zap.Int("limit", rl.Limit), zap.Duration("window", rl.Window))
		return middleware.NewRedisLimiter(p.Redis, rl.Limit, rl.Window)
	}

	zap.L().Info("rate limiting enabled (in-process)", zap.Int("limit", rl.Limit), zap.Duration("window", rl.Window))
	return middleware.NewLocalLimiter(rl.Limit, rl.Window)
}

type apiParams struct {
	fx.In
	Engine  *gin.Engine
	Printer *i18n.Printer
	Limiter middleware.Limiter `optional:"true"`
}

func NewAPI(p apiParams) *API {
	api := p.Engine.Group("/api")

	public := api.Group("")
	if p.Limiter != nil {
		public.Use(middleware.RateLimit(p.Limiter, p.Printer))
	}

	return &API{
		Public: public,
		Admin:  api.Group("/admin"),
	}
}

func registerHealthEndpoint(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var Module = fx.Module("health", fx.Provide(ProvideHealth))

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 2 * time.Second
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps,omitempty"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
	Check(ctx context.Context) Health
}

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type health struct {
	names   []string
	pingers []Pinger
}

type HealthParams struct {
	fx.In
	DB    *gorm.DB      `optional:"true"`
	Redis *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) HealthService {
	h := &health{}

	if p.DB != nil {
		db := p.DB
		h.add(db.Name(), PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}))
	}

	if p.Redis != nil {
		rdb := p.Redis
		h.add("redis", PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}

	return h
}

// New builds a HealthService over arbitrary dependencies.
func New(deps map[string]Pinger) HealthService {
	h := &health{}
	for name, p := range deps {
		h.add(name, p)
	}
	return h
}

func (h *health) add(name string, p Pinger) {
	h.names = append(h.names, name)
	h.pingers = append(h.pingers, p)
}

func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{
		Status:  StatusHealthy,
		Message: "OK",
	})
}

// Check pings every dependency concurrently.
func (h *health) Check(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	deps := make([]Dependency, len(h.pingers))
	var mu sync.Mutex
	healthy := true

	g, gctx := errgroup.WithContext(ctx)
	for i := range h.pingers {
		g.Go(func() error {
			dep := Dependency{Name: h.names[i], Status: StatusHealthy, Message: "OK"}
			if err := h.pingers[i].Ping(gctx); err != nil {
				dep.Status = StatusUnhealthy
				dep.Message = err.Error()
				mu.Lock()
				healthy = false
				mu.Unlock()
			}
			deps[i] = dep
			return nil
		})
	}
	_ = g.Wait()

	out := Health{Status: StatusHealthy, Message: "OK", Deps: deps}
	if !healthy {
		out.Status = StatusUnhealthy
		out.Message = "one or more dependencies are unavailable"
	}
	return out
}

func (h *health) Readiness(c *gin.Context) {
	res := h.Check(c.Request.Context())

	code := http.StatusOK
	if res.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

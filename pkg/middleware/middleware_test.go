package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/gen"
	"smallbiznis-license/pkg/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(rec, req)
	return rec
}

func TestErrorMapsBaseError(t *testing.T) {
	r := gin.New()
	r.Use(Error(i18n.NewPrinter("fr")))
	r.GET("/nf", func(c *gin.Context) {
		_ = c.Error(errutil.NotFound("Licence non trouvée", errors.New("record not found")))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: connection refused"))
	})

	rec := serve(r, http.MethodGet, "/nf")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Licence non trouvée", body["message"])
	require.Equal(t, "NOT_FOUND", body["code"])
	require.NotContains(t, rec.Body.String(), "record not found")

	rec = serve(r, http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	require.Equal(t, "Erreur serveur", body["message"])
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(i18n.NewPrinter("en")))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := serve(r, http.MethodGet, "/panic")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Server error", decode(t, rec)["message"])
}

func TestRequestID(t *testing.T) {
	node, err := gen.NewSnowflakeNode(1)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestID(node))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	rec := serve(r, http.MethodGet, "/")
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	require.Equal(t, rec.Header().Get(RequestIDHeader), rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Body.String())
}

type fakeCounter struct {
	counts  map[string]int64
	err     error
	expires int
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	f.expires++
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	limiter := NewRedisLimiter(counter, 2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.Use(RateLimit(limiter, i18n.NewPrinter("fr")))
	r.GET("/api/activate", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/activate").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/activate").Code)
	rec := serve(r, http.MethodGet, "/api/activate")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, false, decode(t, rec)["success"])
	require.Equal(t, 1, counter.expires)

	now = now.Add(time.Minute)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/activate").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("redis down")}
	limiter := NewRedisLimiter(counter, 1, time.Minute)

	r := gin.New()
	r.Use(RateLimit(limiter, i18n.NewPrinter("fr")))
	r.GET("/api/verify", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/verify").Code)
	}
}

func TestLocalLimiter(t *testing.T) {
	limiter := NewLocalLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "/api/activate", "10.0.0.1")
	require.True(t, ok)
	ok, _ = limiter.Allow(ctx, "/api/activate", "10.0.0.1")
	require.True(t, ok)
	ok, _ = limiter.Allow(ctx, "/api/activate", "10.0.0.1")
	require.False(t, ok)

	ok, _ = limiter.Allow(ctx, "/api/activate", "10.0.0.2")
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, _ = limiter.Allow(ctx, "/api/activate", "10.0.0.1")
	require.True(t, ok)
}

type sampleRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
	MachineID  string `json:"machine_id" validate:"required"`
}

func TestValidationDetails(t *testing.T) {
	err := Validate(&sampleRequest{LicenseKey: "X"})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 1)
	require.Equal(t, "machine_id", details[0].Field)
	require.Equal(t, "required", details[0].Message)

	require.NoError(t, Validate(&sampleRequest{LicenseKey: "X", MachineID: "M"}))
	require.Nil(t, ValidationDetails(errors.New("other")))
}

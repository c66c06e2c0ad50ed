package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smallbiznis-license/services/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestReadinessHealthyWithDB(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ProvideHealth(HealthParams{DB: db})

	r := gin.New()
	r.GET("/readyz", svc.Readiness)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusHealthy, body.Status)
	require.Len(t, body.Deps, 1)
}

func TestReadinessUnhealthy(t *testing.T) {
	svc := New(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	r := gin.New()
	r.GET("/readyz", svc.Readiness)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusUnhealthy, body.Status)
	require.Equal(t, "connection refused", body.Deps[0].Message)
}

func TestGRPCCheck(t *testing.T) {
	down := true
	svc := New(map[string]Pinger{
		"db": PingFunc(func(context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		}),
	})
	srv := NewGRPCServer(svc)
	ctx := context.Background()

	res, err := srv.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.Status)

	down = false
	res, err = srv.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)

	_, err = srv.Check(ctx, &healthpb.HealthCheckRequest{Service: "billing"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

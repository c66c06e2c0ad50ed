package profiling

import (
	"testing"

	"smallbiznis-license/pkg/config"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestNewConfig(t *testing.T) {
	cfg := &config.Config{AppName: "license", AppEnv: "production", AppVersion: "1.4.0"}
	cfg.Pyroscope.Addr = "http://pyroscope:4040"

	pc := NewConfig(cfg)
	require.Equal(t, "license", pc.ApplicationName)
	require.Equal(t, "http://pyroscope:4040", pc.ServerAddress)
	require.Contains(t, pc.ProfileTypes, pyroscope.ProfileCPU)
	require.Equal(t, "production", pc.Tags["env"])
}

func TestStartProfilingDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	require.NoError(t, StartProfiling(lc, &config.Config{}))
	lc.RequireStart().RequireStop()
}

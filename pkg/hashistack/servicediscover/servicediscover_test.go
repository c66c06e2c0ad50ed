package servicediscover

import (
	"testing"

	"smallbiznis-license/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestServicePort(t *testing.T) {
	for addr, want := range map[string]int{
		"8080":           8080,
		":9090":          9090,
		"127.0.0.1:7000": 7000,
	} {
		got, err := servicePort(addr)
		require.NoError(t, err, addr)
		require.Equal(t, want, got, addr)
	}

	_, err := servicePort("host:http")
	require.Error(t, err)
}

func TestNewConsulRegistry(t *testing.T) {
	r, err := NewConsulRegistry("127.0.0.1:8500", "license", "license-node1-8080", "node1", 8080)
	require.NoError(t, err)
	require.Equal(t, "license-node1-8080", r.service.ID)
	require.Equal(t, "http://node1:8080/readyz", r.service.Check.HTTP)
}

func TestRegisterConsulDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	require.NoError(t, registerConsul(lc, &config.Config{}))
	lc.RequireStart().RequireStop()
}

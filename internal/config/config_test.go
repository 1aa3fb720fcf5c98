package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfiguration_Defaults(t *testing.T) {
	cfg, err := NewConfiguration()
	require.NoError(t, err)
	assert.Equal(t, "INR", cfg.GatewayConfig.Currency)
	assert.Equal(t, 15*time.Minute, cfg.SweepConfig.PendingTimeout)
	assert.Equal(t, "@every 1m", cfg.SweepConfig.Schedule)
	assert.Equal(t, 10*time.Second, cfg.GatewayConfig.Timeout)
}

func TestNewConfiguration_Env(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("GATEWAY_CURRENCY", "USD")
	t.Setenv("PENDING_TIMEOUT", "5m")
	cfg, err := NewConfiguration()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerConfig.ServerAddress)
	assert.Equal(t, "USD", cfg.GatewayConfig.Currency)
	assert.Equal(t, 5*time.Minute, cfg.SweepConfig.PendingTimeout)
}

func TestParseFlagSet(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		args     []string
		expected string
	}{
		{name: "default flag when env is empty", args: nil, expected: ":8080"},
		{name: "env wins over default flag", env: ":9090", args: nil, expected: ":9090"},
		{name: "passed flag wins over env", env: ":9090", args: []string{"-a", ":7000"}, expected: ":7000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RUN_ADDRESS", tt.env)
			cfg, err := NewConfiguration()
			require.NoError(t, err)
			err = cfg.ParseFlagSet(flag.NewFlagSet("test", flag.ContinueOnError), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.ServerConfig.ServerAddress)
		})
	}
}

func TestParseFlagSet_RejectsNonPositiveTimeout(t *testing.T) {
	cfg, err := NewConfiguration()
	require.NoError(t, err)
	err = cfg.ParseFlagSet(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-t", "-1m"})
	assert.Error(t, err)
}

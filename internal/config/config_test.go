package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-lb-sim/internal/lb"
	"elastic-lb-sim/internal/scaling"
	"elastic-lb-sim/internal/traffic"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse(args))
	return Load(fs)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	want := &Config{
		Servers:         10,
		InitialServers:  1,
		ServerCapacity:  lb.DefaultServerCapacity,
		TrafficTicks:    1000,
		SimulationLog:   "simulation_log.txt",
		FirewallLog:     "firewall_log.txt",
		Scaling:         scaling.DefaultPolicy(),
		Traffic:         traffic.DefaultPattern(),
		Generator:       traffic.DefaultConfig(),
		LogLevel:        "info",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("default config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FlagsOverride(t *testing.T) {
	cfg, err := load(t,
		"--servers=4",
		"--initial-servers=2",
		"--initial-requests=-1",
		"--scale-up-queue=3",
		"--seed=99",
		"--tick-rate=20",
	)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Servers)
	assert.Equal(t, 2, cfg.InitialServers)
	assert.Equal(t, 400, cfg.InitialRequestCount())
	assert.Equal(t, 3.0, cfg.Scaling.ScaleUpQueue)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 20.0, cfg.TickRate)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LBSIM_SERVERS", "6")
	t.Setenv("LBSIM_SCALING_SCALE_DOWN_QUEUE", "0.25")
	t.Setenv("LBSIM_TRAFFIC_BURST_SIZE", "8")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Servers)
	assert.Equal(t, 0.25, cfg.Scaling.ScaleDownQueue)
	assert.Equal(t, 8, cfg.Traffic.BurstSize)

	cfg, err = load(t, "--servers=3")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Servers, "explicit flags beat the environment")
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers: 8
blocked_ips: deny.txt
scaling:
  scale_up_queue: 2.5
traffic:
  arrival_chance: 0.5
generator:
  subnet: "10.1.0."
`), 0o644))

	cfg, err := load(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Servers)
	assert.Equal(t, "deny.txt", cfg.BlockedIPs)
	assert.Equal(t, 2.5, cfg.Scaling.ScaleUpQueue)
	assert.Equal(t, 0.5, cfg.Scaling.ScaleDownQueue)
	assert.Equal(t, 0.5, cfg.Traffic.ArrivalChance)
	assert.Equal(t, "10.1.0.", cfg.Generator.Subnet)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoad_InvalidValuesAllReported(t *testing.T) {
	_, err := load(t, "--servers=0", "--server-capacity=0", "--log-level=loud", "--scale-down-queue=5")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "servers must be at least 1")
	assert.Contains(t, msg, "server capacity")
	assert.Contains(t, msg, "unknown log level")
	assert.Contains(t, msg, "scale-down")
}

func TestConfig_LBConfig(t *testing.T) {
	cfg, err := load(t, "--servers=3", "--log-dev", "--blocked-ips=deny.txt")
	require.NoError(t, err)

	got := cfg.LBConfig()
	assert.Equal(t, 3, got.MaxServers)
	assert.Equal(t, "deny.txt", got.BlockedIPSource)
	assert.True(t, got.CheckInvariants)

	cfg.LogSummary(testr.New(t))
}

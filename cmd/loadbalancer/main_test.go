package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked.txt")
	require.NoError(t, os.WriteFile(blocked, []byte("192.168.1.0\n192.168.1.1\n"), 0o644))

	simLog := filepath.Join(dir, "simulation_log.txt")
	metricsFile := filepath.Join(dir, "metrics.prom")
	code := run(context.Background(), []string{
		"--servers=3",
		"--traffic-ticks=50",
		"--initial-requests=20",
		"--seed=5",
		"--blocked-ips=" + blocked,
		"--simulation-log=" + simLog,
		"--firewall-log=" + filepath.Join(dir, "firewall_log.txt"),
		"--metrics-file=" + metricsFile,
		"--log-dev",
	})
	require.Equal(t, 0, code)

	logData, err := os.ReadFile(simLog)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "Simulation complete")

	metricsData, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(metricsData), "lbsim_requests_total"))
}

func TestRun_BadBlocklistExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	code := run(context.Background(), []string{
		"--blocked-ips=" + filepath.Join(dir, "missing.txt"),
		"--simulation-log=",
		"--firewall-log=",
	})
	assert.Equal(t, 1, code)
}

func TestRun_BadFlag(t *testing.T) {
	assert.Equal(t, 2, run(context.Background(), []string{"--no-such-flag"}))
	assert.Equal(t, 1, run(context.Background(), []string{"--servers=0", "--simulation-log=", "--firewall-log="}))
}

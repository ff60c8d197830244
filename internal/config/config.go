// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"elastic-lb-sim/internal/lb"
	"elastic-lb-sim/internal/logging"
	"elastic-lb-sim/internal/scaling"
	"elastic-lb-sim/internal/traffic"
)

// EnvPrefix is prepended to every environment variable, e.g. LBSIM_SERVERS.
const EnvPrefix = "LBSIM"

// Config holds the entire simulation configuration
type Config struct {
	Servers         int    `mapstructure:"servers"`
	InitialServers  int    `mapstructure:"initial_servers"`
	ServerCapacity  int    `mapstructure:"server_capacity"`
	Ticks           int    `mapstructure:"ticks"`
	TrafficTicks    int    `mapstructure:"traffic_ticks"`
	InitialRequests int    `mapstructure:"initial_requests"`
	BlockedIPs      string `mapstructure:"blocked_ips"`

	SimulationLog string  `mapstructure:"simulation_log"`
	FirewallLog   string  `mapstructure:"firewall_log"`
	MetricsFile   string  `mapstructure:"metrics_file"`
	Seed          uint64  `mapstructure:"seed"`
	TickRate      float64 `mapstructure:"tick_rate"`

	Scaling   scaling.Policy  `mapstructure:"scaling"`
	Traffic   traffic.Pattern `mapstructure:"traffic"`
	Generator traffic.Config  `mapstructure:"generator"`

	LogLevel        string `mapstructure:"log_level"`
	LogDev          bool   `mapstructure:"log_dev"`
	CheckInvariants bool   `mapstructure:"check_invariants"`
}

// flag name -> viper key
var flagKeys = map[string]string{
	"servers":                  "servers",
	"initial-servers":          "initial_servers",
	"server-capacity":          "server_capacity",
	"ticks":                    "ticks",
	"traffic-ticks":            "traffic_ticks",
	"initial-requests":         "initial_requests",
	"blocked-ips":              "blocked_ips",
	"simulation-log":           "simulation_log",
	"firewall-log":             "firewall_log",
	"metrics-file":             "metrics_file",
	"seed":                     "seed",
	"tick-rate":                "tick_rate",
	"scale-up-queue":           "scaling.scale_up_queue",
	"scale-down-queue":         "scaling.scale_down_queue",
	"scale-down-idle-fraction": "scaling.scale_down_idle_fraction",
	"log-level":                "log_level",
	"log-dev":                  "log_dev",
}

// NewFlagSet declares every command-line flag with its default.
func NewFlagSet(name string) *pflag.FlagSet {
	policy := scaling.DefaultPolicy()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "optional YAML/TOML/JSON config file")
	fs.Int("servers", 10, "maximum number of servers in the pool")
	fs.Int("initial-servers", 1, "servers active before the first tick")
	fs.Int("server-capacity", lb.DefaultServerCapacity, "requests a server may hold at once")
	fs.Int("ticks", 0, "hard limit on ticks, 0 for no limit")
	fs.Int("traffic-ticks", 1000, "ticks during which random traffic arrives")
	fs.Int("initial-requests", 0, "requests queued before the first tick, -1 for servers*100")
	fs.String("blocked-ips", "", "blocked IP list (text or .yaml), empty disables blocking")
	fs.String("simulation-log", "simulation_log.txt", "simulation log file, empty to disable")
	fs.String("firewall-log", "firewall_log.txt", "firewall log file, empty to disable")
	fs.String("metrics-file", "", "write Prometheus text metrics here on exit")
	fs.Uint64("seed", 0, "random seed, 0 picks one from the clock")
	fs.Float64("tick-rate", 0, "ticks per second, 0 runs unpaced")
	fs.Float64("scale-up-queue", policy.ScaleUpQueue, "average queue per server above which a server is added")
	fs.Float64("scale-down-queue", policy.ScaleDownQueue, "average queue per server below which a server may be removed")
	fs.Float64("scale-down-idle-fraction", policy.ScaleDownIdleFraction, "share of idle servers required to scale down")
	fs.String("log-level", "info", "info, verbose, debug, trace or a number")
	fs.Bool("log-dev", false, "human-readable logs and invariant checks")
	return fs
}

// Load layers defaults, the optional config file, LBSIM_* environment
// variables and explicitly set flags, in increasing priority.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	pattern := traffic.DefaultPattern()
	gen := traffic.DefaultConfig()
	v.SetDefault("traffic.arrival_chance", pattern.ArrivalChance)
	v.SetDefault("traffic.burst_chance", pattern.BurstChance)
	v.SetDefault("traffic.burst_size", pattern.BurstSize)
	v.SetDefault("generator.subnet", gen.Subnet)
	v.SetDefault("generator.min_work", gen.MinWork)
	v.SetDefault("generator.max_work", gen.MaxWork)
	v.SetDefault("check_invariants", false)

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every bad value, not just the first.
func (c *Config) Validate() error {
	var err error
	if c.Servers < 1 {
		err = multierr.Append(err, fmt.Errorf("servers must be at least 1, got %d", c.Servers))
	}
	if c.InitialServers < 1 || c.InitialServers > c.Servers {
		err = multierr.Append(err, fmt.Errorf("initial servers must be in [1, %d], got %d", c.Servers, c.InitialServers))
	}
	if c.ServerCapacity < 1 {
		err = multierr.Append(err, fmt.Errorf("server capacity must be at least 1, got %d", c.ServerCapacity))
	}
	if c.Ticks < 0 || c.TrafficTicks < 0 {
		err = multierr.Append(err, fmt.Errorf("tick counts must not be negative (ticks=%d, traffic ticks=%d)", c.Ticks, c.TrafficTicks))
	}
	if c.InitialRequests < -1 {
		err = multierr.Append(err, fmt.Errorf("initial requests must be -1 or more, got %d", c.InitialRequests))
	}
	if c.TickRate < 0 {
		err = multierr.Append(err, fmt.Errorf("tick rate must not be negative, got %v", c.TickRate))
	}
	if _, lerr := logging.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	err = multierr.Append(err, c.Scaling.Validate())
	err = multierr.Append(err, c.Traffic.Validate())
	return err
}

// InitialRequestCount resolves the -1 shorthand to servers*100.
func (c *Config) InitialRequestCount() int {
	if c.InitialRequests == -1 {
		return c.Servers * 100
	}
	return c.InitialRequests
}

// LBConfig returns the load balancer construction parameters.
func (c *Config) LBConfig() lb.Config {
	return lb.Config{
		MaxServers:      c.Servers,
		InitialServers:  c.InitialServers,
		ServerCapacity:  c.ServerCapacity,
		BlockedIPSource: c.BlockedIPs,
		Policy:          c.Scaling,
		CheckInvariants: c.CheckInvariants || c.LogDev,
	}
}

// LogSummary writes the effective configuration.
func (c *Config) LogSummary(log logr.Logger) {
	log.Info("[CONFIG] Server pool", "max", c.Servers, "initial", c.InitialServers, "capacity", c.ServerCapacity)
	log.Info("[CONFIG] Run length", "trafficTicks", c.TrafficTicks, "maxTicks", c.Ticks,
		"initialRequests", c.InitialRequestCount(), "tickRate", c.TickRate)
	log.Info("[CONFIG] Scaling", "scaleUpQueue", c.Scaling.ScaleUpQueue,
		"scaleDownQueue", c.Scaling.ScaleDownQueue, "scaleDownIdleFraction", c.Scaling.ScaleDownIdleFraction)
	log.Info("[CONFIG] Traffic", "arrivalChance", c.Traffic.ArrivalChance,
		"burstChance", c.Traffic.BurstChance, "burstSize", c.Traffic.BurstSize, "subnet", c.Generator.Subnet)
	log.Info("[CONFIG] Files", "blockedIPs", c.BlockedIPs, "simulationLog", c.SimulationLog,
		"firewallLog", c.FirewallLog, "metricsFile", c.MetricsFile)
}

// cmd/loadbalancer/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"elastic-lb-sim/internal/config"
	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/firewall"
	"elastic-lb-sim/internal/lb"
	"elastic-lb-sim/internal/logging"
	"elastic-lb-sim/internal/metrics"
	"elastic-lb-sim/internal/pacing"
	"elastic-lb-sim/internal/sim"
	"elastic-lb-sim/internal/traffic"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	// 1. Load configuration
	fs := config.NewFlagSet("loadbalancer")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load config: %v\n", err)
		return 1
	}

	// 2. Set up logging
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to create logger: %v\n", err)
		return 1
	}
	cfg.LogSummary(log)

	// 3. Metrics registry
	m, err := metrics.New(1000)
	if err != nil {
		log.Error(err, "Unable to create metrics")
		return 1
	}

	// 4. Event recorder with the simulation and firewall log files
	recorder, err := newRecorder(cfg, log)
	if err != nil {
		log.Error(err, "Unable to open log files")
		return 1
	}

	// 5. Create the load balancer (loads the blocklist first)
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	balancer, err := lb.New(cfg.LBConfig(),
		lb.WithLogger(log.WithName("lb")),
		lb.WithRecorder(recorder),
		lb.WithMetrics(m),
		lb.WithGenerator(traffic.NewRandom(cfg.Generator, seed)),
	)
	if err != nil {
		var cfgErr *firewall.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error(err, "Blocked IP list rejected", "source", cfgErr.Source)
		} else {
			log.Error(err, "Unable to create load balancer")
		}
		_ = recorder.Close()
		return 1
	}
	defer balancer.Close()

	// 6. Queue the initial requests
	queueInitialRequests(balancer, cfg.InitialRequestCount())

	// 7. Run the simulation until traffic stops and all queues drain
	driver := &sim.Driver{
		LB:           balancer,
		Pattern:      cfg.Traffic,
		Rand:         rand.New(rand.NewPCG(seed, seed>>1)),
		Pacer:        pacing.NewPacer(cfg.TickRate),
		MaxTicks:     cfg.Ticks,
		TrafficTicks: cfg.TrafficTicks,
		Log:          log.WithName("sim"),
	}
	summary, runErr := driver.Run(ctx)
	if runErr != nil {
		log.Info("Simulation interrupted", "reason", runErr.Error())
	}

	// 8. Dump metrics and report
	if cfg.MetricsFile != "" {
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			log.Error(err, "Unable to write metrics")
		}
	}
	log.Info("Simulation finished",
		"ticks", summary.Ticks,
		"served", summary.Stats.Completed,
		"blocked", summary.Stats.Blocked,
		"remainingQueue", summary.QueueLen,
		"busyServers", summary.BusyServers,
		"activeServers", summary.ActiveServers,
		"logFailures", recorder.Failures())
	return 0
}

// newRecorder fans events out to the logger, the simulation log and the
// firewall log (blocked requests only).
func newRecorder(cfg *config.Config, log logr.Logger) (*events.Recorder, error) {
	recorder := events.NewRecorder(1000, log.WithName("events"), events.LoggerSink{Log: log.WithName("sim")})
	if cfg.SimulationLog != "" {
		sink, err := events.NewFileSink(cfg.SimulationLog)
		if err != nil {
			_ = recorder.Close()
			return nil, err
		}
		recorder.AddSink(sink)
	}
	if cfg.FirewallLog != "" {
		sink, err := events.NewFileSink(cfg.FirewallLog)
		if err != nil {
			_ = recorder.Close()
			return nil, err
		}
		recorder.AddSink(events.KindFilter{Sink: sink, Kinds: []events.Kind{events.BlockedEvent}})
	}
	return recorder, nil
}

func queueInitialRequests(balancer *lb.LoadBalancer, n int) {
	if n <= 0 {
		return
	}
	admitted := 0
	for i := 0; i < n; i++ {
		if _, ok := balancer.AddRandomRequest(); ok {
			admitted++
		}
	}
	balancer.LogOutput(events.OutputEvent, "Initial requests queued", "requested", n, "admitted", admitted)
}

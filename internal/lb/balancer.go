// internal/lb/balancer.go
package lb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/firewall"
	"elastic-lb-sim/internal/metrics"
	"elastic-lb-sim/internal/queue"
	"elastic-lb-sim/internal/scaling"
	"elastic-lb-sim/internal/server"
	"elastic-lb-sim/internal/traffic"
)

// DefaultServerCapacity is the per-server task limit used when none is configured.
const DefaultServerCapacity = 4

// Config holds the construction parameters of a LoadBalancer.
type Config struct {
	MaxServers      int
	InitialServers  int
	ServerCapacity  int
	BlockedIPSource string
	Policy          scaling.Policy
	// CheckInvariants verifies the balancer state after every tick and
	// panics on a violation.
	CheckInvariants bool
}

func (c *Config) applyDefaults() {
	if c.InitialServers == 0 {
		c.InitialServers = 1
	}
	if c.ServerCapacity == 0 {
		c.ServerCapacity = DefaultServerCapacity
	}
	if c.Policy == (scaling.Policy{}) {
		c.Policy = scaling.DefaultPolicy()
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.MaxServers < 1 {
		errs = append(errs, fmt.Errorf("max servers must be at least 1, got %d", c.MaxServers))
	}
	if c.InitialServers < 1 || (c.MaxServers >= 1 && c.InitialServers > c.MaxServers) {
		errs = append(errs, fmt.Errorf("initial servers must be in [1, %d], got %d", c.MaxServers, c.InitialServers))
	}
	if c.ServerCapacity < 1 {
		errs = append(errs, fmt.Errorf("server capacity must be at least 1, got %d", c.ServerCapacity))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ServerCapacity >= 1 && c.Policy.ScaleUpQueue >= float64(c.ServerCapacity) {
		errs = append(errs, fmt.Errorf("scale-up queue threshold %.2f can never be exceeded with capacity %d",
			c.Policy.ScaleUpQueue, c.ServerCapacity))
	}
	return errors.Join(errs...)
}

// Option customizes a LoadBalancer at construction time.
type Option func(*LoadBalancer)

// WithGenerator sets the source of random request parameters.
func WithGenerator(g traffic.Generator) Option {
	return func(lb *LoadBalancer) { lb.generator = g }
}

// WithRecorder sets the event recorder that receives every log record.
func WithRecorder(r *events.Recorder) Option {
	return func(lb *LoadBalancer) { lb.recorder = r }
}

// WithMetrics sets the metrics collector fed on every tick.
func WithMetrics(m *metrics.Metrics) Option {
	return func(lb *LoadBalancer) { lb.metrics = m }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logr.Logger) Option {
	return func(lb *LoadBalancer) { lb.log = log }
}

// Stats counts requests by outcome since construction.
type Stats struct {
	Generated     int `json:"generated"`
	Admitted      int `json:"admitted"`
	Blocked       int `json:"blocked"`
	Dispatched    int `json:"dispatched"`
	Completed     int `json:"completed"`
	Redistributed int `json:"redistributed"`
	Requeued      int `json:"requeued"`
}

// LoadBalancer owns the request queue, the server pool and the blocklist,
// and advances them one tick at a time.
type LoadBalancer struct {
	mu sync.Mutex

	cfg          Config
	pool         *server.Pool
	requestQueue *queue.Queue
	blockedIPs   *firewall.Registry
	controller   *scaling.Controller

	generator traffic.Generator
	recorder  *events.Recorder
	metrics   *metrics.Metrics
	log       logr.Logger

	currentTime   int
	activeServers int
	stats         Stats
	closed        bool
}

// New validates cfg, loads the blocklist and activates the initial servers.
// A blocklist problem is returned as *firewall.ConfigError before any server
// is activated.
func New(cfg Config, opts ...Option) (*LoadBalancer, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load balancer config: %w", err)
	}

	lb := &LoadBalancer{
		cfg:          cfg,
		requestQueue: queue.New(),
		controller:   scaling.NewController(cfg.Policy),
		log:          logr.Discard(),
	}
	for _, opt := range opts {
		opt(lb)
	}
	if lb.generator == nil {
		lb.generator = traffic.NewRandom(traffic.DefaultConfig(), uint64(time.Now().UnixNano()))
	}
	if lb.recorder == nil {
		lb.recorder = events.NewRecorder(100, lb.log, events.LoggerSink{Log: lb.log})
	}
	if lb.metrics != nil {
		lb.recorder.OnFailure(func(error) { lb.metrics.RecordLogFailure() })
	}

	if err := lb.loadBlockedIPs(cfg.BlockedIPSource); err != nil {
		return nil, err
	}

	lb.pool = server.NewPool(cfg.MaxServers, cfg.ServerCapacity)
	for i := 0; i < cfg.InitialServers; i++ {
		lb.pool.Activate()
	}
	lb.activeServers = lb.pool.ActiveCount()
	lb.emit(events.OutputEvent, "Load balancer initialized",
		"active", lb.activeServers, "max", cfg.MaxServers, "capacity", cfg.ServerCapacity)
	return lb, nil
}

// Close releases the queue, the pool and the blocklist and closes the
// recorder sinks. Later calls are no-ops.
func (lb *LoadBalancer) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return nil
	}
	lb.emit(events.SummaryEvent, "Load balancer shutting down",
		"queue", lb.requestQueue.Len(), "completed", lb.stats.Completed)
	lb.closed = true
	lb.requestQueue.Drain()
	lb.pool.Release()
	lb.blockedIPs = nil
	lb.activeServers = 0
	return lb.recorder.Close()
}

// LogOutput publishes a simulation log record stamped with the current tick.
// kv is a list of alternating keys and values.
func (lb *LoadBalancer) LogOutput(kind events.Kind, msg string, kv ...any) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.emit(kind, msg, kv...)
}

func (lb *LoadBalancer) emit(kind events.Kind, msg string, kv ...any) {
	var fields map[string]any
	if len(kv) > 0 {
		fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			fields[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	lb.recorder.Publish(lb.currentTime, kind, msg, fields)
}

// CurrentTime returns the number of ticks executed so far.
func (lb *LoadBalancer) CurrentTime() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.currentTime
}

// ActiveServers returns the number of active servers.
func (lb *LoadBalancer) ActiveServers() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.activeServers
}

// MaxServers returns the pool size.
func (lb *LoadBalancer) MaxServers() int { return lb.cfg.MaxServers }

// QueueLen returns the number of requests waiting for a server.
func (lb *LoadBalancer) QueueLen() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.requestQueue.Len()
}

// Stats returns the request counters.
func (lb *LoadBalancer) Stats() Stats {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.stats
}

// Recorder returns the event recorder in use.
func (lb *LoadBalancer) Recorder() *events.Recorder { return lb.recorder }

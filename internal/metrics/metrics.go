// internal/metrics/metrics.go
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Sample is the per-tick load picture fed into the collectors.
type Sample struct {
	Tick         int     `json:"tick"`
	QueueLen     int     `json:"queueLen"`
	Active       int     `json:"activeServers"`
	Max          int     `json:"maxServers"`
	Idle         int     `json:"idleServers"`
	AverageQueue float64 `json:"averageQueue"`
}

// Metrics owns a private registry so independent simulations do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	activeServers prometheus.Gauge
	busyServers   prometheus.Gauge
	maxServers    prometheus.Gauge
	queueLength   prometheus.Gauge
	avgQueue      prometheus.Gauge
	idleServers   prometheus.Gauge
	tick          prometheus.Gauge
	requests      *prometheus.CounterVec
	scaleEvents   *prometheus.CounterVec
	logFailures   prometheus.Counter

	mutex            sync.RWMutex
	history          []Sample
	maxHistoryPoints int
}

// New creates and registers every collector.
func New(maxHistoryPoints int) (*Metrics, error) {
	if maxHistoryPoints <= 0 {
		maxHistoryPoints = 100 // Keep last 100 samples
	}

	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		activeServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_active_servers",
			Help: "Number of servers participating in dispatch",
		}),
		busyServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_busy_servers",
			Help: "Active servers with at least one queued task",
		}),
		maxServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_max_servers",
			Help: "Size of the server pool",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_queue_length",
			Help: "Requests waiting in the global queue",
		}),
		avgQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_average_server_queue",
			Help: "Mean task queue length over active servers",
		}),
		idleServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_idle_servers",
			Help: "Active servers with an empty task queue",
		}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbsim_tick",
			Help: "Current simulation tick",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lbsim_requests_total",
			Help: "Requests by outcome",
		}, []string{"outcome"}),
		scaleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lbsim_scale_events_total",
			Help: "Capacity changes by direction",
		}, []string{"direction"}),
		logFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lbsim_log_failures_total",
			Help: "Log sink writes that failed and were dropped",
		}),
		history:          make([]Sample, 0, maxHistoryPoints),
		maxHistoryPoints: maxHistoryPoints,
	}

	for _, c := range []prometheus.Collector{
		m.activeServers, m.busyServers, m.maxServers, m.queueLength, m.avgQueue, m.idleServers,
		m.tick, m.requests, m.scaleEvents, m.logFailures,
	} {
		if err := m.Registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Observe updates the gauges and appends the sample to the history.
func (m *Metrics) Observe(s Sample) {
	m.activeServers.Set(float64(s.Active))
	m.busyServers.Set(float64(s.Active - s.Idle))
	m.maxServers.Set(float64(s.Max))
	m.queueLength.Set(float64(s.QueueLen))
	m.avgQueue.Set(s.AverageQueue)
	m.idleServers.Set(float64(s.Idle))
	m.tick.Set(float64(s.Tick))

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.history) >= m.maxHistoryPoints {
		m.history = append(m.history[1:], s)
	} else {
		m.history = append(m.history, s)
	}
}

// RecordAdmitted counts a request that entered the queue.
func (m *Metrics) RecordAdmitted() { m.requests.WithLabelValues("admitted").Inc() }

// RecordBlocked counts a request rejected at admission.
func (m *Metrics) RecordBlocked() { m.requests.WithLabelValues("blocked").Inc() }

// RecordCompleted counts a request fully serviced.
func (m *Metrics) RecordCompleted() { m.requests.WithLabelValues("completed").Inc() }

// RecordScale counts a capacity change in the given direction.
func (m *Metrics) RecordScale(direction string) { m.scaleEvents.WithLabelValues(direction).Inc() }

// RecordLogFailure counts a dropped log write.
func (m *Metrics) RecordLogFailure() { m.logFailures.Inc() }

// History returns up to limit of the most recent samples, oldest first.
func (m *Metrics) History(limit int) []Sample {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	start := len(m.history) - limit

	result := make([]Sample, limit)
	copy(result, m.history[start:])
	return result
}

// WriteFile dumps the registry in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

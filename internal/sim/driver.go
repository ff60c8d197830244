// internal/sim/driver.go
package sim

import (
	"context"
	"math/rand/v2"

	"github.com/go-logr/logr"

	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/lb"
	"elastic-lb-sim/internal/logging"
	"elastic-lb-sim/internal/pacing"
	"elastic-lb-sim/internal/request"
	"elastic-lb-sim/internal/traffic"
)

// Balancer is the part of the load balancer the driver steps.
type Balancer interface {
	AddRandomRequest() (request.Request, bool)
	Tick() lb.Snapshot
	Snapshot() lb.Snapshot
	HasActiveTasks() bool
	LogOutput(kind events.Kind, msg string, kv ...any)
}

// Summary describes how a run ended.
type Summary struct {
	Ticks         int      `json:"ticks"`
	QueueLen      int      `json:"queueLen"`
	ActiveServers int      `json:"activeServers"`
	BusyServers   int      `json:"busyServers"`
	Stats         lb.Stats `json:"stats"`
	Interrupted   bool     `json:"interrupted"`
}

// Driver runs the tick loop: random arrivals while traffic lasts, then
// ticks until every queue has drained.
type Driver struct {
	LB      Balancer
	Pattern traffic.Pattern
	// Rand drives the arrival pattern. A nil Rand uses a fixed seed.
	Rand  *rand.Rand
	Pacer *pacing.Pacer
	// MaxTicks bounds the whole run. Zero means no bound.
	MaxTicks     int
	TrafficTicks int
	Log          logr.Logger
}

// Run executes ticks until traffic is over and no work is left, MaxTicks is
// reached or ctx is cancelled. Cancellation is only observed between ticks,
// so the balancer is always left in a consistent state.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	log := d.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	log.Info("Starting simulation", "trafficTicks", d.TrafficTicks, "maxTicks", d.MaxTicks)

	ticks := 0
	var runErr error
	for ticks < d.TrafficTicks || d.LB.HasActiveTasks() {
		if d.MaxTicks > 0 && ticks >= d.MaxTicks {
			log.Info("Tick limit reached with work outstanding", "maxTicks", d.MaxTicks)
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := d.Pacer.Wait(ctx); err != nil {
			runErr = err
			break
		}

		if ticks < d.TrafficTicks {
			d.inject(rng)
		}
		snap := d.LB.Tick()
		ticks++

		d.LB.LogOutput(events.OutputEvent, snap.String(),
			"queue", snap.QueueLen, "active", snap.ActiveServers,
			"max", snap.MaxServers, "idle", snap.IdleServers)
		log.V(logging.TRACE).Info("Tick complete", "tick", snap.Tick, "avgQueue", snap.AverageQueue)
	}

	summary := d.summarize(ticks, runErr != nil)
	d.LB.LogOutput(events.SummaryEvent, "Simulation complete",
		"ticks", summary.Ticks,
		"remainingQueue", summary.QueueLen,
		"busyServers", summary.BusyServers,
		"served", summary.Stats.Completed,
		"blocked", summary.Stats.Blocked,
		"interrupted", summary.Interrupted)
	return summary, runErr
}

func (d *Driver) inject(rng *rand.Rand) {
	n, surge := d.Pattern.Arrivals(rng)
	if surge {
		d.LB.LogOutput(events.SurgeEvent, "TRAFFIC SURGE", "requests", n)
	}
	for i := 0; i < n; i++ {
		d.LB.AddRandomRequest()
	}
}

func (d *Driver) summarize(ticks int, interrupted bool) Summary {
	snap := d.LB.Snapshot()
	s := Summary{
		Ticks:         ticks,
		QueueLen:      snap.QueueLen,
		ActiveServers: snap.ActiveServers,
		Stats:         snap.Stats,
		Interrupted:   interrupted,
	}
	for _, st := range snap.Servers {
		if st.QueueLen > 0 {
			s.BusyServers++
		}
	}
	return s
}

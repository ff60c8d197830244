package sim

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/lb"
	"elastic-lb-sim/internal/traffic"
)

func newBalancer(t *testing.T, maxServers int) (*lb.LoadBalancer, *events.Recorder) {
	t.Helper()
	log := testr.New(t)
	rec := events.NewRecorder(10000, log)
	b, err := lb.New(lb.Config{MaxServers: maxServers, CheckInvariants: true},
		lb.WithLogger(log),
		lb.WithRecorder(rec),
		lb.WithGenerator(traffic.NewRandom(traffic.DefaultConfig(), 42)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, rec
}

func TestRun_DrainsAfterTraffic(t *testing.T) {
	b, rec := newBalancer(t, 4)
	d := &Driver{
		LB:           b,
		Pattern:      traffic.DefaultPattern(),
		Rand:         rand.New(rand.NewPCG(3, 4)),
		TrafficTicks: 200,
		Log:          testr.New(t),
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.Ticks, 200)
	assert.Zero(t, summary.QueueLen)
	assert.Zero(t, summary.BusyServers)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, summary.Stats.Admitted, summary.Stats.Completed)
	assert.Equal(t, summary.Ticks, b.CurrentTime())
	assert.Equal(t, 1, rec.Count(events.SummaryEvent))
	assert.Equal(t, summary.Ticks, rec.Count(events.OutputEvent)-1, "one snapshot line per tick after the init line")
}

func TestRun_SurgeIsLogged(t *testing.T) {
	b, rec := newBalancer(t, 4)
	d := &Driver{
		LB:           b,
		Pattern:      traffic.Pattern{ArrivalChance: 1, BurstChance: 1, BurstSize: 5},
		TrafficTicks: 3,
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count(events.SurgeEvent))
	assert.Equal(t, 15, summary.Stats.Generated)
}

func TestRun_MaxTicksBoundsTheRun(t *testing.T) {
	b, _ := newBalancer(t, 2)
	d := &Driver{
		LB:           b,
		Pattern:      traffic.Pattern{ArrivalChance: 1, BurstChance: 0, BurstSize: 1},
		TrafficTicks: 1000,
		MaxTicks:     25,
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, summary.Ticks)
	assert.Equal(t, 25, summary.Stats.Generated)
}

// cancelAfter cancels the run once the balancer has ticked n times.
type cancelAfter struct {
	*lb.LoadBalancer
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Tick() lb.Snapshot {
	snap := c.LoadBalancer.Tick()
	if snap.Tick == c.n {
		c.cancel()
	}
	return snap
}

func TestRun_CancellationBetweenTicks(t *testing.T) {
	b, _ := newBalancer(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &Driver{
		LB:           &cancelAfter{LoadBalancer: b, n: 5, cancel: cancel},
		Pattern:      traffic.Pattern{ArrivalChance: 1, BurstChance: 0, BurstSize: 1},
		TrafficTicks: 100,
	}

	summary, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 5, summary.Ticks)
	assert.Equal(t, 5, b.CurrentTime())

	stats := b.Stats()
	inService := 0
	for _, st := range b.Snapshot().Servers {
		inService += st.QueueLen
	}
	assert.Equal(t, stats.Generated, b.QueueLen()+inService+stats.Completed+stats.Blocked)
}

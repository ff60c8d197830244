// internal/pacing/pacer.go
package pacing

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer spaces simulation ticks out in wall-clock time.
// A pacer with a non-positive rate only checks for cancellation.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rate    float64
}

// NewPacer creates a pacer allowing ticksPerSecond ticks per second.
func NewPacer(ticksPerSecond float64) *Pacer {
	p := &Pacer{}
	p.SetRate(ticksPerSecond)
	return p
}

// Wait blocks until the next tick may run or ctx is done. A nil pacer
// never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// SetRate changes the tick rate. Non-positive values disable pacing.
func (p *Pacer) SetRate(ticksPerSecond float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = ticksPerSecond
	if ticksPerSecond <= 0 {
		p.limiter = nil
		return
	}
	if p.limiter == nil {
		p.limiter = rate.NewLimiter(rate.Limit(ticksPerSecond), 1)
		return
	}
	p.limiter.SetLimit(rate.Limit(ticksPerSecond))
}

// Rate returns the configured ticks per second; 0 means unpaced.
func (p *Pacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate <= 0 {
		return 0
	}
	return p.rate
}

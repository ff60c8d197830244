// internal/scaling/controller.go
package scaling

import (
	"errors"
	"fmt"
)

// Action is what the controller wants done with capacity this tick.
type Action int

const (
	Hold Action = iota
	ScaleUp
	ScaleDown
)

func (a Action) String() string {
	switch a {
	case ScaleUp:
		return "up"
	case ScaleDown:
		return "down"
	default:
		return "hold"
	}
}

// Policy holds the water marks. ScaleDownQueue must sit strictly below
// ScaleUpQueue so the two triggers cannot fire on alternating ticks.
type Policy struct {
	// ScaleUpQueue is the high-water mark for the average queue per active server.
	ScaleUpQueue float64 `mapstructure:"scale_up_queue"`
	// ScaleDownQueue is the low-water mark for the average queue per active server.
	ScaleDownQueue float64 `mapstructure:"scale_down_queue"`
	// ScaleDownIdleFraction is the share of active servers that must be idle
	// before one is removed.
	ScaleDownIdleFraction float64 `mapstructure:"scale_down_idle_fraction"`
}

// DefaultPolicy scales up above 2 queued per server and down below 0.5
// with more than half the active servers idle.
func DefaultPolicy() Policy {
	return Policy{
		ScaleUpQueue:          2.0,
		ScaleDownQueue:        0.5,
		ScaleDownIdleFraction: 0.5,
	}
}

// Validate rejects policies without a hysteresis gap.
func (p Policy) Validate() error {
	var errs []error
	if p.ScaleUpQueue <= 0 {
		errs = append(errs, fmt.Errorf("scale-up queue threshold must be positive, got %v", p.ScaleUpQueue))
	}
	if p.ScaleDownQueue < 0 {
		errs = append(errs, fmt.Errorf("scale-down queue threshold must not be negative, got %v", p.ScaleDownQueue))
	}
	if p.ScaleDownQueue >= p.ScaleUpQueue {
		errs = append(errs, fmt.Errorf("scale-down queue threshold (%v) must be below scale-up threshold (%v)",
			p.ScaleDownQueue, p.ScaleUpQueue))
	}
	if p.ScaleDownIdleFraction <= 0 || p.ScaleDownIdleFraction > 1 {
		errs = append(errs, fmt.Errorf("scale-down idle fraction must be in (0,1], got %v", p.ScaleDownIdleFraction))
	}
	return errors.Join(errs...)
}

// Signals are the aggregate load figures the controller looks at.
type Signals struct {
	AverageQueue float64 // mean queue length over active servers
	Idle         int     // active servers with an empty queue
	Active       int
	Max          int
	Backlog      int // requests waiting in the global queue
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Action Action
	Reason string
}

// Controller applies a Policy to Signals. It holds no state between ticks.
type Controller struct {
	Policy Policy
}

// NewController creates a controller for the given policy.
func NewController(p Policy) *Controller {
	return &Controller{Policy: p}
}

// Evaluate decides whether capacity should change this tick.
func (c *Controller) Evaluate(s Signals) Decision {
	if up, reason := c.shouldScaleUp(s); up {
		return Decision{Action: ScaleUp, Reason: reason}
	}
	if down, reason := c.shouldScaleDown(s); down {
		return Decision{Action: ScaleDown, Reason: reason}
	}
	return Decision{Action: Hold}
}

func (c *Controller) shouldScaleUp(s Signals) (bool, string) {
	if s.Active >= s.Max {
		return false, ""
	}
	if s.AverageQueue <= c.Policy.ScaleUpQueue {
		return false, ""
	}
	return true, fmt.Sprintf("average queue %.2f above %.2f", s.AverageQueue, c.Policy.ScaleUpQueue)
}

func (c *Controller) shouldScaleDown(s Signals) (bool, string) {
	if s.Active <= 1 || s.Backlog > 0 {
		return false, ""
	}
	if s.AverageQueue >= c.Policy.ScaleDownQueue {
		return false, ""
	}
	idleMark := c.Policy.ScaleDownIdleFraction * float64(s.Active)
	if float64(s.Idle) <= idleMark {
		return false, ""
	}
	return true, fmt.Sprintf("%d of %d servers idle, average queue %.2f below %.2f",
		s.Idle, s.Active, s.AverageQueue, c.Policy.ScaleDownQueue)
}

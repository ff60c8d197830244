// internal/request/request.go
package request

import (
	"fmt"

	"github.com/google/uuid"
)

// Request is one client request flowing through the balancer.
// It is a value type and is never modified after New.
type Request struct {
	ID          string
	Origin      string
	Destination string
	Arrival     int // tick at which the request was created
	Work        int // ticks of service the request needs
}

// New creates a request with a fresh ID. Work below 1 is raised to 1 so every
// request occupies a server for at least one tick.
func New(origin, destination string, arrival, work int) Request {
	if work < 1 {
		work = 1
	}
	return Request{
		ID:          uuid.NewString(),
		Origin:      origin,
		Destination: destination,
		Arrival:     arrival,
		Work:        work,
	}
}

// String renders the request the way the simulation log prints it.
func (r Request) String() string {
	return fmt.Sprintf("%s -> %s, %d cycles", r.Origin, r.Destination, r.Work)
}

// internal/events/events.go
package events

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"elastic-lb-sim/internal/logging"
)

// Kind classifies a simulation event.
type Kind string

const (
	OutputEvent    Kind = "output"
	AdmittedEvent  Kind = "admitted"
	BlockedEvent   Kind = "blocked"
	DispatchEvent  Kind = "dispatch"
	CompletedEvent Kind = "completed"
	ScaleEvent     Kind = "scale"
	SurgeEvent     Kind = "surge"
	SummaryEvent   Kind = "summary"
)

// Event is one (tick, kind, payload) record.
type Event struct {
	Tick      int            `json:"tick"`
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives events. A failing sink never stops the simulation.
type Sink interface {
	Record(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Record(e Event) error { return f(e) }

// Recorder keeps a bounded event history and fans events out to sinks.
type Recorder struct {
	mu        sync.Mutex
	sinks     []Sink
	events    []Event
	maxEvents int
	failures  int
	onFailure func(error)
	log       logr.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder keeping the last maxEvents events.
func NewRecorder(maxEvents int, log logr.Logger, sinks ...Sink) *Recorder {
	if maxEvents <= 0 {
		maxEvents = 100 // Default to 100 events in history
	}
	return &Recorder{
		sinks:     sinks,
		events:    make([]Event, 0, maxEvents),
		maxEvents: maxEvents,
		log:       log,
		now:       time.Now,
	}
}

// AddSink registers another sink.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// OnFailure installs a callback invoked for every swallowed sink error.
func (r *Recorder) OnFailure(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFailure = fn
}

// Publish stores the event and hands it to every sink.
func (r *Recorder) Publish(tick int, kind Kind, message string, fields map[string]any) Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt := Event{
		Tick:      tick,
		Kind:      kind,
		Message:   message,
		Fields:    fields,
		Timestamp: r.now(),
	}

	if len(r.events) >= r.maxEvents {
		r.events = append(r.events[1:], evt)
	} else {
		r.events = append(r.events, evt)
	}

	for _, sink := range r.sinks {
		if err := sink.Record(evt); err != nil {
			r.failures++
			r.log.V(logging.DEBUG).Info("Event sink failed, event dropped", "kind", kind, "tick", tick, "err", err)
			if r.onFailure != nil {
				r.onFailure(err)
			}
		}
	}
	return evt
}

// GetRecentEvents returns up to limit of the most recent events, oldest first.
func (r *Recorder) GetRecentEvents(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	start := len(r.events) - limit

	result := make([]Event, limit)
	copy(result, r.events[start:])
	return result
}

// Count returns how many events of kind are still in the history.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Failures returns the number of sink errors swallowed so far.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Close closes every sink that implements io.Closer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, sink := range r.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing sink: %w", err))
			}
		}
	}
	r.sinks = nil
	return errors.Join(errs...)
}

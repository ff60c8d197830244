// internal/events/sinks.go
package events

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"elastic-lb-sim/internal/logging"
)

// LoggerSink writes events through a logr.Logger. Admitted, dispatched and
// completed requests are logged at debug verbosity. Firewall rejections stay
// at the default level so a normal run shows them.
type LoggerSink struct {
	Log logr.Logger
}

func (s LoggerSink) Record(e Event) error {
	kv := make([]any, 0, 4+2*len(e.Fields))
	kv = append(kv, "tick", e.Tick, "kind", string(e.Kind))
	for _, k := range sortedKeys(e.Fields) {
		kv = append(kv, k, e.Fields[k])
	}

	switch e.Kind {
	case AdmittedEvent, DispatchEvent, CompletedEvent:
		s.Log.V(logging.DEBUG).Info(e.Message, kv...)
	default:
		s.Log.Info(e.Message, kv...)
	}
	return nil
}

// FileSink appends one line per event to a file.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFileSink opens (or creates) path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &FileSink{path: path, f: f}, nil
}

func (s *FileSink) Record(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("log file %s is closed", s.path)
	}
	_, err := io.WriteString(s.f, FormatLine(e))
	return err
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// FormatLine renders an event as a single log line.
func FormatLine(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] tick=%d %s: %s", e.Timestamp.Format(time.RFC3339), e.Tick, strings.ToUpper(string(e.Kind)), e.Message)
	for _, k := range sortedKeys(e.Fields) {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	b.WriteByte('\n')
	return b.String()
}

// KindFilter passes only the listed kinds to the wrapped sink.
type KindFilter struct {
	Sink  Sink
	Kinds []Kind
}

func (f KindFilter) Record(e Event) error {
	for _, k := range f.Kinds {
		if k == e.Kind {
			return f.Sink.Record(e)
		}
	}
	return nil
}

// Close closes the wrapped sink when it can be closed.
func (f KindFilter) Close() error {
	if c, ok := f.Sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

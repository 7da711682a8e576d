// Package observability provides the structured event stream emitted by the
// batch runner and the checkpoint store, decoupled from standard output so
// tests can assert on emitted events instead of parsing text.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Event categories.
const (
	CategoryInfo     = "info"
	CategoryWarn     = "warn"
	CategoryProgress = "progress"
)

// Event represents a single observable occurrence during a run.
type Event struct {
	// Step names the component that emitted the event, e.g. "search" or "checkpoint".
	Step     string         `json:"step"`
	Category string         `json:"category"`
	Message  string         `json:"message"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Sink consumes events. Implementations must be safe for use from a single
// goroutine; the run loop serializes emission.
type Sink interface {
	Emit(event Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// ConsoleSink renders events as single lines on a writer. Info and progress
// events are suppressed unless verbose is set; warnings always print.
type ConsoleSink struct {
	out     io.Writer
	verbose bool
}

// NewConsoleSink creates a ConsoleSink writing to out.
func NewConsoleSink(out io.Writer, verbose bool) *ConsoleSink {
	return &ConsoleSink{out: out, verbose: verbose}
}

// Emit implements Sink.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (s *ConsoleSink) Emit(event Event) {
	if !s.verbose && event.Category != CategoryWarn && event.Category != CategoryProgress {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", event.Step, event.Message))
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, event.Fields[k]))
		}
	}
	fmt.Fprintln(s.out, sb.String())
}

// CaptureSink records every emitted event for later inspection in tests.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

// NewCaptureSink creates an empty CaptureSink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

// Emit implements Sink.
func (s *CaptureSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of all captured events in emission order.
func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByStep returns captured events emitted by the given step.
func (s *CaptureSink) ByStep(step string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Step == step {
			out = append(out, e)
		}
	}
	return out
}

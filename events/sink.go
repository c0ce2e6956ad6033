package events

import "sync"

// Sink receives the complete event trail of one committed operation.
// Implementations must apply a trail all-or-nothing.
type Sink interface {
	Emit(trail []Envelope) error
}

// NoopSink discards every trail.
type NoopSink struct{}

// Emit does nothing.
func (NoopSink) Emit([]Envelope) error { return nil }

// MemLog is an in-memory append-only event log.
type MemLog struct {
	mu      sync.RWMutex
	entries []Envelope
}

// NewMemLog creates an empty log.
func NewMemLog() *MemLog {
	return &MemLog{}
}

// Emit appends a trail.
func (l *MemLog) Emit(trail []Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, trail...)
	return nil
}

// All returns a copy of every entry in emission order.
func (l *MemLog) All() []Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Envelope, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByKind returns the events of one kind in emission order.
func (l *MemLog) ByKind(kind Kind) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if e.Kind() == kind {
			out = append(out, e.Event)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *MemLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset drops every entry.
func (l *MemLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// MultiSink fans a trail out to several sinks in order. A failure stops the
// fan-out; sinks earlier in the list keep what they received.
type MultiSink []Sink

// Emit forwards the trail to every sink.
func (m MultiSink) Emit(trail []Envelope) error {
	for _, s := range m {
		if err := s.Emit(trail); err != nil {
			return err
		}
	}
	return nil
}

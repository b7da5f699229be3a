package metrics

import (
	"sync"

	"github.com/anstrom/metricsd/internal/errors"
)

// Scope is a named grouping of instruments, typically one per subsystem. It
// owns the instrument lifecycle within its namespace: instruments are created
// lazily on first reference and are never removed during normal operation.
type Scope struct {
	name string

	mu          sync.RWMutex
	instruments map[string]*Instrument
	order       []string
}

func newScope(name string) *Scope {
	return &Scope{
		name:        name,
		instruments: make(map[string]*Instrument),
	}
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// GetOrCreateInstrument returns the existing instrument with the given name,
// creating it if absent. Concurrent calls with the same name yield exactly
// one instrument. Looking up an existing instrument with a different kind
// fails with a KIND_CONFLICT error.
func (s *Scope) GetOrCreateInstrument(name string, kind Kind) (*Instrument, error) {
	if name == "" {
		return nil, errors.ErrMissingInstrumentName()
	}
	if !kind.Valid() {
		return nil, errors.NewMetricErrorWithID(errors.CodeInvalidArgument,
			"unknown instrument kind "+string(kind), s.name, name)
	}

	s.mu.RLock()
	inst, ok := s.instruments[name]
	s.mu.RUnlock()
	if ok {
		if inst.kind != kind {
			return nil, errors.ErrKindConflict(s.name, name, string(inst.kind), string(kind))
		}
		return inst, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock; another goroutine may have won the race.
	if inst, ok := s.instruments[name]; ok {
		if inst.kind != kind {
			return nil, errors.ErrKindConflict(s.name, name, string(inst.kind), string(kind))
		}
		return inst, nil
	}

	inst = newInstrument(s.name, name, kind, nil)
	s.instruments[name] = inst
	s.order = append(s.order, name)
	return inst, nil
}

// Lookup returns the named instrument if it exists.
func (s *Scope) Lookup(name string) (*Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[name]
	return inst, ok
}

// Record applies a measurement to the named instrument. The call is a silent
// no-op when the instrument does not exist or is disabled.
func (s *Scope) Record(name string, value float64) {
	inst, ok := s.Lookup(name)
	if !ok {
		return
	}
	inst.Record(value)
}

// SetEnabled toggles whether the named instrument accepts recordings. It
// fails with NOT_FOUND if the instrument was never created.
func (s *Scope) SetEnabled(name string, enabled bool) error {
	inst, ok := s.Lookup(name)
	if !ok {
		return errors.ErrInstrumentNotFound(s.name, name)
	}
	inst.SetEnabled(enabled)
	return nil
}

// InstrumentNames returns the instrument names in creation order.
func (s *Scope) InstrumentNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// snapshot walks the scope's instruments in creation order. Each instrument
// is read under its own lock; no scope-wide lock is held while reading
// values, so writers on other instruments are never blocked.
func (s *Scope) snapshot() ScopeSnapshot {
	names := s.InstrumentNames()

	snap := ScopeSnapshot{
		Name:        s.name,
		Instruments: make([]InstrumentSnapshot, 0, len(names)),
	}
	for _, name := range names {
		if inst, ok := s.Lookup(name); ok {
			snap.Instruments = append(snap.Instruments, inst.snapshot())
		}
	}
	return snap
}

package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/anstrom/metricsd/internal/errors"
)

// reservedPrefix marks scopes used internally by the manager, such as the
// self-test scope. Reserved scopes never appear in dump output.
const reservedPrefix = "__"

// IsReservedScope reports whether a scope name is reserved for internal use.
func IsReservedScope(name string) bool {
	return strings.HasPrefix(name, reservedPrefix)
}

// Manager is the process-wide registry of measurement scopes. It is
// constructed once at process start and shared by reference with every
// collaborator; no scope or instrument is ever removed during normal
// operation, so references handed out stay valid for the process lifetime.
type Manager struct {
	mu     sync.RWMutex
	scopes map[string]*Scope
	order  []string

	// selfTestMu serializes self-test runs. The read-record-read sequence
	// spans several instrument lock acquisitions; overlapping runs would
	// observe each other's increments as read-back mismatches.
	selfTestMu sync.Mutex

	// selfTestReadBack intercepts the self-test read-back value. Nil in
	// normal operation; tests set it to simulate a faulty recording path.
	selfTestReadBack func(int64) int64
}

// NewManager creates an empty metrics manager.
func NewManager() *Manager {
	return &Manager{
		scopes: make(map[string]*Scope),
	}
}

// GetOrCreateScope returns the scope with the given name, atomically
// creating it if absent. Concurrent calls with the same name yield exactly
// one scope instance. An empty name fails with INVALID_ARGUMENT.
func (m *Manager) GetOrCreateScope(name string) (*Scope, error) {
	if name == "" {
		return nil, errors.ErrMissingScopeName()
	}

	m.mu.RLock()
	scope, ok := m.scopes[name]
	m.mu.RUnlock()
	if ok {
		return scope, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if scope, ok := m.scopes[name]; ok {
		return scope, nil
	}

	scope = newScope(name)
	m.scopes[name] = scope
	m.order = append(m.order, name)
	return scope, nil
}

// LookupScope returns the named scope if it was ever referenced.
func (m *Manager) LookupScope(name string) (*Scope, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope, ok := m.scopes[name]
	return scope, ok
}

// ScopeNames returns all scope names in creation order, which is stable
// within a single process run. Reserved scopes are included; dump-facing
// callers filter them.
func (m *Manager) ScopeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Enable toggles the enabled state of a (scope, instrument) pair. Both names
// must be non-empty, and both the scope and the instrument must have been
// created by a prior recording path; toggling an instrument that was never
// created has no effect and indicates a caller error, so it fails with
// NOT_FOUND. Safe to call concurrently with ongoing recordings on the same
// instrument.
func (m *Manager) Enable(scopeName, instrumentName string, status bool) error {
	if scopeName == "" {
		return errors.ErrMissingScopeName()
	}
	if instrumentName == "" {
		return errors.ErrMissingInstrumentName()
	}

	scope, ok := m.LookupScope(scopeName)
	if !ok {
		return errors.ErrScopeNotFound(scopeName)
	}
	return scope.SetEnabled(instrumentName, status)
}

// Dump produces a structured snapshot of every instrument's current value
// and enabled state. Scopes are walked in creation order and instruments
// within each scope likewise; each value is read under its own instrument
// lock, so per-instrument consistency holds without blocking concurrent
// writers. Reserved scopes (self-test state) are excluded. An empty registry
// yields an empty snapshot, never an error.
func (m *Manager) Dump() Snapshot {
	snap := Snapshot{
		TakenAt: time.Now().UTC(),
		Scopes:  []ScopeSnapshot{},
	}
	for _, name := range m.ScopeNames() {
		if IsReservedScope(name) {
			continue
		}
		if scope, ok := m.LookupScope(name); ok {
			snap.Scopes = append(snap.Scopes, scope.snapshot())
		}
	}
	return snap
}

// DumpScope produces the snapshot of a single scope. Reserved scopes are
// treated as absent.
func (m *Manager) DumpScope(name string) (ScopeSnapshot, error) {
	if name == "" {
		return ScopeSnapshot{}, errors.ErrMissingScopeName()
	}
	scope, ok := m.LookupScope(name)
	if !ok || IsReservedScope(name) {
		return ScopeSnapshot{}, errors.ErrScopeNotFound(name)
	}
	return scope.snapshot(), nil
}

// InstrumentInfo identifies one registered instrument and its current
// enabled state.
type InstrumentInfo struct {
	Scope   string `json:"scope"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// ListInstruments returns identity and enabled state for every registered
// instrument, in deterministic creation order. Reserved scopes are excluded.
func (m *Manager) ListInstruments() []InstrumentInfo {
	infos := []InstrumentInfo{}
	for _, scopeName := range m.ScopeNames() {
		if IsReservedScope(scopeName) {
			continue
		}
		scope, ok := m.LookupScope(scopeName)
		if !ok {
			continue
		}
		for _, name := range scope.InstrumentNames() {
			inst, ok := scope.Lookup(name)
			if !ok {
				continue
			}
			infos = append(infos, InstrumentInfo{
				Scope:   scopeName,
				Name:    name,
				Kind:    inst.Kind(),
				Enabled: inst.Enabled(),
			})
		}
	}
	return infos
}

// Convenience recording helpers. These create the scope and instrument on
// first use, then apply the measurement; they are what instrumented code
// paths inside metricsd itself call.

// Count adds a delta to a counter instrument.
func (m *Manager) Count(scopeName, instrumentName string, delta int64) error {
	return m.record(scopeName, instrumentName, KindCounter, float64(delta))
}

// Set sets a gauge instrument to the given value.
func (m *Manager) Set(scopeName, instrumentName string, value float64) error {
	return m.record(scopeName, instrumentName, KindGauge, value)
}

// Observe records a value into a histogram instrument.
func (m *Manager) Observe(scopeName, instrumentName string, value float64) error {
	return m.record(scopeName, instrumentName, KindHistogram, value)
}

func (m *Manager) record(scopeName, instrumentName string, kind Kind, value float64) error {
	scope, err := m.GetOrCreateScope(scopeName)
	if err != nil {
		return err
	}
	inst, err := scope.GetOrCreateInstrument(instrumentName, kind)
	if err != nil {
		return err
	}
	inst.Record(value)
	return nil
}

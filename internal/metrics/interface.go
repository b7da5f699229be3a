// Package metrics provides the manager interface consumed by the API layer.
package metrics

// API defines the operation surface the request-handling layer calls into.
// This interface allows for easy mocking and testing of handler code.
type API interface {
	// Dump returns a point-in-time snapshot of all non-reserved instruments.
	Dump() Snapshot

	// DumpScope returns the snapshot of a single scope.
	DumpScope(name string) (ScopeSnapshot, error)

	// ListInstruments returns identity and enabled state for every
	// registered instrument.
	ListInstruments() []InstrumentInfo

	// Enable toggles the enabled state of a (scope, instrument) pair.
	Enable(scopeName, instrumentName string, status bool) error

	// SelfTest exercises the recording path and verifies read-back.
	SelfTest() error
}

// Ensure that Manager implements the API interface.
var _ API = (*Manager)(nil)

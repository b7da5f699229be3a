package metrics

import (
	"fmt"

	"github.com/anstrom/metricsd/internal/errors"
)

// Self-test state lives in a reserved scope so it never pollutes dump
// output. The scope and instrument are created on first self-test and
// reused afterwards.
const (
	selfTestScope      = reservedPrefix + "selftest"
	selfTestInstrument = "roundtrip"
)

// SelfTest exercises the full recording path: it creates (or reuses) the
// reserved self-test instrument, records a single increment, reads the value
// back, and verifies the increment is visible. A mismatch or any internal
// failure returns a SELF_TEST_FAILURE error carrying a diagnostic; the
// registry stays fully usable afterwards. Runs are serialized, so concurrent
// callers each see their own increment.
func (m *Manager) SelfTest() error {
	m.selfTestMu.Lock()
	defer m.selfTestMu.Unlock()

	scope, err := m.GetOrCreateScope(selfTestScope)
	if err != nil {
		return errors.ErrSelfTest("create scope: " + err.Error())
	}

	inst, err := scope.GetOrCreateInstrument(selfTestInstrument, KindCounter)
	if err != nil {
		return errors.ErrSelfTest("create instrument: " + err.Error())
	}

	// The reserved instrument must accept the recording even if a previous
	// run left it disabled.
	inst.SetEnabled(true)

	before := counterValue(inst)
	inst.Record(1)
	after := counterValue(inst)

	if m.selfTestReadBack != nil {
		after = m.selfTestReadBack(after)
	}

	if after != before+1 {
		return errors.ErrSelfTest(fmt.Sprintf(
			"recorded 1 into %s/%s, expected read-back %d, got %d",
			selfTestScope, selfTestInstrument, before+1, after))
	}
	return nil
}

func counterValue(inst *Instrument) int64 {
	snap := inst.snapshot()
	if snap.Counter == nil {
		return 0
	}
	return *snap.Counter
}

package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/anstrom/metricsd/internal/errors"
)

func TestSelfTest(t *testing.T) {
	t.Run("healthy manager passes", func(t *testing.T) {
		manager := NewManager()
		if err := manager.SelfTest(); err != nil {
			t.Errorf("Expected success, got %v", err)
		}
	})

	t.Run("repeated runs pass", func(t *testing.T) {
		manager := NewManager()
		for i := 0; i < 5; i++ {
			if err := manager.SelfTest(); err != nil {
				t.Fatalf("Run %d failed: %v", i, err)
			}
		}
	})

	t.Run("passes after instrument was disabled", func(t *testing.T) {
		manager := NewManager()
		if err := manager.SelfTest(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		scope, _ := manager.GetOrCreateScope(selfTestScope)
		if err := scope.SetEnabled(selfTestInstrument, false); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := manager.SelfTest(); err != nil {
			t.Errorf("Self-test must re-enable its instrument, got %v", err)
		}
	})

	t.Run("concurrent runs on a healthy manager pass", func(t *testing.T) {
		manager := NewManager()

		const (
			goroutines = 8
			runs       = 200
		)

		failures := make(chan error, goroutines*runs)
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < runs; j++ {
					if err := manager.SelfTest(); err != nil {
						failures <- err
					}
				}
			}()
		}
		wg.Wait()
		close(failures)

		if err, ok := <-failures; ok {
			t.Errorf("Healthy manager failed under concurrent self-tests (%d failures), first: %v",
				len(failures)+1, err)
		}
	})

	t.Run("injected fault reported", func(t *testing.T) {
		manager := NewManager()
		manager.selfTestReadBack = func(got int64) int64 { return got + 7 }

		err := manager.SelfTest()
		if !errors.IsSelfTestFailure(err) {
			t.Fatalf("Expected SELF_TEST_FAILURE, got %v", err)
		}
		if !strings.Contains(err.Error(), "read-back") {
			t.Errorf("Expected a diagnostic message, got %q", err.Error())
		}

		// The registry stays usable and recovers once the fault clears.
		manager.selfTestReadBack = nil
		if err := manager.SelfTest(); err != nil {
			t.Errorf("Expected recovery after fault cleared, got %v", err)
		}
	})

	t.Run("state excluded from dump", func(t *testing.T) {
		manager := NewManager()
		_ = manager.Count("engine", "events_total", 1)
		if err := manager.SelfTest(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		snap := manager.Dump()
		if len(snap.Scopes) != 1 || snap.Scopes[0].Name != "engine" {
			t.Errorf("Self-test state leaked into dump: %+v", snap.Scopes)
		}
		for _, info := range manager.ListInstruments() {
			if IsReservedScope(info.Scope) {
				t.Errorf("Self-test scope leaked into instrument list: %+v", info)
			}
		}
		if _, err := manager.DumpScope(selfTestScope); !errors.IsNotFound(err) {
			t.Errorf("Reserved scope must not be dumpable, got %v", err)
		}
	})
}

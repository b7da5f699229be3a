package metrics

import (
	"sync"
	"testing"

	"github.com/anstrom/metricsd/internal/errors"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		expected string
		valid    bool
	}{
		{"counter kind", KindCounter, "counter", true},
		{"gauge kind", KindGauge, "gauge", true},
		{"histogram kind", KindHistogram, "histogram", true},
		{"unknown kind", Kind("summary"), "summary", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.kind) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.kind))
			}
			if tt.kind.Valid() != tt.valid {
				t.Errorf("Expected Valid()=%v for %s", tt.valid, tt.kind)
			}
		})
	}
}

func TestGetOrCreateScope(t *testing.T) {
	manager := NewManager()

	t.Run("creates scope lazily", func(t *testing.T) {
		scope, err := manager.GetOrCreateScope("engine")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if scope.Name() != "engine" {
			t.Errorf("Expected scope name 'engine', got %q", scope.Name())
		}
	})

	t.Run("returns same instance", func(t *testing.T) {
		first, _ := manager.GetOrCreateScope("engine")
		second, _ := manager.GetOrCreateScope("engine")
		if first != second {
			t.Error("Expected the same scope instance for the same name")
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := manager.GetOrCreateScope("")
		if !errors.IsInvalidArgument(err) {
			t.Errorf("Expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("concurrent creation yields one instance", func(t *testing.T) {
		manager := NewManager()
		const goroutines = 32

		scopes := make([]*Scope, goroutines)
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				scope, err := manager.GetOrCreateScope("shared")
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				scopes[idx] = scope
			}(i)
		}
		wg.Wait()

		for i := 1; i < goroutines; i++ {
			if scopes[i] != scopes[0] {
				t.Fatal("Concurrent creation produced multiple scope instances")
			}
		}
		if len(manager.ScopeNames()) != 1 {
			t.Errorf("Expected 1 scope, got %d", len(manager.ScopeNames()))
		}
	})
}

func TestGetOrCreateInstrument(t *testing.T) {
	manager := NewManager()
	scope, _ := manager.GetOrCreateScope("engine")

	t.Run("identity stability", func(t *testing.T) {
		first, err := scope.GetOrCreateInstrument("events_total", KindCounter)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		second, err := scope.GetOrCreateInstrument("events_total", KindCounter)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if first != second {
			t.Error("Expected the same instrument instance for the same triple")
		}
	})

	t.Run("kind conflict", func(t *testing.T) {
		_, err := scope.GetOrCreateInstrument("events_total", KindGauge)
		if !errors.IsKindConflict(err) {
			t.Errorf("Expected KIND_CONFLICT, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := scope.GetOrCreateInstrument("", KindCounter)
		if !errors.IsInvalidArgument(err) {
			t.Errorf("Expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := scope.GetOrCreateInstrument("weird", Kind("summary"))
		if !errors.IsInvalidArgument(err) {
			t.Errorf("Expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("enabled by default", func(t *testing.T) {
		inst, _ := scope.GetOrCreateInstrument("events_total", KindCounter)
		if !inst.Enabled() {
			t.Error("New instruments should be enabled by default")
		}
	})
}

func TestRecordAndToggle(t *testing.T) {
	manager := NewManager()
	scope, _ := manager.GetOrCreateScope("queue")
	inst, _ := scope.GetOrCreateInstrument("pushed_total", KindCounter)

	readCounter := func(t *testing.T) int64 {
		t.Helper()
		snap, ok := manager.Dump().Lookup("queue", "pushed_total")
		if !ok {
			t.Fatal("Instrument missing from dump")
		}
		if snap.Counter == nil {
			t.Fatal("Counter value missing from snapshot")
		}
		return *snap.Counter
	}

	t.Run("recording accumulates", func(t *testing.T) {
		inst.Record(1)
		inst.Record(2)
		if got := readCounter(t); got != 3 {
			t.Errorf("Expected counter 3, got %d", got)
		}
	})

	t.Run("negative counter delta dropped", func(t *testing.T) {
		inst.Record(-5)
		if got := readCounter(t); got != 3 {
			t.Errorf("Expected counter unchanged at 3, got %d", got)
		}
	})

	t.Run("disabled recording is a no-op", func(t *testing.T) {
		if err := manager.Enable("queue", "pushed_total", false); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		scope.Record("pushed_total", 10)
		if got := readCounter(t); got != 3 {
			t.Errorf("Expected frozen counter 3, got %d", got)
		}

		snap, _ := manager.Dump().Lookup("queue", "pushed_total")
		if snap.Enabled {
			t.Error("Dump should report the instrument as disabled")
		}
	})

	t.Run("re-enabling resumes without reset", func(t *testing.T) {
		if err := manager.Enable("queue", "pushed_total", true); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		scope.Record("pushed_total", 10)
		if got := readCounter(t); got != 13 {
			t.Errorf("Expected counter 13 after re-enable, got %d", got)
		}
	})

	t.Run("recording missing instrument is a no-op", func(t *testing.T) {
		scope.Record("never_created", 1)
		if _, ok := manager.Dump().Lookup("queue", "never_created"); ok {
			t.Error("Recording must not create instruments")
		}
	})
}

func TestEnableValidation(t *testing.T) {
	manager := NewManager()
	scope, _ := manager.GetOrCreateScope("engine")
	_, _ = scope.GetOrCreateInstrument("events_total", KindCounter)

	tests := []struct {
		name       string
		scope      string
		instrument string
		wantCode   errors.ErrorCode
		wantMsg    string
	}{
		{"missing scope name", "", "x", errors.CodeInvalidArgument, "missing scope name"},
		{"missing instrument name", "s", "", errors.CodeInvalidArgument, "missing instrument name"},
		{"unknown scope", "never", "x", errors.CodeNotFound, "scope not found"},
		{"unknown instrument", "engine", "nope", errors.CodeNotFound, "instrument not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.Enable(tt.scope, tt.instrument, true)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, errors.GetCode(err))
			}
			if metricErr, ok := err.(*errors.MetricError); !ok || metricErr.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %v", tt.wantMsg, err)
			}
		})
	}

	t.Run("registry usable after failures", func(t *testing.T) {
		if err := manager.Enable("engine", "events_total", false); err != nil {
			t.Errorf("Registry should stay usable, got %v", err)
		}
	})
}

func TestConcurrentCounting(t *testing.T) {
	manager := NewManager()
	scope, _ := manager.GetOrCreateScope("load")
	inst, _ := scope.GetOrCreateInstrument("ops_total", KindCounter)

	const (
		goroutines = 8
		increments = 2000
	)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				inst.Record(1)
			}
		}()
	}

	// Dump concurrently with the writers; values observed mid-run are
	// arbitrary but must never exceed the final total.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			snap, ok := manager.Dump().Lookup("load", "ops_total")
			if ok && snap.Counter != nil && *snap.Counter > goroutines*increments {
				t.Errorf("Observed impossible counter value %d", *snap.Counter)
				return
			}
		}
	}()

	wg.Wait()
	<-done

	snap, _ := manager.Dump().Lookup("load", "ops_total")
	if *snap.Counter != goroutines*increments {
		t.Errorf("Expected exactly %d, got %d (lost updates)", goroutines*increments, *snap.Counter)
	}
}

func TestConcurrentToggle(t *testing.T) {
	manager := NewManager()
	scope, _ := manager.GetOrCreateScope("flaky")
	inst, _ := scope.GetOrCreateInstrument("writes_total", KindCounter)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			inst.Record(1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = manager.Enable("flaky", "writes_total", i%2 == 0)
		}
	}()
	wg.Wait()

	_ = manager.Enable("flaky", "writes_total", true)
	snap, _ := manager.Dump().Lookup("flaky", "writes_total")
	if snap.Counter == nil || *snap.Counter > 1000 {
		t.Errorf("Counter state corrupted by concurrent toggling: %v", snap.Counter)
	}
}

func TestDump(t *testing.T) {
	t.Run("empty registry yields empty structure", func(t *testing.T) {
		snap := NewManager().Dump()
		if snap.Scopes == nil {
			t.Error("Scopes should be an empty slice, not nil")
		}
		if len(snap.Scopes) != 0 {
			t.Errorf("Expected 0 scopes, got %d", len(snap.Scopes))
		}
	})

	t.Run("deterministic creation order", func(t *testing.T) {
		manager := NewManager()
		_ = manager.Set("zeta", "z", 1)
		_ = manager.Set("alpha", "a", 1)
		_ = manager.Count("alpha", "b", 1)
		_ = manager.Count("alpha", "a2", 1)

		snap := manager.Dump()
		if len(snap.Scopes) != 2 {
			t.Fatalf("Expected 2 scopes, got %d", len(snap.Scopes))
		}
		if snap.Scopes[0].Name != "zeta" || snap.Scopes[1].Name != "alpha" {
			t.Errorf("Expected creation order [zeta alpha], got [%s %s]",
				snap.Scopes[0].Name, snap.Scopes[1].Name)
		}

		names := make([]string, 0, 3)
		for _, inst := range snap.Scopes[1].Instruments {
			names = append(names, inst.Name)
		}
		if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "a2" {
			t.Errorf("Expected instrument creation order [a b a2], got %v", names)
		}
	})

	t.Run("snapshot does not alias live state", func(t *testing.T) {
		manager := NewManager()
		_ = manager.Count("engine", "events_total", 5)

		snap := manager.Dump()
		_ = manager.Count("engine", "events_total", 5)

		inst, _ := snap.Lookup("engine", "events_total")
		if *inst.Counter != 5 {
			t.Errorf("Snapshot mutated by later recording: got %d", *inst.Counter)
		}
	})

	t.Run("gauge holds last value", func(t *testing.T) {
		manager := NewManager()
		_ = manager.Set("pool", "size", 10)
		_ = manager.Set("pool", "size", 4)

		inst, _ := manager.Dump().Lookup("pool", "size")
		if inst.Gauge == nil || *inst.Gauge != 4 {
			t.Errorf("Expected gauge 4, got %v", inst.Gauge)
		}
	})

	t.Run("histogram buckets and totals", func(t *testing.T) {
		manager := NewManager()
		for _, v := range []float64{0.002, 0.002, 0.3, 100} {
			_ = manager.Observe("latency", "request_seconds", v)
		}

		inst, _ := manager.Dump().Lookup("latency", "request_seconds")
		if inst.Histogram == nil {
			t.Fatal("Expected histogram payload")
		}
		hist := inst.Histogram
		if hist.Count != 4 {
			t.Errorf("Expected count 4, got %d", hist.Count)
		}
		if hist.Sum != 0.002+0.002+0.3+100 {
			t.Errorf("Unexpected sum %g", hist.Sum)
		}

		// Buckets are cumulative; the final +Inf bucket equals the count.
		last := hist.Buckets[len(hist.Buckets)-1]
		if last.Count != hist.Count {
			t.Errorf("Expected +Inf bucket count %d, got %d", hist.Count, last.Count)
		}
		for i := 1; i < len(hist.Buckets); i++ {
			if hist.Buckets[i].Count < hist.Buckets[i-1].Count {
				t.Fatal("Bucket counts must be cumulative and non-decreasing")
			}
		}
	})
}

func TestDumpScope(t *testing.T) {
	manager := NewManager()
	_ = manager.Count("engine", "events_total", 2)

	t.Run("existing scope", func(t *testing.T) {
		snap, err := manager.DumpScope("engine")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(snap.Instruments) != 1 || snap.Instruments[0].Name != "events_total" {
			t.Errorf("Unexpected scope snapshot: %+v", snap)
		}
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := manager.DumpScope("nope")
		if !errors.IsNotFound(err) {
			t.Errorf("Expected NOT_FOUND, got %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := manager.DumpScope("")
		if !errors.IsInvalidArgument(err) {
			t.Errorf("Expected INVALID_ARGUMENT, got %v", err)
		}
	})
}

func TestListInstruments(t *testing.T) {
	manager := NewManager()
	_ = manager.Count("engine", "events_total", 1)
	_ = manager.Set("pool", "size", 3)
	_ = manager.Enable("pool", "size", false)

	infos := manager.ListInstruments()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 instruments, got %d", len(infos))
	}
	if infos[0].Scope != "engine" || infos[0].Kind != KindCounter || !infos[0].Enabled {
		t.Errorf("Unexpected first entry: %+v", infos[0])
	}
	if infos[1].Scope != "pool" || infos[1].Enabled {
		t.Errorf("Unexpected second entry: %+v", infos[1])
	}
}

func TestRuntimeSampler(t *testing.T) {
	manager := NewManager()
	sampler := NewRuntimeSampler(manager, 0)
	sampler.Sample()

	snap := manager.Dump()
	for _, name := range []string{MetricGoroutines, MetricHeapAlloc, MetricUptime} {
		inst, ok := snap.Lookup(RuntimeScope, name)
		if !ok {
			t.Errorf("Expected runtime gauge %s in dump", name)
			continue
		}
		if inst.Kind != KindGauge || inst.Gauge == nil {
			t.Errorf("Expected %s to be a gauge with a value", name)
		}
	}
}

package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/uniclinic/uniclinic/internal/domain/inventory"
)

// fakeSource serves canned data and can be flipped into a failing state.
type fakeSource struct {
	mu      sync.Mutex
	fail    bool
	alerts  []inventory.Alert
	calls   atomic.Int64
	failErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{failErr: errors.New("dial tcp: connection refused")}
}

func (f *fakeSource) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeSource) Status(context.Context) (*inventory.Status, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, f.failErr
	}
	return &inventory.Status{TotalMedicines: 5, GeneratedAt: time.Now()}, nil
}

func (f *fakeSource) Alerts(context.Context) ([]inventory.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, f.failErr
	}
	return f.alerts, nil
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStart_ImmediateCycle(t *testing.T) {
	src := newFakeSource()
	m := New(src, time.Hour, zerolog.Nop())

	var got atomic.Int64
	m.OnStatusUpdate(func(st *inventory.Status) {
		if st.TotalMedicines == 5 {
			got.Add(1)
		}
	})

	m.Start()
	defer m.Stop()

	// The first cycle runs before the first tick.
	waitFor(t, func() bool { return got.Load() == 1 }, "expected an immediate cycle")
}

func TestStart_Idempotent(t *testing.T) {
	src := newFakeSource()
	m := New(src, time.Hour, zerolog.Nop())

	m.Start()
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return src.calls.Load() >= 1 }, "expected at least one cycle")
	// A second Start must not spawn a second loop; with an hour interval
	// exactly one immediate cycle runs.
	time.Sleep(50 * time.Millisecond)
	if n := src.calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 cycle, got %d", n)
	}
	if !m.Running() {
		t.Error("expected the monitor to be running")
	}
}

func TestStop_SafeWhenNotRunning(t *testing.T) {
	m := New(newFakeSource(), time.Hour, zerolog.Nop())
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("expected the monitor to stay stopped")
	}
}

func TestStop_EndsPolling(t *testing.T) {
	src := newFakeSource()
	m := New(src, 5*time.Millisecond, zerolog.Nop())

	m.Start()
	waitFor(t, func() bool { return src.calls.Load() >= 2 }, "expected repeated cycles")
	m.Stop()

	after := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if src.calls.Load() != after {
		t.Error("expected no cycles after Stop")
	}
}

func TestErrors_FanOutToErrorListenersOnly(t *testing.T) {
	src := newFakeSource()
	src.setFail(true)
	m := New(src, time.Hour, zerolog.Nop())

	var statusCalls, errCalls atomic.Int64
	m.OnStatusUpdate(func(*inventory.Status) { statusCalls.Add(1) })
	m.OnAlertUpdate(func([]inventory.Alert) { statusCalls.Add(1) })
	m.OnError(func(error) { errCalls.Add(1) })

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return errCalls.Load() == 1 }, "expected the error listener to fire")
	if statusCalls.Load() != 0 {
		t.Error("expected no status or alert fan-out on a failed cycle")
	}
}

func TestErrors_DoNotKillTheLoop(t *testing.T) {
	src := newFakeSource()
	src.setFail(true)
	m := New(src, 5*time.Millisecond, zerolog.Nop())

	var statusCalls atomic.Int64
	m.OnStatusUpdate(func(*inventory.Status) { statusCalls.Add(1) })

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return src.calls.Load() >= 2 }, "expected the loop to continue past failures")
	src.setFail(false)
	waitFor(t, func() bool { return statusCalls.Load() >= 1 }, "expected a successful cycle after recovery")
}

func TestMultipleListeners(t *testing.T) {
	src := newFakeSource()
	m := New(src, time.Hour, zerolog.Nop())

	var a, b atomic.Int64
	m.OnStatusUpdate(func(*inventory.Status) { a.Add(1) })
	m.OnStatusUpdate(func(*inventory.Status) { b.Add(1) })

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, "expected both listeners to fire")
}

func TestAcknowledge_FiltersAlerts(t *testing.T) {
	src := newFakeSource()
	src.alerts = []inventory.Alert{
		{ID: "a:low_stock", Type: inventory.AlertLowStock},
		{ID: "b:expired", Type: inventory.AlertExpired},
	}
	m := New(src, time.Hour, zerolog.Nop())

	m.Acknowledge("a:low_stock")
	active := m.ActiveAlerts(src.alerts)
	if len(active) != 1 || active[0].ID != "b:expired" {
		t.Errorf("expected only the unacknowledged alert, got %+v", active)
	}

	// Stable ids keep the acknowledgement across fresh polls.
	again := m.ActiveAlerts(src.alerts)
	if len(again) != 1 {
		t.Error("expected the acknowledgement to persist")
	}
}

func TestRestartAfterStop(t *testing.T) {
	src := newFakeSource()
	m := New(src, time.Hour, zerolog.Nop())

	m.Start()
	waitFor(t, func() bool { return src.calls.Load() == 1 }, "expected one cycle")
	m.Stop()

	m.Start()
	defer m.Stop()
	waitFor(t, func() bool { return src.calls.Load() == 2 }, "expected a cycle after restart")
}

// Package monitor polls the inventory for aggregate status and alerts on a
// fixed interval and fans results out to registered listeners.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uniclinic/uniclinic/internal/domain/inventory"
)

// Source supplies one polling cycle's data. inventory.Service satisfies it.
type Source interface {
	Status(ctx context.Context) (*inventory.Status, error)
	Alerts(ctx context.Context) ([]inventory.Alert, error)
}

type (
	StatusListener func(*inventory.Status)
	AlertListener  func([]inventory.Alert)
	ErrorListener  func(error)
)

// Monitor runs the polling loop. All exported methods are safe for
// concurrent use.
type Monitor struct {
	source   Source
	interval time.Duration
	logger   zerolog.Logger

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	statusFns  []StatusListener
	alertFns   []AlertListener
	errorFns   []ErrorListener
	lastStatus *inventory.Status
	lastAlerts []inventory.Alert
	lastCycle  time.Time
	lastErr    error
	acked      map[string]bool
}

func New(source Source, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger,
		acked:    make(map[string]bool),
	}
}

// Start runs one immediate cycle and then polls on the interval. Calling it
// while already running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.logger.Info().Dur("interval", m.interval).Msg("inventory monitor started")
	go m.loop(ctx, done)
}

// Stop cancels the polling loop and waits for it to exit. Safe to call when
// not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info().Msg("inventory monitor stopped")
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) Interval() time.Duration { return m.interval }

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.cycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle fetches status and alerts concurrently. Any failure is fanned out to
// error listeners only; status and alert listeners never see partial data.
// Errors end the cycle, never the loop.
func (m *Monitor) cycle(ctx context.Context) {
	var (
		wg        sync.WaitGroup
		status    *inventory.Status
		alerts    []inventory.Alert
		statusErr error
		alertErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		status, statusErr = m.source.Status(ctx)
	}()
	go func() {
		defer wg.Done()
		alerts, alertErr = m.source.Alerts(ctx)
	}()
	wg.Wait()

	if statusErr != nil || alertErr != nil {
		err := statusErr
		if err == nil {
			err = alertErr
		}
		m.logger.Warn().Err(err).Msg("inventory monitor cycle failed")

		m.mu.Lock()
		m.lastErr = err
		fns := append([]ErrorListener(nil), m.errorFns...)
		m.mu.Unlock()
		for _, fn := range fns {
			fn(err)
		}
		return
	}

	m.mu.Lock()
	m.lastStatus = status
	m.lastAlerts = alerts
	m.lastCycle = time.Now()
	m.lastErr = nil
	active := filterAcked(alerts, m.acked)
	statusFns := append([]StatusListener(nil), m.statusFns...)
	alertFns := append([]AlertListener(nil), m.alertFns...)
	m.mu.Unlock()

	for _, fn := range statusFns {
		fn(status)
	}
	for _, fn := range alertFns {
		fn(active)
	}
}

func filterAcked(alerts []inventory.Alert, acked map[string]bool) []inventory.Alert {
	out := make([]inventory.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !acked[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

func (m *Monitor) OnStatusUpdate(fn StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusFns = append(m.statusFns, fn)
}

func (m *Monitor) OnAlertUpdate(fn AlertListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertFns = append(m.alertFns, fn)
}

func (m *Monitor) OnError(fn ErrorListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorFns = append(m.errorFns, fn)
}

// LastStatus returns the snapshot of the most recent successful cycle.
func (m *Monitor) LastStatus() (*inventory.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastStatus == nil {
		return nil, false
	}
	cp := *m.lastStatus
	return &cp, true
}

// ActiveAlerts filters acknowledged alerts out of the given list.
func (m *Monitor) ActiveAlerts(alerts []inventory.Alert) []inventory.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterAcked(alerts, m.acked)
}

// Acknowledge silences an alert by id. Alert ids are stable per medicine and
// condition, so the acknowledgement holds across polling cycles.
func (m *Monitor) Acknowledge(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked[id] = true
}

// LastCycle reports when the last successful cycle ran and its error state.
func (m *Monitor) LastCycle() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCycle, m.lastErr
}

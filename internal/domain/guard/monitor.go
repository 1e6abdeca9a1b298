// Package guard watches session activity and tracks authentication
// failures. The monitor only signals through callbacks; moving a session
// out of its current state is the caller's job.
package guard

import (
	"sync"
	"time"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
)

const (
	defaultWarningAfter  = 25 * time.Minute
	defaultTimeoutAfter  = 30 * time.Minute
	defaultCheckInterval = 5 * time.Second
)

// MonitorConfig tunes the activity monitor. Now is injectable for tests;
// it defaults to time.Now.
type MonitorConfig struct {
	WarningAfter  time.Duration
	TimeoutAfter  time.Duration
	CheckInterval time.Duration
	Now           func() time.Time
}

// ActivityMonitor fires a warning and then a timeout callback after a
// period of inactivity. Each inactivity episode fires each callback at
// most once; UpdateActivity starts a new episode.
type ActivityMonitor struct {
	mu            sync.Mutex
	warningAfter  time.Duration
	timeoutAfter  time.Duration
	checkInterval time.Duration
	now           func() time.Time

	monitoring   bool
	lastActivity time.Time
	warned       bool
	timedOut     bool
	onWarning    func()
	onTimeout    func()
	stop         chan struct{}
}

// NewActivityMonitor builds an idle monitor.
func NewActivityMonitor(cfg MonitorConfig) *ActivityMonitor {
	if cfg.WarningAfter <= 0 {
		cfg.WarningAfter = defaultWarningAfter
	}
	if cfg.TimeoutAfter <= cfg.WarningAfter {
		cfg.TimeoutAfter = defaultTimeoutAfter
		if cfg.TimeoutAfter <= cfg.WarningAfter {
			cfg.TimeoutAfter = cfg.WarningAfter + 5*time.Minute
		}
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ActivityMonitor{
		warningAfter:  cfg.WarningAfter,
		timeoutAfter:  cfg.TimeoutAfter,
		checkInterval: cfg.CheckInterval,
		now:           cfg.Now,
	}
}

// Start transitions Idle -> Monitoring. Callbacks are invoked from the
// monitor goroutine and must not call back into the monitor.
func (m *ActivityMonitor) Start(onWarning, onTimeout func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitoring {
		return errors.New(errors.KindGuard, "monitor.start", "already monitoring")
	}

	m.monitoring = true
	m.lastActivity = m.now()
	m.warned = false
	m.timedOut = false
	m.onWarning = onWarning
	m.onTimeout = onTimeout
	m.stop = make(chan struct{})

	go m.run(m.stop)
	return nil
}

func (m *ActivityMonitor) run(stop chan struct{}) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-stop:
			return
		}
	}
}

// check compares elapsed idle time against the thresholds. Dispatch
// happens under the mutex, which is what makes Stop deterministic: once
// Stop returns, no callback can still be in flight.
func (m *ActivityMonitor) check() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoring {
		return
	}

	elapsed := m.now().Sub(m.lastActivity)
	switch {
	case elapsed >= m.timeoutAfter && !m.timedOut:
		m.timedOut = true
		if !m.warned {
			// The warning window was skipped entirely (e.g. the process
			// slept); timeout still fires exactly once.
			m.warned = true
		}
		if m.onTimeout != nil {
			m.onTimeout()
		}
	case elapsed >= m.warningAfter && !m.warned:
		m.warned = true
		if m.onWarning != nil {
			m.onWarning()
		}
	}
}

// UpdateActivity marks the session active now. Calling it after a warning
// has fired cancels the pending timeout and re-arms the warning for the
// next episode.
func (m *ActivityMonitor) UpdateActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoring {
		return
	}
	m.lastActivity = m.now()
	m.warned = false
	m.timedOut = false
}

// Stop transitions Monitoring -> Idle. Safe to call repeatedly; after it
// returns no callback fires, even for a check that was already pending.
func (m *ActivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoring {
		return
	}
	m.monitoring = false
	close(m.stop)
	m.stop = nil
	m.onWarning = nil
	m.onTimeout = nil
}

// Monitoring reports whether the monitor is active.
func (m *ActivityMonitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring
}

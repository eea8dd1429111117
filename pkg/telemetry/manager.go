package telemetry

import "context"

// Manager owns every vendor's Poller and is the single place the HTTP
// API and observability rollup query for telemetry health.
type Manager struct {
	pollers map[string]*Poller
	order   []string
}

// NewManager builds a Manager over the given pollers, keyed by vendor.
func NewManager(pollers ...*Poller) *Manager {
	m := &Manager{pollers: make(map[string]*Poller, len(pollers))}
	for _, p := range pollers {
		m.pollers[string(p.vendor)] = p
		m.order = append(m.order, string(p.vendor))
	}
	return m
}

// StartAll starts every poller.
func (m *Manager) StartAll(ctx context.Context) {
	for _, name := range m.order {
		m.pollers[name].Start(ctx)
	}
}

// StopAll signals every poller to stop and waits for all to exit.
func (m *Manager) StopAll() {
	for _, name := range m.order {
		m.pollers[name].Stop()
	}
}

// Health returns every poller's health snapshot, vendor order
// preserved from construction.
func (m *Manager) Health() []PollerHealth {
	out := make([]PollerHealth, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.pollers[name].Health())
	}
	return out
}

package session

import (
	"log"
	"sync"

	"github.com/aegis-watch/console/internal/bus"
	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/event"
	"github.com/aegis-watch/console/internal/query"
	"github.com/aegis-watch/console/internal/state"
	"github.com/aegis-watch/console/internal/timeline"
	"github.com/aegis-watch/console/internal/transport"
)

// Monitor folds the event stream into the derived security state and
// records a timeline snapshot for every state-changing event. It is
// constructed once per monitoring session and passed explicitly to
// whoever needs it; there are no package-level singletons.
type Monitor struct {
	identity Identity
	router   *bus.Router
	client   *transport.Client
	store    *timeline.Store
	queries  *query.Client
	clk      clock.Clock

	mu       sync.Mutex
	risk     state.RiskState
	trust    state.TrustState
	tier     state.AlertTierState
	demoMode bool

	unsubscribe func()
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithQueries enables request/response reconciliation through the given
// collaborator client.
func WithQueries(q *query.Client) MonitorOption {
	return func(m *Monitor) { m.queries = q }
}

// WithTrustDecay overrides the trust decay rate (points per minute).
func WithTrustDecay(perMinute float64) MonitorOption {
	return func(m *Monitor) { m.trust.DecayPerMinute = perMinute }
}

// NewMonitor wires a monitor onto the given router, transport and
// timeline, and subscribes to the wildcard channel. Call Close to tear
// it down.
func NewMonitor(identity Identity, router *bus.Router, client *transport.Client, store *timeline.Store, clk clock.Clock, opts ...MonitorOption) *Monitor {
	now := clk.Now()
	m := &Monitor{
		identity: identity,
		router:   router,
		client:   client,
		store:    store,
		clk:      clk,
		trust:    state.NewTrustState(now),
		tier:     state.NewAlertTierState(now),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = router.On(bus.Wildcard, m.handleEvent)
	return m
}

// Identity returns the session id this monitor observes.
func (m *Monitor) Identity() Identity { return m.identity }

// Connect opens the live transport for this session and, when a query
// client is configured, seeds the derived state from engine aggregates.
func (m *Monitor) Connect() error {
	if err := m.client.Connect(m.identity.String()); err != nil {
		return err
	}
	m.reconcile()
	return nil
}

// Close disconnects the transport and detaches from the router.
func (m *Monitor) Close() {
	m.client.Disconnect()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// SetDemoMode flags the stream origin. Synthetic events are identical in
// shape to live ones; this flag is the only way consumers learn the
// difference.
func (m *Monitor) SetDemoMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demoMode = on
}

// DemoMode reports whether the stream is synthetic.
func (m *Monitor) DemoMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.demoMode
}

// Risk returns the current risk state.
func (m *Monitor) Risk() state.RiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.risk
	r.ActiveThreats = append([]string(nil), m.risk.ActiveThreats...)
	return r
}

// Trust returns the trust score as of now, decay applied.
func (m *Monitor) Trust() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trust.At(m.clk.Now())
}

// TrustLevel names the current trust band.
func (m *Monitor) TrustLevel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trust.Level(m.clk.Now())
}

// Alert returns the current alert tier state.
func (m *Monitor) Alert() state.AlertTierState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

// Connection reports the transport phase and last error.
func (m *Monitor) Connection() (transport.State, error) {
	return m.client.State(), m.client.Err()
}

// Timeline exposes the snapshot store for scrub/playback consumers.
func (m *Monitor) Timeline() *timeline.Store { return m.store }

func (m *Monitor) handleEvent(ev event.Event) {
	if ev.SessionID != m.identity.String() {
		return
	}
	if ev.Type == event.Connected {
		// Reconnect gap: pull aggregates to catch up on anything missed.
		go m.reconcile()
	}

	m.mu.Lock()
	m.risk = state.ReduceRisk(m.risk, ev)
	m.trust = state.ReduceTrust(m.trust, ev)
	m.tier = state.ReduceAlertTier(m.tier, ev)
	snap := timeline.Snapshot{
		Timestamp:     ev.Timestamp,
		RiskScore:     m.risk.Score,
		ActiveThreats: append([]string(nil), m.risk.ActiveThreats...),
		Trust:         m.trust.At(ev.Timestamp),
		Defcon:        m.tier.Defcon,
		AlertTier:     m.tier.Tier,
	}
	m.mu.Unlock()

	if state.Changes(ev.Type) {
		m.store.Append(snap)
	}
}

// reconcile seeds risk/trust/defcon from the engine's aggregates. Any
// failure is logged and ignored: the engine may be absent indefinitely
// and the dashboard stays available regardless.
func (m *Monitor) reconcile() {
	if m.queries == nil {
		return
	}
	metrics, err := m.queries.Metrics(m.identity.String())
	if err != nil {
		log.Printf("session: reconcile skipped: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.risk.Score = metrics.RiskScore
	if len(metrics.ActiveThreats) > len(m.risk.ActiveThreats) {
		m.risk.ActiveThreats = append([]string(nil), metrics.ActiveThreats...)
	}
	m.trust.Score = metrics.Trust
	m.trust.LastUpdate = m.clk.Now()
	if metrics.Defcon > m.tier.Defcon {
		m.tier.Defcon = metrics.Defcon
		m.tier.Tier = state.TierForDefcon(metrics.Defcon)
	}
}

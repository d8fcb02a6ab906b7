package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
)

// Metrics collects socket-service metrics on a caller-owned registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// ConnectionsTotal counts admitted connections.
	// Labels: transport (websocket|polling)
	ConnectionsTotal *prometheus.CounterVec

	// AuthFailures counts refused handshakes.
	// Labels: code
	AuthFailures *prometheus.CounterVec

	// EventsTotal counts inbound events by outcome.
	// Labels: event, outcome (ok|validation|not_found|internal)
	EventsTotal *prometheus.CounterVec

	// EventDuration measures handler latency in seconds.
	// Labels: event
	EventDuration *prometheus.HistogramVec

	// DeliveriesTotal counts queued outbound events.
	// Labels: event
	DeliveriesTotal *prometheus.CounterVec

	// Evictions counts clients dropped for a full send buffer.
	Evictions prometheus.Counter

	// PublishFailures counts interaction records the broker rejected.
	// Labels: event
	PublishFailures *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "connections_total",
			Help:      "Total number of admitted socket connections",
		}, []string{"transport"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "auth_failures_total",
			Help:      "Total number of refused socket handshakes",
		}, []string{"code"}),
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "events_total",
			Help:      "Total number of inbound socket events",
		}, []string{"event", "outcome"}),
		EventDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "event_duration_seconds",
			Help:      "Inbound event handling latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"event"}),
		DeliveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "deliveries_total",
			Help:      "Total number of outbound events queued for fan-out",
		}, []string{"event"}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "evictions_total",
			Help:      "Total number of clients dropped for a full send buffer",
		}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jevah",
			Subsystem: "socket",
			Name:      "publish_failures_total",
			Help:      "Total number of interaction records the event sink rejected",
		}, []string{"event"}),
	}
}

// RegisterHubGauges exposes the hub's live table sizes.
func RegisterHubGauges(reg prometheus.Registerer, h *hub.Hub) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "jevah",
		Subsystem: "socket",
		Name:      "connections",
		Help:      "Current number of open connections",
	}, func() float64 { return float64(h.Stats().Connections) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "jevah",
		Subsystem: "socket",
		Name:      "rooms",
		Help:      "Current number of non-empty rooms",
	}, func() float64 { return float64(h.Stats().Rooms) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "jevah",
		Subsystem: "socket",
		Name:      "live_streams",
		Help:      "Current number of streams with at least one viewer",
	}, func() float64 { return float64(h.Stats().Streams) })
}

func (m *Metrics) Connected(transport string) {
	if m == nil {
		return
	}
	m.ConnectionsTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) AuthFailed(code string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(code).Inc()
}

// EventHandled records the outcome and latency of one inbound event.
func (m *Metrics) EventHandled(event, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(event, outcome).Inc()
	m.EventDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

func (m *Metrics) Delivered(event string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) Evicted() {
	if m == nil {
		return
	}
	m.Evictions.Inc()
}

func (m *Metrics) PublishFailed(event string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(event).Inc()
}

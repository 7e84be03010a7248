package cluster

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the cluster counters exported to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	members           prometheus.Gauge
	peers             prometheus.Gauge
	frames            *prometheus.CounterVec
	unbound           prometheus.Counter
	handshakeFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, unless reg
// is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamemesh",
			Name:      "members",
			Help:      "Number of servers joined to the local master.",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamemesh",
			Name:      "peers",
			Help:      "Number of direct peer links of the local node.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamemesh",
			Name:      "frames_received_total",
			Help:      "Frames received, by decoding result.",
		}, []string{"result"}),
		unbound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gamemesh",
			Name:      "unbound_messages_total",
			Help:      "Decoded messages dropped because no handler was bound.",
		}),
		handshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamemesh",
			Name:      "handshake_failures_total",
			Help:      "Failed connect handshakes, by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.members, m.peers, m.frames, m.unbound, m.handshakeFailures)
	}

	return m
}

func (m *Metrics) setMembers(n int) {
	if m != nil {
		m.members.Set(float64(n))
	}
}

func (m *Metrics) setPeers(n int) {
	if m != nil {
		m.peers.Set(float64(n))
	}
}

func (m *Metrics) frameReceived(result string) {
	if m != nil {
		m.frames.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) unboundMessage() {
	if m != nil {
		m.unbound.Inc()
	}
}

func (m *Metrics) handshakeFailed(reason string) {
	if m != nil {
		m.handshakeFailures.WithLabelValues(reason).Inc()
	}
}

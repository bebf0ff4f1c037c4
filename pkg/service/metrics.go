package service

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "p2pcoord"

// metrics are the service's Prometheus collectors. They are always
// created so the event loop never checks for nil; registration is
// optional.
type metrics struct {
	transitions     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	adapterFailures *prometheus.CounterVec
	groupsFormed    *prometheus.CounterVec
	peers           prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "state_transitions_total",
			Help:      "State machine transitions by destination state.",
		}, []string{"state"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Application requests by operation and reply status.",
		}, []string{"op", "status", "reason"}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "adapter_command_failures_total",
			Help:      "Failed adapter commands by command.",
		}, []string{"command"}),
		groupsFormed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "groups_formed_total",
			Help:      "Groups started by local role.",
		}, []string{"role"}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "peers",
			Help:      "Peers currently in the registry.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.transitions, m.requests, m.adapterFailures, m.groupsFormed, m.peers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func roleLabel(owner bool) string {
	if owner {
		return "owner"
	}
	return "client"
}

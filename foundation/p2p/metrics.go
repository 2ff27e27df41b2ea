package p2p

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Set of results recorded for every message.
const (
	resultOK      = "ok"
	resultError   = "error"
	resultInvalid = "invalid"
)

var (
	metricsInitOnce sync.Once
	sharedMetrics   *metrics
)

// metrics counts the protocol traffic in both directions.
type metrics struct {
	messages *prometheus.CounterVec
}

// newMetrics registers the collectors once per process so several servers
// and clients can live in the same binary.
func newMetrics() *metrics {
	metricsInitOnce.Do(func() {
		m := metrics{
			messages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "p2p_messages_total",
				Help: "Count of p2p messages by direction, command and result.",
			}, []string{"direction", "command", "result"}),
		}
		prometheus.MustRegister(m.messages)
		sharedMetrics = &m
	})
	return sharedMetrics
}

func (m *metrics) received(command string, result string) {
	if command == "" {
		command = "unknown"
	}
	m.messages.WithLabelValues("in", command, result).Inc()
}

func (m *metrics) sent(command string, result string) {
	m.messages.WithLabelValues("out", command, result).Inc()
}

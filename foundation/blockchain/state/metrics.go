package state

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsInitOnce sync.Once
	sharedMetrics   *metrics
)

type metrics struct {
	chainHeight     prometheus.Gauge
	mempoolSize     prometheus.Gauge
	blocksProcessed *prometheus.CounterVec
}

func newMetrics() *metrics {
	metricsInitOnce.Do(func() {
		m := metrics{
			chainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "chain_height",
				Help: "Height of the local chain tip.",
			}),
			mempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "mempool_size",
				Help: "Number of transactions waiting to be mined.",
			}),
			blocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "blocks_processed_total",
				Help: "Count of blocks processed by source and result.",
			}, []string{"source", "result"}),
		}
		prometheus.MustRegister(m.chainHeight, m.mempoolSize, m.blocksProcessed)
		sharedMetrics = &m
	})
	return sharedMetrics
}

func (m *metrics) block(source string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.blocksProcessed.WithLabelValues(source, result).Inc()
}

package mid

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/simplechain/node/foundation/web"
)

var (
	metricsInitOnce sync.Once
	sharedMetrics   *metrics
)

// metrics represents the set of counters we gather for the public API.
type metrics struct {
	requests *prometheus.CounterVec
	errors   prometheus.Counter
	panics   prometheus.Counter
}

func metricsSet() *metrics {
	metricsInitOnce.Do(func() {
		m := metrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Count of public API requests by method.",
			}, []string{"method"}),
			errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Count of public API requests that failed.",
			}),
			panics: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "http_panics_total",
				Help: "Count of public API requests that panicked.",
			}),
		}
		prometheus.MustRegister(m.requests, m.errors, m.panics)
		sharedMetrics = &m
	})
	return sharedMetrics
}

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Increment the request and errors counters.
			ms := metricsSet()
			ms.requests.WithLabelValues(r.Method).Inc()
			if err != nil {
				ms.errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}

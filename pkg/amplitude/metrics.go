package amplitude

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on Config.Registerer, or left unregistered when it is nil.
// Clients sharing a registerer share the same collectors.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "amplitude",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total Amplitude API requests, labelled by operation and status code.",
	}, []string{"operation", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "amplitude",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Latency of Amplitude API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	if reg == nil {
		return &metrics{requests: requests, duration: duration}, nil
	}

	m := &metrics{}
	var err error
	if m.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, returning the collector already registered under
// the same descriptor if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register amplitude metrics: %w", err)
	}
	return c, nil
}

// observe records one finished request. code is 0 when no response arrived.
func (m *metrics) observe(operation string, code int, elapsed time.Duration) {
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(operation, label).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

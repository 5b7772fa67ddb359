// Package telemetry records registry and capture metrics.
package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Capture mode labels.
const (
	ModeConnection = "connection"
	ModeQuick      = "quick"
)

// Collector captures telemetry events emitted by the registry.
//
// Implementations are called inline with device operations and must be
// cheap.
type Collector interface {
	SetOpenConnections(n int)
	IncOpen(outcome string)
	IncCapture(mode, outcome string)
	ObserveCapture(mode string, seconds float64)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) SetOpenConnections(int)         {}
func (noopCollector) IncOpen(string)                 {}
func (noopCollector) IncCapture(string, string)      {}
func (noopCollector) ObserveCapture(string, float64) {}

// PrometheusCollector exposes registry metrics via Prometheus.
type PrometheusCollector struct {
	openConnections prometheus.Gauge
	opens           *prometheus.CounterVec
	captures        *prometheus.CounterVec
	captureDuration *prometheus.HistogramVec
}

// NewPrometheusCollector registers the metrics with reg. A nil reg uses the
// default registerer. Registering twice on the same registerer reuses the
// existing metrics.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	c := &PrometheusCollector{}

	c.openConnections, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "videocapture_open_connections",
		Help: "Number of camera connections currently held by the registry.",
	}))
	if err != nil {
		return nil, err
	}

	c.opens, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videocapture_opens_total",
		Help: "Number of open_camera attempts by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	c.captures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videocapture_captures_total",
		Help: "Number of frame captures by mode and outcome.",
	}, []string{"mode", "outcome"}))
	if err != nil {
		return nil, err
	}

	c.captureDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocapture_capture_duration_seconds",
		Help:    "Time spent reading one frame from a device.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"mode"}))
	if err != nil {
		return nil, err
	}

	return c, nil
}

// register registers m or returns the collector already registered under the
// same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, m T) (T, error) {
	if err := reg.Register(m); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}

	return m, nil
}

// SetOpenConnections sets the open connections gauge.
func (p *PrometheusCollector) SetOpenConnections(n int) {
	if p == nil {
		return
	}
	p.openConnections.Set(float64(n))
}

// IncOpen counts one open attempt.
func (p *PrometheusCollector) IncOpen(outcome string) {
	if p == nil {
		return
	}
	p.opens.WithLabelValues(outcome).Inc()
}

// IncCapture counts one capture.
func (p *PrometheusCollector) IncCapture(mode, outcome string) {
	if p == nil {
		return
	}
	p.captures.WithLabelValues(mode, outcome).Inc()
}

// ObserveCapture records the duration of one device read.
func (p *PrometheusCollector) ObserveCapture(mode string, seconds float64) {
	if p == nil {
		return
	}
	p.captureDuration.WithLabelValues(mode).Observe(seconds)
}

// OpenConnections returns the open connections gauge.
func (p *PrometheusCollector) OpenConnections() prometheus.Gauge {
	return p.openConnections
}

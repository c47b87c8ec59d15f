package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/backbone-generator/core"
	"github.com/signalsfoundry/backbone-generator/model"
)

// GeneratorCollector bundles the Prometheus metrics describing one
// generation run. It implements core.MetricsRecorder.
type GeneratorCollector struct {
	gatherer prometheus.Gatherer

	Elements       *prometheus.GaugeVec
	QuotaElements  *prometheus.GaugeVec
	Connections    *prometheus.GaugeVec
	Components     prometheus.Gauge
	StageDurations *prometheus.HistogramVec
}

var _ core.MetricsRecorder = (*GeneratorCollector)(nil)

// NewGeneratorCollector registers generator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewGeneratorCollector(reg prometheus.Registerer) (*GeneratorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	elements, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backbone_elements",
		Help: "Generated elements, labeled by layer and region.",
	}, []string{"layer", "region"}), "backbone_elements")
	if err != nil {
		return nil, err
	}
	quota, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backbone_quota_elements",
		Help: "Requested elements per layer after rounding repair.",
	}, []string{"layer"}), "backbone_quota_elements")
	if err != nil {
		return nil, err
	}
	conns, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backbone_connections",
		Help: "Generated connections, labeled by the rule that produced them.",
	}, []string{"kind"}), "backbone_connections")
	if err != nil {
		return nil, err
	}
	components, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backbone_components",
		Help: "Connected components of the generated element graph.",
	}), "backbone_components")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backbone_stage_duration_seconds",
		Help:    "Generator stage latency in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"stage"}), "backbone_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &GeneratorCollector{
		gatherer:       gatherer,
		Elements:       elements,
		QuotaElements:  quota,
		Connections:    conns,
		Components:     components,
		StageDurations: durations,
	}, nil
}

// ObserveStage records the duration of one pipeline stage.
func (c *GeneratorCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordTopology replaces the gauges with the tallies of a finished run.
func (c *GeneratorCollector) RecordTopology(q *core.Quota, r *core.Report) {
	if c == nil {
		return
	}
	if q != nil {
		c.QuotaElements.Reset()
		for _, l := range model.GeneratedLayers {
			c.QuotaElements.WithLabelValues(string(l)).Set(float64(q.Layer(l)))
		}
	}
	if r == nil {
		return
	}

	c.Elements.Reset()
	for cell, n := range r.ByCell {
		c.Elements.WithLabelValues(string(cell.Layer), cell.Region).Set(float64(n))
	}
	c.Connections.Reset()
	for _, k := range model.LinkKinds {
		c.Connections.WithLabelValues(k.String()).Set(float64(r.Connections[k]))
	}
	c.Components.Set(float64(r.Components))
}

// WriteTextfile writes every metric of the collector's registry in the
// node_exporter textfile format.
func (c *GeneratorCollector) WriteTextfile(path string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

package core

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/signalsfoundry/backbone-generator/internal/logging"
	"github.com/signalsfoundry/backbone-generator/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/backbone-generator/core"

// Pipeline stage names, used for spans, logs and the stage histogram.
const (
	StageQuota     = "quota"
	StageGeography = "geography"
	StageAllocate  = "allocate"
	StageConnect   = "connect"
	StageReport    = "report"
)

// MetricsRecorder receives stage timings and the final tallies of a run.
// Implementations must tolerate being called once per stage.
type MetricsRecorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordTopology(q *Quota, r *Report)
}

// Generator runs the quota, geography, allocation and connection stages
// against one configuration.
type Generator struct {
	cfg     Config
	rng     *rand.Rand
	seed    int64
	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises a Generator.
type Option func(*Generator)

// WithSeed seeds a fresh random source.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand injects an existing random source. The seed reported in logs is
// left at zero.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

func WithLogger(log logging.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// NewGenerator validates cfg and applies opts. Without WithSeed or WithRand
// the random source is seeded from the clock.
func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, log: logging.Noop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.seed = time.Now().UnixNano()
		g.rng = rand.New(rand.NewSource(g.seed))
	}
	return g, nil
}

// Seed returns the seed of the generator's random source, zero when the
// source was injected with WithRand.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Topology is the result of one generation run.
type Topology struct {
	Quota       *Quota
	Elements    []*model.Element
	Pairs       []EdgePair
	Connections []model.Connection
	Skipped     []Shortfall

	regions *model.RegionTable
	report  *Report
}

// Localities returns the locality of every element, in element order.
func (t *Topology) Localities() []model.Locality {
	out := make([]model.Locality, 0, len(t.Elements))
	for _, e := range t.Elements {
		out = append(out, e.Locality())
	}
	return out
}

// RegionTable returns the state → region lookup the topology was built with.
func (t *Topology) RegionTable() *model.RegionTable {
	return t.regions
}

// Report tallies the topology. The result is computed once and cached.
func (t *Topology) Report() *Report {
	if t.report == nil {
		alloc := &Allocation{Elements: t.Elements, Pairs: t.Pairs, Skipped: t.Skipped}
		t.report = BuildReport(alloc, t.Connections, t.regions, t.Quota)
	}
	return t.report
}

// Generate builds a topology of roughly total elements. The run is not safe
// for concurrent use with the same Generator since it draws from a shared
// random source.
func (g *Generator) Generate(ctx context.Context, total int) (*Topology, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("backbone.total", total),
		attribute.Int64("backbone.seed", g.seed),
	))
	defer span.End()

	log := g.log
	log.Info(ctx, "generation started",
		logging.Int("total", total),
		logging.Int64("seed", g.seed),
	)

	var quota *Quota
	err := g.stage(ctx, StageQuota, func(context.Context) error {
		var err error
		quota, err = ComputeQuota(total, &g.cfg)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("compute quota: %w", err)
	}
	for _, l := range model.GeneratedLayers {
		log.Debug(ctx, "layer quota",
			logging.String("layer", string(l)),
			logging.Int("count", quota.Layer(l)),
		)
	}
	if quota.RepairedLayer != "" {
		log.Debug(ctx, "rounding repaired", logging.String("layer", string(quota.RepairedLayer)))
	}

	var geo *GeographyIndex
	g.step(ctx, StageGeography, func(context.Context) {
		geo = NewGeographyIndex(&g.cfg)
	})

	var alloc *Allocation
	g.step(ctx, StageAllocate, func(ctx context.Context) {
		alloc = Allocate(ctx, quota, geo, &g.cfg, g.rng, log)
	})

	var conns []model.Connection
	g.step(ctx, StageConnect, func(context.Context) {
		conns = BuildConnections(alloc, geo.RegionTable(), g.cfg.nationalOrder(), g.rng)
	})

	topo := &Topology{
		Quota:       quota,
		Elements:    alloc.Elements,
		Pairs:       alloc.Pairs,
		Connections: conns,
		Skipped:     alloc.Skipped,
		regions:     geo.RegionTable(),
	}

	var report *Report
	g.step(ctx, StageReport, func(context.Context) {
		report = topo.Report()
	})
	if g.metrics != nil {
		g.metrics.RecordTopology(quota, report)
	}

	span.SetAttributes(
		attribute.Int("backbone.elements", report.Total),
		attribute.Int("backbone.connections", report.TotalConnections),
		attribute.Int("backbone.components", report.Components),
	)
	log.Info(ctx, "generation finished",
		logging.Int("elements", report.Total),
		logging.Int("connections", report.TotalConnections),
		logging.Int("components", report.Components),
		logging.Int("skipped", len(report.Skipped)),
	)
	return topo, nil
}

// stage runs a fallible pipeline stage inside its own span.
func (g *Generator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, finish := g.begin(ctx, name)
	err := fn(ctx)
	finish(err)
	return err
}

// step runs a stage that cannot fail.
func (g *Generator) step(ctx context.Context, name string, fn func(context.Context)) {
	ctx, finish := g.begin(ctx, name)
	fn(ctx)
	finish(nil)
}

func (g *Generator) begin(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "stage/"+name)
	start := time.Now()
	return ctx, func(err error) {
		defer span.End()
		elapsed := time.Since(start)
		if g.metrics != nil {
			g.metrics.ObserveStage(name, elapsed)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		g.log.Debug(ctx, "stage finished",
			logging.String("stage", name),
			logging.Float("duration_ms", float64(elapsed.Microseconds())/1000),
		)
	}
}

package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/backbone-generator/model"
)

// Quota holds the integer targets derived from the element total.
type Quota struct {
	Total int

	Layers      map[model.Layer]int
	Regions     map[string]int
	RegionOrder []string // configuration order of the region shares

	// Per-region sub-quotas for the seeded layers.
	CoreByRegion      map[string]int
	ReflectorByRegion map[string]int

	MandatoryHubs       int
	MandatorySubRegions int

	// RepairedLayer received the rounding difference ("" when none was needed).
	RepairedLayer model.Layer
	// EdgeForced is set when RTED was bumped to an even count, which makes
	// Sum() exceed Total by one.
	EdgeForced bool
}

// Sum returns the total of the layer quotas.
func (q *Quota) Sum() int {
	n := 0
	for _, v := range q.Layers {
		n += v
	}
	return n
}

// Layer returns the quota for l, zero when absent.
func (q *Quota) Layer(l model.Layer) int {
	return q.Layers[l]
}

// ComputeQuota turns the element total into per-layer and per-region
// counts. Rounding is half-to-even. Rounding differences are added to the
// layer (or region) with the largest configured proportion, the first one
// in configuration order winning ties.
func ComputeQuota(total int, cfg *Config) (*Quota, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTotal, total)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	q := &Quota{
		Total:             total,
		Layers:            make(map[model.Layer]int, len(model.GeneratedLayers)),
		Regions:           make(map[string]int, len(cfg.RegionShares)),
		CoreByRegion:      make(map[string]int, len(cfg.RegionShares)),
		ReflectorByRegion: make(map[string]int, len(cfg.RegionShares)),
	}
	for _, s := range cfg.RegionShares {
		q.RegionOrder = append(q.RegionOrder, s.Key)
	}
	for _, h := range cfg.Hierarchy {
		q.MandatoryHubs += len(h.Hubs)
		q.MandatorySubRegions += len(h.SubRegions)
	}

	layerShares := make([]Share, 0, len(model.GeneratedLayers))
	for _, s := range cfg.LayerShares {
		if l, ok := model.ParseLayer(s.Key); ok && l.Generated() {
			layerShares = append(layerShares, s)
		}
	}
	for _, l := range model.GeneratedLayers {
		if _, ok := shareValue(layerShares, string(l)); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingLayer, l)
		}
	}

	if total == 0 {
		for _, l := range model.GeneratedLayers {
			q.Layers[l] = 0
		}
		for _, r := range q.RegionOrder {
			q.Regions[r] = 0
		}
		return q, nil
	}

	n := float64(total)
	for _, l := range model.GeneratedLayers {
		p, _ := shareValue(layerShares, string(l))
		q.Layers[l] = roundHalfEven(p * n)
	}
	q.Layers[model.LayerCore] = max(q.MandatoryHubs, q.Layers[model.LayerCore])
	q.Layers[model.LayerReflector] = max(q.MandatorySubRegions, q.Layers[model.LayerReflector])

	if diff := total - q.Sum(); diff != 0 {
		q.RepairedLayer = model.Layer(largestShare(layerShares))
		q.Layers[q.RepairedLayer] += diff
	}

	if q.Layers[model.LayerEdge]%2 != 0 {
		q.Layers[model.LayerEdge]++
		q.EdgeForced = true
	}

	sum := 0
	for _, s := range cfg.RegionShares {
		q.Regions[s.Key] = roundHalfEven(s.Value * n)
		sum += q.Regions[s.Key]
	}
	if diff := total - sum; diff != 0 && len(cfg.RegionShares) > 0 {
		q.Regions[largestShare(cfg.RegionShares)] += diff
	}

	q.CoreByRegion = distributeSeeded(q.Layers[model.LayerCore], cfg.RegionShares)
	q.ReflectorByRegion = distributeSeeded(q.Layers[model.LayerReflector], cfg.RegionShares)
	return q, nil
}

// distributeSeeded spreads a seeded layer's total across regions in
// proportion to the region shares, with at least one per region. Any
// shortfall is handed out one element at a time to the regions with the
// largest current sub-quota. An excess caused by the per-region floor is
// kept.
func distributeSeeded(total int, shares []Share) map[string]int {
	out := make(map[string]int, len(shares))
	if total <= 0 || len(shares) == 0 {
		for _, s := range shares {
			out[s.Key] = 0
		}
		return out
	}

	sum := 0
	for _, s := range shares {
		v := max(1, roundHalfEven(s.Value*float64(total)))
		out[s.Key] = v
		sum += v
	}

	keys := make([]string, len(shares))
	for sum < total {
		for i, s := range shares {
			keys[i] = s.Key
		}
		sort.SliceStable(keys, func(a, b int) bool { return out[keys[a]] > out[keys[b]] })
		for _, k := range keys {
			if sum >= total {
				break
			}
			out[k]++
			sum++
		}
	}
	return out
}

// regionShareOf scales a layer quota by a region's share of the total.
func regionShareOf(layerQuota, regionQuota, total int) int {
	if total == 0 {
		return 0
	}
	return roundHalfEven(float64(layerQuota) * (float64(regionQuota) / float64(total)))
}

func roundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}

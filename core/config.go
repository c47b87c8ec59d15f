package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/backbone-generator/model"
)

var (
	ErrInvalidTotal   = errors.New("invalid element total")
	ErrMissingLayer   = errors.New("layer proportion missing")
	ErrInvalidConfig  = errors.New("invalid generator config")
	ErrNoRegionShares = errors.New("no region proportions")
)

// Share is one entry of an ordered proportion map. Order matters: rounding
// remainders go to the largest share, and ties resolve to the first entry.
type Share struct {
	Key   string
	Value float64
}

// SubRegion is a mandatory reflector seed. The first state is the
// representative one.
type SubRegion struct {
	Name   string
	States []string
}

// Hierarchy holds the mandatory seeds declared for one region.
type Hierarchy struct {
	Hubs       []string
	SubRegions []SubRegion
}

// Config is the parsed, validated input consumed by the generator. It is
// treated as read-only.
type Config struct {
	LayerShares   []Share // keyed by layer abbreviation (RTIC, RTRR, ...)
	RegionShares  []Share
	Hierarchy     map[string]Hierarchy
	Abbreviations map[model.Layer]string
	Regions       []model.Region
	Exchanges     []model.PeeringExchange
	Cities        []model.City // catalog, grouped by state in config order

	// NationalOrder overrides model.CanonicalRegionOrder when non-empty.
	NationalOrder []string
}

// Validate checks the structural fields the pipeline cannot run without.
// Richer validation belongs to the configuration provider.
func (c *Config) Validate() error {
	var errs []error
	for _, l := range model.GeneratedLayers {
		if _, ok := shareValue(c.LayerShares, string(l)); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingLayer, l))
		}
		if c.Abbreviations[l] == "" {
			errs = append(errs, fmt.Errorf("%w: abbreviation for %s is empty", ErrInvalidConfig, l))
		}
	}
	if len(c.RegionShares) == 0 {
		errs = append(errs, ErrNoRegionShares)
	}
	for _, s := range append(append([]Share(nil), c.LayerShares...), c.RegionShares...) {
		if s.Value < 0 || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			errs = append(errs, fmt.Errorf("%w: proportion %q = %v", ErrInvalidConfig, s.Key, s.Value))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) nationalOrder() []string {
	if len(c.NationalOrder) > 0 {
		return c.NationalOrder
	}
	return model.CanonicalRegionOrder
}

func shareValue(shares []Share, key string) (float64, bool) {
	for _, s := range shares {
		if s.Key == key {
			return s.Value, true
		}
	}
	return 0, false
}

// largestShare returns the key with the greatest value; the first one wins
// on ties.
func largestShare(shares []Share) string {
	best := -1
	for i, s := range shares {
		if best < 0 || s.Value > shares[best].Value {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return shares[best].Key
}

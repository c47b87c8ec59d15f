package core

import "github.com/signalsfoundry/backbone-generator/model"

// GeographyIndex is the candidate city pool grouped by region. It is
// immutable after construction.
type GeographyIndex struct {
	regions   *model.RegionTable
	byRegion  map[string][]model.City
	order     []string
	exchanges map[string]struct{}
}

// NewGeographyIndex merges the city catalog with the peering-exchange
// locations and groups the pool by region. An exchange is appended only
// when no catalog entry has the same name, state and coordinates.
func NewGeographyIndex(cfg *Config) *GeographyIndex {
	idx := &GeographyIndex{
		regions:   model.NewRegionTable(cfg.Regions),
		byRegion:  make(map[string][]model.City),
		exchanges: make(map[string]struct{}, len(cfg.Exchanges)),
	}

	pool := make([]model.City, 0, len(cfg.Cities)+len(cfg.Exchanges))
	seen := make(map[model.City]struct{}, cap(pool))
	for _, c := range cfg.Cities {
		pool = append(pool, c)
		seen[c] = struct{}{}
	}
	for _, p := range cfg.Exchanges {
		idx.exchanges[p.City] = struct{}{}
		c := p.AsCity()
		if _, dup := seen[c]; dup {
			continue
		}
		pool = append(pool, c)
		seen[c] = struct{}{}
	}

	for _, c := range pool {
		region := idx.regions.Lookup(c.State)
		if _, ok := idx.byRegion[region]; !ok {
			idx.order = append(idx.order, region)
		}
		idx.byRegion[region] = append(idx.byRegion[region], c)
	}
	return idx
}

// RegionTable returns the state → region lookup used by the index.
func (g *GeographyIndex) RegionTable() *model.RegionTable {
	return g.regions
}

// Regions lists regions owning at least one candidate, in first-seen order.
func (g *GeographyIndex) Regions() []string {
	return append([]string(nil), g.order...)
}

// CitiesInRegion returns a copy of the region's candidates in pool order.
func (g *GeographyIndex) CitiesInRegion(region string) []model.City {
	return append([]model.City(nil), g.byRegion[region]...)
}

// HasExchange reports whether a peering exchange is located in a city with
// this name.
func (g *GeographyIndex) HasExchange(city string) bool {
	_, ok := g.exchanges[city]
	return ok
}

// WithPeeringExchange filters cities down to those hosting a peering
// exchange, matched by city name.
func (g *GeographyIndex) WithPeeringExchange(cities []model.City) []model.City {
	var out []model.City
	for _, c := range cities {
		if g.HasExchange(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

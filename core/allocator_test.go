package core

import (
	"math/rand"
	"testing"

	"github.com/signalsfoundry/backbone-generator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateExchangesFirst(t *testing.T) {
	cfg := brazilConfig()
	alloc, _ := allocate(t, cfg, 300, 1)

	require.GreaterOrEqual(t, len(alloc.Elements), len(cfg.Exchanges))
	sp := alloc.Elements[0]
	assert.Equal(t, "PTT-São Paulo", sp.Name)
	assert.Equal(t, "PTT_SAO", sp.SiteID)
	assert.Equal(t, model.LayerPTT, sp.Layer)
	assert.Equal(t, 10, sp.Level)
	assert.Equal(t, "PTT", sp.Tier)
	assert.Equal(t, "Sudeste", sp.Region)

	assert.Equal(t, "PTT-Rio de Jan", alloc.Elements[1].Name)
	for _, e := range alloc.Elements[len(cfg.Exchanges):] {
		assert.NotEqual(t, model.LayerPTT, e.Layer)
	}
}

func TestAllocateHubsInRegionOrder(t *testing.T) {
	cfg := brazilConfig()
	alloc, _ := allocate(t, cfg, 300, 1)

	cores := alloc.ByLayer(model.LayerCore)
	var names []string
	for _, e := range cores {
		names = append(names, e.Name)
	}
	require.Len(t, names, 9, "Sul seeds two hubs against a sub-quota of one")
	assert.Equal(t, []string{"RTIC-MAN01-01", "RTIC-REC02-01", "RTIC-SAL03-01", "RTIC-BRA04-01", "RTIC-SÃO05-01", "RTIC-RIO06-01"}, names[:6])
	assert.Equal(t, []string{"RTIC-CUR08-01", "RTIC-POR09-01"}, names[7:])

	assert.Contains(t, []string{"Campinas", "Ribeirão Preto", "Niterói", "Belo Horizonte", "Uberlândia"}, cores[6].City,
		"hub cities are consumed before extras are drawn")

	assert.Equal(t, "AMMAN0IC001", cores[0].SiteID)
	assert.Equal(t, 1, cores[0].Level)
	assert.Equal(t, "INNER-CORE", cores[0].Tier)
}

func TestAllocateReflectorSeeds(t *testing.T) {
	cfg := brazilConfig()
	alloc, _ := allocate(t, cfg, 300, 1)

	reflectors := alloc.ByLayer(model.LayerReflector)
	require.Len(t, reflectors, 9)

	// Norte has no sub-region, so its only reflector is drawn at random.
	assert.Contains(t, []string{"AM", "PA"}, reflectors[0].State)

	assert.Equal(t, "RTRR-Norde02-01", reflectors[1].Name)
	assert.Equal(t, "Recife", reflectors[1].City)
	assert.Equal(t, "PEREC0RR001", reflectors[1].SiteID)

	// Salvador is the only exchange city left in Nordeste.
	assert.Equal(t, "RTRR-Salva03-01", reflectors[2].Name)
	assert.Equal(t, "BASAL0RR001", reflectors[2].SiteID)

	assert.Equal(t, "RTRR-Pauli05-01", reflectors[4].Name)
	assert.Equal(t, "São Paulo", reflectors[4].City)
	assert.Equal(t, "RTRR-Flumi06-01", reflectors[5].Name)
	assert.Equal(t, "Rio de Janeiro", reflectors[5].City)

	assert.Equal(t, "RTRR-Porto09-01", reflectors[8].Name)
	for _, e := range reflectors {
		assert.Equal(t, 3, e.Level)
		assert.Equal(t, "REFLECTOR", e.Tier)
	}
}

func TestAllocatePeeringPrefersExchanges(t *testing.T) {
	cfg := brazilConfig()
	alloc, geo := allocate(t, cfg, 300, 9)

	perRegion := make(map[string]int)
	for _, e := range alloc.ByLayer(model.LayerPeering) {
		region := geo.RegionTable().Lookup(e.State)
		perRegion[region]++
		switch region {
		case "Sudeste":
			assert.Contains(t, []string{"São Paulo", "Rio de Janeiro"}, e.City)
		case "Sul":
			assert.Equal(t, "Porto Alegre", e.City)
		case "Nordeste":
			assert.Equal(t, "Salvador", e.City)
		}
	}
	// max(1, round(9 * share)) per region.
	assert.Equal(t, map[string]int{
		"Norte":        1,
		"Nordeste":     2,
		"Centro-Oeste": 1,
		"Sudeste":      4,
		"Sul":          1,
	}, perRegion)
}

func TestAllocateEdgePairs(t *testing.T) {
	cfg := brazilConfig()
	alloc, geo := allocate(t, cfg, 300, 21)

	edges := alloc.ByLayer(model.LayerEdge)
	require.Len(t, alloc.Pairs, len(edges)/2)
	require.Zero(t, len(edges)%2)

	regions := geo.RegionTable()
	for _, p := range alloc.Pairs {
		assert.NotSame(t, p.A, p.B)
		assert.Equal(t, regions.Lookup(p.A.State), regions.Lookup(p.B.State))
		assert.NotEqual(t, p.A.City, p.B.City, "regions here have several cities")
		assert.Regexp(t, `^RTED-[A-Z]{2}\d{2}-01$`, p.A.Name)
		assert.Regexp(t, `^RTED-[A-Z]{2}\d{2}-02$`, p.B.Name)
	}
}

func TestAllocateEdgePartnerIsNearest(t *testing.T) {
	cities := []model.City{
		{Name: "Recife", State: "PE", Lat: -8.05, Lon: -34.88},
		{Name: "Caruaru", State: "PE", Lat: -8.28, Lon: -35.97},
		{Name: "Salvador", State: "BA", Lat: -12.97, Lon: -38.50},
	}
	assert.Equal(t, "Caruaru", nearestOther(cities[0], cities).Name)
	assert.Equal(t, "Caruaru", nearestOther(cities[2], cities).Name)
	assert.Equal(t, "Recife", nearestOther(cities[0], cities[:1]).Name, "single city pairs with itself")
}

func TestAllocateMetroPerRegion(t *testing.T) {
	cfg := brazilConfig()
	alloc, geo := allocate(t, cfg, 300, 2)

	perRegion := make(map[string]int)
	for _, e := range alloc.ByLayer(model.LayerMetro) {
		perRegion[geo.RegionTable().Lookup(e.State)]++
		assert.Equal(t, 8, e.Level)
		assert.Equal(t, "METRO", e.Tier)
	}
	// round(238 * regionQuota / 300).
	assert.Equal(t, map[string]int{
		"Norte":        19,
		"Nordeste":     64,
		"Centro-Oeste": 19,
		"Sudeste":      100,
		"Sul":          36,
	}, perRegion)
}

func TestAllocateSkipsRegionWithoutCities(t *testing.T) {
	cfg := brazilConfig()
	var kept []model.City
	for _, c := range cfg.Cities {
		if c.State != "AM" && c.State != "PA" {
			kept = append(kept, c)
		}
	}
	cfg.Cities = kept

	alloc, _ := allocate(t, cfg, 300, 4)
	for _, e := range alloc.Elements {
		assert.NotContains(t, []string{"AM", "PA"}, e.State)
	}

	skipped := make(map[model.Layer]Shortfall)
	for _, s := range alloc.Skipped {
		require.Equal(t, "Norte", s.Region)
		skipped[s.Layer] = s
	}
	for _, l := range model.GeneratedLayers {
		assert.Contains(t, skipped, l, "layer %s", l)
	}
	assert.Equal(t, 19, skipped[model.LayerMetro].Wanted)
	assert.Zero(t, skipped[model.LayerMetro].Placed)
}

func TestAllocateReportsExhaustedCandidates(t *testing.T) {
	cfg := saoPauloOnlyConfig()
	cfg.LayerShares = []Share{
		{Key: "RTIC", Value: 0.20},
		{Key: "RTRR", Value: 0.03},
		{Key: "RTPR", Value: 0.03},
		{Key: "RTED", Value: 0.12},
		{Key: "SWAC", Value: 0.62},
	}
	q, err := ComputeQuota(30, &cfg)
	require.NoError(t, err)
	require.Equal(t, 6, q.Layer(model.LayerCore))

	alloc, _ := allocate(t, cfg, 30, 1)

	require.Len(t, alloc.ByLayer(model.LayerCore), 1, "only the hub city exists")
	assert.Contains(t, alloc.Skipped, Shortfall{
		Layer:  model.LayerCore,
		Region: "Sudeste",
		Wanted: 5,
		Placed: 0,
		Reason: "candidate cities exhausted",
	})
	assert.NotEmpty(t, alloc.ByLayer(model.LayerMetro), "later layers still run")
}

func TestAllocateZeroLayerQuota(t *testing.T) {
	cfg := brazilConfig()
	cfg.LayerShares = []Share{
		{Key: "RTIC", Value: 0.02},
		{Key: "RTRR", Value: 0.03},
		{Key: "RTPR", Value: 0},
		{Key: "RTED", Value: 0.15},
		{Key: "SWAC", Value: 0.80},
	}
	alloc, _ := allocate(t, cfg, 300, 4)

	assert.Empty(t, alloc.ByLayer(model.LayerPeering))
	assert.NotEmpty(t, alloc.ByLayer(model.LayerEdge))
}

func TestAllocateUsesInjectedRandomSource(t *testing.T) {
	cfg := brazilConfig()
	q, err := ComputeQuota(300, &cfg)
	require.NoError(t, err)
	geo := NewGeographyIndex(&cfg)

	run := func(seed int64) []string {
		alloc := Allocate(t.Context(), q, geo, &cfg, rand.New(rand.NewSource(seed)), nil)
		out := make([]string, 0, len(alloc.Elements))
		for _, e := range alloc.Elements {
			out = append(out, e.SiteID)
		}
		return out
	}
	assert.Equal(t, run(42), run(42))
}

func TestSiteCounterIsPerCityAndLayer(t *testing.T) {
	c := make(siteCounter)
	sp := model.City{Name: "São Paulo", State: "SP"}
	rj := model.City{Name: "Rio de Janeiro", State: "RJ"}

	assert.Equal(t, 1, c.next(sp, model.LayerMetro))
	assert.Equal(t, 2, c.next(sp, model.LayerMetro))
	assert.Equal(t, 1, c.next(sp, model.LayerEdge))
	assert.Equal(t, 1, c.next(rj, model.LayerMetro))
}

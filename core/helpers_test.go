package core

import (
	"math/rand"
	"testing"

	"github.com/signalsfoundry/backbone-generator/model"
)

var testAbbreviations = map[model.Layer]string{
	model.LayerCore:      "IC",
	model.LayerReflector: "RR",
	model.LayerPeering:   "PR",
	model.LayerEdge:      "ED",
	model.LayerMetro:     "SW",
}

func defaultLayerShares() []Share {
	return []Share{
		{Key: "RTIC", Value: 0.02},
		{Key: "RTRR", Value: 0.03},
		{Key: "RTPR", Value: 0.03},
		{Key: "RTED", Value: 0.12},
		{Key: "SWAC", Value: 0.80},
	}
}

// brazilConfig is a reduced national catalog. City codes are unique within
// each state so site ids never collide.
func brazilConfig() Config {
	city := func(name, state string, lat, lon float64) model.City {
		return model.City{Name: name, State: state, Lat: lat, Lon: lon}
	}
	return Config{
		LayerShares: defaultLayerShares(),
		RegionShares: []Share{
			{Key: "Norte", Value: 0.08},
			{Key: "Nordeste", Value: 0.27},
			{Key: "Centro-Oeste", Value: 0.08},
			{Key: "Sudeste", Value: 0.42},
			{Key: "Sul", Value: 0.15},
		},
		Hierarchy: map[string]Hierarchy{
			"Norte":        {Hubs: []string{"Manaus"}},
			"Nordeste":     {Hubs: []string{"Recife", "Salvador"}, SubRegions: []SubRegion{{Name: "Nordeste-Leste", States: []string{"PE"}}}},
			"Centro-Oeste": {Hubs: []string{"Brasília"}},
			"Sudeste": {
				Hubs: []string{"São Paulo", "Rio de Janeiro"},
				SubRegions: []SubRegion{
					{Name: "Paulista", States: []string{"SP"}},
					{Name: "Fluminense", States: []string{"RJ"}},
				},
			},
			"Sul": {Hubs: []string{"Curitiba", "Porto Alegre"}},
		},
		Abbreviations: testAbbreviations,
		Regions: []model.Region{
			{Name: "Norte", States: []string{"AM", "PA"}},
			{Name: "Nordeste", States: []string{"BA", "PE"}},
			{Name: "Centro-Oeste", States: []string{"DF", "GO"}},
			{Name: "Sudeste", States: []string{"SP", "RJ", "MG"}},
			{Name: "Sul", States: []string{"PR", "RS"}},
		},
		Exchanges: []model.PeeringExchange{
			{City: "São Paulo", State: "SP", Lat: -23.55, Lon: -46.63},
			{City: "Rio de Janeiro", State: "RJ", Lat: -22.91, Lon: -43.17},
			{City: "Porto Alegre", State: "RS", Lat: -30.03, Lon: -51.23},
			{City: "Salvador", State: "BA", Lat: -12.97, Lon: -38.50},
		},
		Cities: []model.City{
			city("Manaus", "AM", -3.10, -60.02),
			city("Parintins", "AM", -2.63, -56.74),
			city("Belém", "PA", -1.45, -48.49),
			city("Santarém", "PA", -2.44, -54.71),
			city("Salvador", "BA", -12.97, -38.50),
			city("Feira de Santana", "BA", -12.26, -38.96),
			city("Recife", "PE", -8.05, -34.88),
			city("Caruaru", "PE", -8.28, -35.97),
			city("Brasília", "DF", -15.79, -47.88),
			city("Goiânia", "GO", -16.68, -49.25),
			city("Anápolis", "GO", -16.33, -48.95),
			city("São Paulo", "SP", -23.55, -46.63),
			city("Campinas", "SP", -22.90, -47.06),
			city("Ribeirão Preto", "SP", -21.17, -47.81),
			city("Rio de Janeiro", "RJ", -22.91, -43.17),
			city("Niterói", "RJ", -22.88, -43.10),
			city("Belo Horizonte", "MG", -19.92, -43.94),
			city("Uberlândia", "MG", -18.91, -48.27),
			city("Curitiba", "PR", -25.43, -49.27),
			city("Londrina", "PR", -23.31, -51.16),
			city("Porto Alegre", "RS", -30.03, -51.23),
			city("Caxias do Sul", "RS", -29.17, -51.18),
		},
	}
}

// saoPauloOnlyConfig is a single region with a single city serving as hub
// and sole catalog entry.
func saoPauloOnlyConfig() Config {
	return Config{
		LayerShares:   defaultLayerShares(),
		RegionShares:  []Share{{Key: "Sudeste", Value: 1.0}},
		Hierarchy:     map[string]Hierarchy{"Sudeste": {Hubs: []string{"São Paulo"}}},
		Abbreviations: testAbbreviations,
		Regions:       []model.Region{{Name: "Sudeste", States: []string{"SP"}}},
		Cities:        []model.City{{Name: "São Paulo", State: "SP", Lat: -23.55, Lon: -46.63}},
	}
}

func generate(t *testing.T, cfg Config, total int, seed int64) *Topology {
	t.Helper()
	g, err := NewGenerator(cfg, WithSeed(seed))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	topo, err := g.Generate(t.Context(), total)
	if err != nil {
		t.Fatalf("Generate(%d): %v", total, err)
	}
	return topo
}

func allocate(t *testing.T, cfg Config, total int, seed int64) (*Allocation, *GeographyIndex) {
	t.Helper()
	q, err := ComputeQuota(total, &cfg)
	if err != nil {
		t.Fatalf("ComputeQuota: %v", err)
	}
	geo := NewGeographyIndex(&cfg)
	return Allocate(t.Context(), q, geo, &cfg, rand.New(rand.NewSource(seed)), nil), geo
}

func connectionsOfKind(conns []model.Connection, kind model.LinkKind) []model.Connection {
	var out []model.Connection
	for _, c := range conns {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

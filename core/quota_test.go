package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/backbone-generator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeQuotaSingleCity(t *testing.T) {
	cfg := saoPauloOnlyConfig()
	q, err := ComputeQuota(30, &cfg)
	require.NoError(t, err)

	// round(0.6)=1, round(0.9)=1, round(0.9)=1, round(3.6)=4 and 24 sum to
	// 31; the surplus is taken back from SWAC.
	assert.Equal(t, map[model.Layer]int{
		model.LayerCore:      1,
		model.LayerReflector: 1,
		model.LayerPeering:   1,
		model.LayerEdge:      4,
		model.LayerMetro:     23,
	}, q.Layers)
	assert.Equal(t, model.LayerMetro, q.RepairedLayer)
	assert.False(t, q.EdgeForced)
	assert.Equal(t, 30, q.Sum())
	assert.Equal(t, map[string]int{"Sudeste": 30}, q.Regions)
	assert.Equal(t, map[string]int{"Sudeste": 1}, q.CoreByRegion)
	assert.Equal(t, map[string]int{"Sudeste": 1}, q.ReflectorByRegion)
}

func TestComputeQuotaNational(t *testing.T) {
	cfg := brazilConfig()
	q, err := ComputeQuota(300, &cfg)
	require.NoError(t, err)

	assert.Equal(t, 8, q.MandatoryHubs)
	assert.Equal(t, 3, q.MandatorySubRegions)
	assert.Equal(t, 8, q.Layer(model.LayerCore), "mandatory hubs exceed round(6)")
	assert.Equal(t, 9, q.Layer(model.LayerReflector))
	assert.Equal(t, 9, q.Layer(model.LayerPeering))
	assert.Equal(t, 36, q.Layer(model.LayerEdge))
	assert.Equal(t, 238, q.Layer(model.LayerMetro))
	assert.Equal(t, 300, q.Sum())

	assert.Equal(t, map[string]int{
		"Norte":        24,
		"Nordeste":     81,
		"Centro-Oeste": 24,
		"Sudeste":      126,
		"Sul":          45,
	}, q.Regions)
	assert.Equal(t, []string{"Norte", "Nordeste", "Centro-Oeste", "Sudeste", "Sul"}, q.RegionOrder)
	assert.Equal(t, map[string]int{
		"Norte":        1,
		"Nordeste":     2,
		"Centro-Oeste": 1,
		"Sudeste":      3,
		"Sul":          1,
	}, q.CoreByRegion)
}

func TestComputeQuotaForcesEvenEdgeCount(t *testing.T) {
	cfg := brazilConfig()
	// 0.12 * 125 = 15 is odd and gets bumped to 16 without compensation.
	q, err := ComputeQuota(125, &cfg)
	require.NoError(t, err)

	assert.True(t, q.EdgeForced)
	assert.Equal(t, 16, q.Layer(model.LayerEdge))
	assert.Equal(t, 126, q.Sum())
}

func TestComputeQuotaZeroTotal(t *testing.T) {
	cfg := brazilConfig()
	q, err := ComputeQuota(0, &cfg)
	require.NoError(t, err)

	assert.Zero(t, q.Sum())
	for _, l := range model.GeneratedLayers {
		assert.Zero(t, q.Layer(l), "layer %s", l)
	}
	for _, r := range q.RegionOrder {
		assert.Zero(t, q.Regions[r], "region %s", r)
	}
}

func TestComputeQuotaErrors(t *testing.T) {
	cfg := brazilConfig()
	_, err := ComputeQuota(-1, &cfg)
	assert.True(t, errors.Is(err, ErrInvalidTotal), "got %v", err)

	cfg.LayerShares = cfg.LayerShares[:4]
	_, err = ComputeQuota(300, &cfg)
	assert.True(t, errors.Is(err, ErrMissingLayer), "got %v", err)

	_, err = ComputeQuota(300, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func TestComputeQuotaTieGoesToFirstLayer(t *testing.T) {
	cfg := saoPauloOnlyConfig()
	cfg.LayerShares = []Share{
		{Key: "RTIC", Value: 0.1},
		{Key: "RTRR", Value: 0.1},
		{Key: "RTPR", Value: 0.1},
		{Key: "RTED", Value: 0.35},
		{Key: "SWAC", Value: 0.35},
	}
	// 3.2→3 three times and 11.2→11 twice sum to 31. RTED and SWAC tie on
	// the largest proportion, so RTED takes the missing element.
	q, err := ComputeQuota(32, &cfg)
	require.NoError(t, err)
	assert.Equal(t, model.LayerEdge, q.RepairedLayer)
	assert.Equal(t, 12, q.Layer(model.LayerEdge))
	assert.Equal(t, 11, q.Layer(model.LayerMetro))
}

func TestDistributeSeededFloorAndShortfall(t *testing.T) {
	shares := []Share{
		{Key: "A", Value: 0.5},
		{Key: "B", Value: 0.3},
		{Key: "C", Value: 0.2},
	}

	t.Run("floor keeps excess", func(t *testing.T) {
		// round(0.5)=0→1, round(0.3)=0→1, round(0.2)=0→1 for a total of 1.
		assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, distributeSeeded(1, shares))
	})
	t.Run("half-even rounding", func(t *testing.T) {
		// 5: round(2.5)=2, round(1.5)=2, round(1.0)=1 sum to 5.
		assert.Equal(t, map[string]int{"A": 2, "B": 2, "C": 1}, distributeSeeded(5, shares))
		// 7: round(3.5)=4, round(2.1)=2, round(1.4)=1 sum to 7.
		assert.Equal(t, map[string]int{"A": 4, "B": 2, "C": 1}, distributeSeeded(7, shares))
		// 9: round(4.5)=4, round(2.7)=3, round(1.8)=2 sum 9.
		assert.Equal(t, map[string]int{"A": 4, "B": 3, "C": 2}, distributeSeeded(9, shares))
	})
	t.Run("shortfall goes to the largest", func(t *testing.T) {
		halves := []Share{{Key: "A", Value: 0.5}, {Key: "B", Value: 0.5}}
		// round(2.5)=2 twice leaves one; A wins the tie on configuration order.
		assert.Equal(t, map[string]int{"A": 3, "B": 2}, distributeSeeded(5, halves))
	})
	t.Run("multiple passes", func(t *testing.T) {
		skewed := []Share{{Key: "A", Value: 0.1}, {Key: "B", Value: 0.1}}
		// round(1.0)=1 each leaves 8 to hand out over four passes.
		assert.Equal(t, map[string]int{"A": 5, "B": 5}, distributeSeeded(10, skewed))
	})
	t.Run("zero total", func(t *testing.T) {
		assert.Equal(t, map[string]int{"A": 0, "B": 0, "C": 0}, distributeSeeded(0, shares))
	})
}

func TestRoundHalfEven(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0.5, 0},
		{1.5, 2},
		{2.5, 2},
		{3.6, 4},
		{-0.5, 0},
	}
	for _, tc := range cases {
		if got := roundHalfEven(tc.in); got != tc.want {
			t.Fatalf("roundHalfEven(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRegionShareOf(t *testing.T) {
	assert.Equal(t, 0, regionShareOf(10, 5, 0))
	assert.Equal(t, 3, regionShareOf(36, 24, 300)) // 2.88
	assert.Equal(t, 15, regionShareOf(36, 126, 300))
}

package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/backbone-generator/model"
)

// KmPerDegree is the length of one degree of latitude used by the
// flat-earth distance approximation (kilometres).
const KmPerDegree = 111.32

// DistanceKm returns the approximate planar distance between two
// coordinates in kilometres. Longitude is scaled by the cosine of the
// midpoint latitude. Valid at country scale only; not geodesic.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * KmPerDegree
	midLat := (lat1 + lat2) / 2 * (math.Pi / 180)
	dLon := (lon2 - lon1) * KmPerDegree * math.Abs(math.Cos(midLat))
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Point is anything with a position.
type Point interface {
	Coordinates() (lat, lon float64)
}

type cityPoint model.City

func (c cityPoint) Coordinates() (float64, float64) { return c.Lat, c.Lon }

type elementPoint struct{ *model.Element }

func (e elementPoint) Coordinates() (float64, float64) { return e.Lat, e.Lon }

// NearestK returns the indices of the k candidates closest to (lat, lon),
// closest first. Equal distances keep the candidates' original order.
// k larger than the candidate count returns every index.
func NearestK(lat, lon float64, candidates []Point, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	type ranked struct {
		idx  int
		dist float64
	}
	rs := make([]ranked, len(candidates))
	for i, c := range candidates {
		clat, clon := c.Coordinates()
		rs[i] = ranked{idx: i, dist: DistanceKm(lat, lon, clat, clon)}
	}
	// Ties fall back to the index, so the result does not depend on the
	// stability of the sort implementation.
	sort.Slice(rs, func(a, b int) bool {
		if rs[a].dist != rs[b].dist {
			return rs[a].dist < rs[b].dist
		}
		return rs[a].idx < rs[b].idx
	})
	if k > len(rs) {
		k = len(rs)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = rs[i].idx
	}
	return out
}

func cityPoints(cities []model.City) []Point {
	pts := make([]Point, len(cities))
	for i, c := range cities {
		pts[i] = cityPoint(c)
	}
	return pts
}

func elementPoints(elems []*model.Element) []Point {
	pts := make([]Point, len(elems))
	for i, e := range elems {
		pts[i] = elementPoint{e}
	}
	return pts
}

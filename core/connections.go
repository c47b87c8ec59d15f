package core

import (
	"math"
	"math/rand"

	"github.com/signalsfoundry/backbone-generator/model"
)

// Connection labels, as written to the connections file.
const (
	LabelCoreRingPrefix = "Core Ring "
	LabelNationalRing   = "National Ring"
	LabelCrossRegion    = "Cross-Region Redundancy"
	LabelReflector      = "Reflector Link"
	LabelPeering        = "Peering Link"
	LabelEdgePair       = "Edge Pair"
	LabelEdgeToCore     = "Edge to Core"
	LabelMetroRing      = "Metro Ring"
	LabelMetroToEdge    = "Metro to Edge"
)

// uplinksPerNode is the number of core attachments of every reflector and
// peering router.
const uplinksPerNode = 2

type connectionBuilder struct {
	regions *model.RegionTable
	rng     *rand.Rand
	out     []model.Connection
}

// BuildConnections derives the link set from an allocation. order is the
// canonical region ordering for the national ring and the cross-region
// links. rng shuffles the metro rings. Rules run in a fixed sequence, so the
// output order is deterministic for a given random source.
func BuildConnections(alloc *Allocation, regions *model.RegionTable, order []string, rng *rand.Rand) []model.Connection {
	b := &connectionBuilder{regions: regions, rng: rng}
	cores := alloc.ByLayer(model.LayerCore)
	coreByRegion, seen := b.groupByRegion(cores)

	b.coreRings(coreByRegion, seen)
	b.nationalRing(coreByRegion, order)
	b.crossRegion(coreByRegion, order)
	b.reflectorUplinks(alloc.ByLayer(model.LayerReflector), cores, coreByRegion)
	b.peeringUplinks(alloc.ByLayer(model.LayerPeering), cores)
	b.edgePairs(alloc.Pairs, cores)
	b.metroRings(alloc.ByLayer(model.LayerMetro), alloc.Pairs)
	return b.out
}

func (b *connectionBuilder) link(a, z *model.Element, label string, kind model.LinkKind) {
	b.out = append(b.out, model.Connection{A: a.Name, B: z.Name, Label: label, Kind: kind})
}

// ring connects elems[i] to elems[(i+1) % n]. A single element yields a
// self-loop.
func (b *connectionBuilder) ring(elems []*model.Element, label string, kind model.LinkKind) {
	n := len(elems)
	for i := 0; i < n; i++ {
		b.link(elems[i], elems[(i+1)%n], label, kind)
	}
}

func (b *connectionBuilder) groupByRegion(elems []*model.Element) (map[string][]*model.Element, []string) {
	groups := make(map[string][]*model.Element)
	var seen []string
	for _, e := range elems {
		r := b.regions.Lookup(e.State)
		if _, ok := groups[r]; !ok {
			seen = append(seen, r)
		}
		groups[r] = append(groups[r], e)
	}
	return groups, seen
}

func (b *connectionBuilder) coreRings(byRegion map[string][]*model.Element, seen []string) {
	for _, region := range seen {
		if len(byRegion[region]) < 2 {
			continue
		}
		b.ring(byRegion[region], LabelCoreRingPrefix+region, model.LinkCoreRing)
	}
}

func (b *connectionBuilder) nationalRing(byRegion map[string][]*model.Element, order []string) {
	var hubs []*model.Element
	for _, region := range order {
		if len(byRegion[region]) > 0 {
			hubs = append(hubs, byRegion[region][0])
		}
	}
	if len(hubs) < 2 {
		return
	}
	b.ring(hubs, LabelNationalRing, model.LinkNationalRing)
}

func (b *connectionBuilder) crossRegion(byRegion map[string][]*model.Element, order []string) {
	for i, region := range order {
		next := order[(i+1)%len(order)]
		if len(byRegion[region]) >= 2 && len(byRegion[next]) > 0 {
			b.link(byRegion[region][1], byRegion[next][0], LabelCrossRegion, model.LinkCrossRegion)
		}
	}
}

func (b *connectionBuilder) reflectorUplinks(reflectors, cores []*model.Element, coresByRegion map[string][]*model.Element) {
	for _, rr := range reflectors {
		var targets []*model.Element
		if local := coresByRegion[b.regions.Lookup(rr.State)]; len(local) >= uplinksPerNode {
			targets = local[:uplinksPerNode]
		} else {
			targets = nearestUplinks(rr, cores)
		}
		for _, c := range targets {
			b.link(rr, c, LabelReflector, model.LinkReflector)
		}
	}
}

func (b *connectionBuilder) peeringUplinks(peers, cores []*model.Element) {
	for _, pr := range peers {
		for _, c := range nearestUplinks(pr, cores) {
			b.link(pr, c, LabelPeering, model.LinkPeering)
		}
	}
}

// nearestUplinks picks the two cores nearest to e. With a single core the
// same core is returned twice, so every node keeps two uplinks.
func nearestUplinks(e *model.Element, cores []*model.Element) []*model.Element {
	idx := NearestK(e.Lat, e.Lon, elementPoints(cores), uplinksPerNode)
	if len(idx) == 0 {
		return nil
	}
	out := make([]*model.Element, 0, uplinksPerNode)
	for i := 0; i < uplinksPerNode; i++ {
		out = append(out, cores[idx[i%len(idx)]])
	}
	return out
}

func (b *connectionBuilder) edgePairs(pairs []EdgePair, cores []*model.Element) {
	for _, p := range pairs {
		b.link(p.A, p.B, LabelEdgePair, model.LinkEdgePair)
		if len(cores) == 0 {
			continue
		}

		first := cores[NearestK(p.A.Lat, p.A.Lon, elementPoints(cores), 1)[0]]
		b.link(p.A, first, LabelEdgeToCore, model.LinkEdgeToCore)

		others := make([]*model.Element, 0, len(cores)-1)
		for _, c := range cores {
			if c != first {
				others = append(others, c)
			}
		}
		second := first
		if idx := NearestK(p.B.Lat, p.B.Lon, elementPoints(others), 1); len(idx) > 0 {
			second = others[idx[0]]
		}
		b.link(p.B, second, LabelEdgeToCore, model.LinkEdgeToCore)
	}
}

func (b *connectionBuilder) metroRings(metros []*model.Element, pairs []EdgePair) {
	groups := make(map[string][]*model.Element)
	var keys []string
	for _, m := range metros {
		key := m.State + "-" + m.City
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], m)
	}

	for _, key := range keys {
		group := groups[key]
		b.rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		b.ring(group, LabelMetroRing, model.LinkMetroRing)

		if len(pairs) == 0 {
			continue
		}
		pair := nearestPair(group[0], pairs)
		b.link(group[0], pair.A, LabelMetroToEdge, model.LinkMetroToEdge)
		b.link(group[len(group)-1], pair.B, LabelMetroToEdge, model.LinkMetroToEdge)
	}
}

// nearestPair returns the edge pair with the member closest to e; the
// first pair wins ties.
func nearestPair(e *model.Element, pairs []EdgePair) EdgePair {
	best, bestDist := 0, math.Inf(1)
	for i, p := range pairs {
		d := math.Min(
			DistanceKm(e.Lat, e.Lon, p.A.Lat, p.A.Lon),
			DistanceKm(e.Lat, e.Lon, p.B.Lat, p.B.Lon),
		)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return pairs[best]
}

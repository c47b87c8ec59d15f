package core

import (
	"sort"

	"github.com/signalsfoundry/backbone-generator/model"
)

// StateCount is one row of the per-state tally.
type StateCount struct {
	State string
	Count int
}

// LayerRegion keys the per-layer, per-region tally.
type LayerRegion struct {
	Layer  model.Layer
	Region string
}

// Report holds tallies computed over the produced records. Counts reflect
// what was generated, never what was requested; Requested keeps the quota
// for comparison.
type Report struct {
	Total       int // elements, peering exchanges included
	Generated   int // elements of the quota layers only
	ByLayer     map[model.Layer]int
	ByRegion    map[string]int
	ByState     map[string]int
	ByCell      map[LayerRegion]int
	Connections map[model.LinkKind]int

	TotalConnections int
	EdgePairs        int
	MetroGroups      int
	Components       int // connected components of the element graph

	Requested map[model.Layer]int
	Skipped   []Shortfall
}

// BuildReport tallies an allocation and its connections. Regions are
// resolved through the region table rather than the cached element field.
func BuildReport(alloc *Allocation, conns []model.Connection, regions *model.RegionTable, quota *Quota) *Report {
	r := &Report{
		ByLayer:     make(map[model.Layer]int),
		ByRegion:    make(map[string]int),
		ByState:     make(map[string]int),
		ByCell:      make(map[LayerRegion]int),
		Connections: make(map[model.LinkKind]int),
		Requested:   make(map[model.Layer]int),
		EdgePairs:   len(alloc.Pairs),
		Skipped:     append([]Shortfall(nil), alloc.Skipped...),
	}
	if quota != nil {
		for l, n := range quota.Layers {
			r.Requested[l] = n
		}
	}

	cities := make(map[string]struct{})
	for _, e := range alloc.Elements {
		r.Total++
		if e.Layer.Generated() {
			r.Generated++
		}
		region := regions.Lookup(e.State)
		r.ByLayer[e.Layer]++
		r.ByRegion[region]++
		r.ByCell[LayerRegion{Layer: e.Layer, Region: region}]++
		r.ByState[e.State]++
		if e.Layer == model.LayerMetro {
			cities[e.State+"-"+e.City] = struct{}{}
		}
	}
	r.MetroGroups = len(cities)

	for _, c := range conns {
		r.Connections[c.Kind]++
	}
	r.TotalConnections = len(conns)
	r.Components = countComponents(alloc.Elements, conns)
	return r
}

// TopStates returns the n states with the most elements, ties broken by
// state code.
func (r *Report) TopStates(n int) []StateCount {
	out := make([]StateCount, 0, len(r.ByState))
	for s, c := range r.ByState {
		out = append(out, StateCount{State: s, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].State < out[j].State
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// countComponents runs union-find over the generated elements. Peering
// exchanges carry no links and are left out.
func countComponents(elems []*model.Element, conns []model.Connection) int {
	parent := make(map[string]string, len(elems))
	for _, e := range elems {
		if e.Layer.Generated() {
			parent[e.Name] = e.Name
		}
	}

	find := func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	components := len(parent)
	for _, c := range conns {
		if _, ok := parent[c.A]; !ok {
			continue
		}
		if _, ok := parent[c.B]; !ok {
			continue
		}
		ra, rb := find(c.A), find(c.B)
		if ra != rb {
			parent[ra] = rb
			components--
		}
	}
	return components
}

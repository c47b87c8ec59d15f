package model

// UnknownRegion is reported for states that belong to no configured region.
const UnknownRegion = "Unknown"

// CanonicalRegionOrder is the geographic ordering used for the national
// ring and the cross-region redundancy links.
var CanonicalRegionOrder = []string{"Norte", "Nordeste", "Centro-Oeste", "Sudeste", "Sul"}

// Region is a named group of state codes.
type Region struct {
	Name   string
	States []string
}

// RegionTable resolves state codes to regions. The zero value maps every
// state to UnknownRegion.
type RegionTable struct {
	regions []Region
	byState map[string]string
}

// NewRegionTable indexes regions in the given order. When a state is listed
// twice the first region wins.
func NewRegionTable(regions []Region) *RegionTable {
	t := &RegionTable{
		regions: make([]Region, 0, len(regions)),
		byState: make(map[string]string),
	}
	for _, r := range regions {
		states := append([]string(nil), r.States...)
		t.regions = append(t.regions, Region{Name: r.Name, States: states})
		for _, s := range states {
			if _, dup := t.byState[s]; !dup {
				t.byState[s] = r.Name
			}
		}
	}
	return t
}

// Lookup returns the region owning state, or UnknownRegion.
func (t *RegionTable) Lookup(state string) string {
	if t == nil {
		return UnknownRegion
	}
	if name, ok := t.byState[state]; ok {
		return name
	}
	return UnknownRegion
}

// Regions returns a copy of the configured regions in order.
func (t *RegionTable) Regions() []Region {
	if t == nil {
		return nil
	}
	out := make([]Region, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, Region{Name: r.Name, States: append([]string(nil), r.States...)})
	}
	return out
}

// Names returns region names in configuration order.
func (t *RegionTable) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, r.Name)
	}
	return out
}

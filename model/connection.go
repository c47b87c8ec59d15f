package model

// LinkKind names the structural rule that produced a connection.
type LinkKind int

const (
	LinkUnknown LinkKind = iota
	LinkCoreRing
	LinkNationalRing
	LinkCrossRegion
	LinkReflector
	LinkPeering
	LinkEdgePair
	LinkEdgeToCore
	LinkMetroRing
	LinkMetroToEdge
)

// LinkKinds lists every known kind in emission order.
var LinkKinds = []LinkKind{
	LinkCoreRing,
	LinkNationalRing,
	LinkCrossRegion,
	LinkReflector,
	LinkPeering,
	LinkEdgePair,
	LinkEdgeToCore,
	LinkMetroRing,
	LinkMetroToEdge,
}

func (k LinkKind) String() string {
	switch k {
	case LinkCoreRing:
		return "core_ring"
	case LinkNationalRing:
		return "national_ring"
	case LinkCrossRegion:
		return "cross_region"
	case LinkReflector:
		return "reflector"
	case LinkPeering:
		return "peering"
	case LinkEdgePair:
		return "edge_pair"
	case LinkEdgeToCore:
		return "edge_to_core"
	case LinkMetroRing:
		return "metro_ring"
	case LinkMetroToEdge:
		return "metro_to_edge"
	default:
		return "unknown"
	}
}

// Connection is an undirected link between two elements, stored as an
// ordered endpoint pair. Duplicates produced by different rules are kept.
type Connection struct {
	A     string
	B     string
	Label string
	Kind  LinkKind
}

// Touches reports whether name is one of the endpoints.
func (c Connection) Touches(name string) bool {
	return c.A == name || c.B == name
}

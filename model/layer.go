package model

// Layer identifies a tier of the backbone hierarchy.
type Layer string

const (
	LayerPTT       Layer = "PTT"  // peering exchange, pre-existing
	LayerCore      Layer = "RTIC" // inner core
	LayerReflector Layer = "RTRR" // route reflector
	LayerPeering   Layer = "RTPR" // peering router
	LayerEdge      Layer = "RTED" // edge router, always paired
	LayerMetro     Layer = "SWAC" // metro access switch
)

// GeneratedLayers lists the layers subject to quota allocation, in
// allocation order.
var GeneratedLayers = []Layer{LayerCore, LayerReflector, LayerPeering, LayerEdge, LayerMetro}

// Level returns the hierarchy level used by drawing tools to stack the
// layers. Unknown layers report 0.
func (l Layer) Level() int {
	switch l {
	case LayerCore:
		return 1
	case LayerReflector:
		return 3
	case LayerPeering:
		return 4
	case LayerEdge:
		return 5
	case LayerMetro:
		return 8
	case LayerPTT:
		return 10
	default:
		return 0
	}
}

// Tier returns the human-readable tag written in the "camada" column.
func (l Layer) Tier() string {
	switch l {
	case LayerCore:
		return "INNER-CORE"
	case LayerReflector:
		return "REFLECTOR"
	case LayerPeering:
		return "PEERING"
	case LayerEdge:
		return "EDGE"
	case LayerMetro:
		return "METRO"
	case LayerPTT:
		return "PTT"
	default:
		return string(l)
	}
}

// Generated reports whether the layer is part of the quota.
func (l Layer) Generated() bool {
	for _, g := range GeneratedLayers {
		if g == l {
			return true
		}
	}
	return false
}

// ParseLayer maps a configuration key to a Layer.
func ParseLayer(s string) (Layer, bool) {
	l := Layer(s)
	if l == LayerPTT || l.Generated() {
		return l, true
	}
	return "", false
}

package config

import (
	"fmt"

	"github.com/signalsfoundry/backbone-generator/core"
	"gopkg.in/yaml.v3"
)

// Proportion is one entry of an ordered fraction table.
type Proportion struct {
	Key   string  `validate:"required"`
	Value float64 `validate:"gte=0,lte=1"`
}

// Proportions decodes a mapping of name to fraction, keeping key order.
type Proportions []Proportion

func (p *Proportions) UnmarshalYAML(node *yaml.Node) error {
	return eachPair(node, func(key string, value *yaml.Node) error {
		var v float64
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("proportion %q: %w", key, err)
		}
		*p = append(*p, Proportion{Key: key, Value: v})
		return nil
	})
}

func (p Proportions) shares() []core.Share {
	out := make([]core.Share, 0, len(p))
	for _, e := range p {
		out = append(out, core.Share{Key: e.Key, Value: e.Value})
	}
	return out
}

// StateGroup names a list of state codes. It backs both the region table
// and the sub-regions of the hierarchy.
type StateGroup struct {
	Name   string   `validate:"required"`
	States []string `validate:"required,min=1,dive,required"`
}

// StateGroups decodes a mapping of name to state list, keeping key order.
type StateGroups []StateGroup

func (g *StateGroups) UnmarshalYAML(node *yaml.Node) error {
	return eachPair(node, func(key string, value *yaml.Node) error {
		var states []string
		if err := value.Decode(&states); err != nil {
			return fmt.Errorf("group %q: %w", key, err)
		}
		*g = append(*g, StateGroup{Name: key, States: states})
		return nil
	})
}

// Hierarchy holds the mandatory seeds of one region.
type Hierarchy struct {
	Region     string      `yaml:"-" validate:"required"`
	Hubs       []string    `yaml:"hubs" validate:"dive,required"`
	SubRegions StateGroups `yaml:"sub-regioes" validate:"dive"`
}

// Hierarchies decodes the region → seeds mapping in file order.
type Hierarchies []Hierarchy

func (h *Hierarchies) UnmarshalYAML(node *yaml.Node) error {
	return eachPair(node, func(key string, value *yaml.Node) error {
		var entry Hierarchy
		if err := value.Decode(&entry); err != nil {
			return fmt.Errorf("hierarchy %q: %w", key, err)
		}
		entry.Region = key
		*h = append(*h, entry)
		return nil
	})
}

// Exchange is a peering exchange written as [city, state, lat, lon].
type Exchange struct {
	City  string  `validate:"required"`
	State string  `validate:"required"`
	Lat   float64 `validate:"latitude"`
	Lon   float64 `validate:"longitude"`
}

func (e *Exchange) UnmarshalYAML(node *yaml.Node) error {
	return decodeTuple(node, "peering exchange", &e.City, &e.State, &e.Lat, &e.Lon)
}

// CityEntry is a catalog city written as [name, lat, lon].
type CityEntry struct {
	Name string  `validate:"required"`
	Lat  float64 `validate:"latitude"`
	Lon  float64 `validate:"longitude"`
}

func (c *CityEntry) UnmarshalYAML(node *yaml.Node) error {
	return decodeTuple(node, "city", &c.Name, &c.Lat, &c.Lon)
}

// StateCities is the catalog of one state.
type StateCities struct {
	State  string      `validate:"required"`
	Cities []CityEntry `validate:"dive"`
}

// CityCatalog decodes the state → cities mapping in file order.
type CityCatalog []StateCities

func (c *CityCatalog) UnmarshalYAML(node *yaml.Node) error {
	return eachPair(node, func(key string, value *yaml.Node) error {
		var cities []CityEntry
		if err := value.Decode(&cities); err != nil {
			return fmt.Errorf("cities of %s: %w", key, err)
		}
		*c = append(*c, StateCities{State: key, Cities: cities})
		return nil
	})
}

// eachPair walks a mapping node in document order.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("line %d: %w", node.Content[i].Line, err)
		}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// decodeTuple decodes a fixed-length sequence into targets.
func decodeTuple(node *yaml.Node, what string, targets ...any) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != len(targets) {
		return fmt.Errorf("line %d: %s must be a list of %d values", node.Line, what, len(targets))
	}
	for i, t := range targets {
		if err := node.Content[i].Decode(t); err != nil {
			return fmt.Errorf("line %d: %s field %d: %w", node.Content[i].Line, what, i, err)
		}
	}
	return nil
}

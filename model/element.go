package model

// City is a candidate location from the catalog. Many elements may share
// one city.
type City struct {
	Name  string
	State string
	Lat   float64
	Lon   float64
}

// PeeringExchange is a pre-existing internet exchange point. It is also
// merged into the candidate city pool.
type PeeringExchange struct {
	City  string
	State string
	Lat   float64
	Lon   float64
}

// AsCity returns the exchange location as a catalog city.
func (p PeeringExchange) AsCity() City {
	return City{Name: p.City, State: p.State, Lat: p.Lat, Lon: p.Lon}
}

// Element is a generated network node placed at a city.
// Elements are created once during allocation and never mutated.
type Element struct {
	Name   string // display name, used as connection endpoint
	Layer  Layer
	Level  int
	SiteID string // unique within a run for generated layers
	Tier   string // layer tag, e.g. "INNER-CORE"

	City   string
	State  string
	Region string // cached from the region table for reporting
	Lat    float64
	Lon    float64
}

// Locality is the geographic record emitted for each element.
type Locality struct {
	SiteID string
	City   string
	Region string
	Lat    float64
	Lon    float64
}

// Locality returns the element's locality record.
func (e *Element) Locality() Locality {
	return Locality{
		SiteID: e.SiteID,
		City:   e.City,
		Region: e.Region,
		Lat:    e.Lat,
		Lon:    e.Lon,
	}
}

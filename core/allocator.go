package core

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/signalsfoundry/backbone-generator/internal/logging"
	"github.com/signalsfoundry/backbone-generator/internal/textnorm"
	"github.com/signalsfoundry/backbone-generator/model"
)

// EdgePair is two RTED elements co-allocated at nearby cities.
type EdgePair struct {
	A *model.Element
	B *model.Element
}

// Shortfall records an allocation that could not be fully met.
type Shortfall struct {
	Layer  model.Layer
	Region string
	Wanted int
	Placed int
	Reason string
}

// Allocation is the element set produced by the site allocator. Peering
// exchanges come first, then the generated layers in hierarchy order.
type Allocation struct {
	Elements []*model.Element
	Pairs    []EdgePair
	Skipped  []Shortfall
}

// ByLayer returns the elements of layer l in allocation order.
func (a *Allocation) ByLayer(l model.Layer) []*model.Element {
	var out []*model.Element
	for _, e := range a.Elements {
		if e.Layer == l {
			out = append(out, e)
		}
	}
	return out
}

// siteCounter hands out per (city, layer) sequence numbers.
type siteCounter map[string]map[model.Layer]int

func (s siteCounter) next(c model.City, l model.Layer) int {
	key := c.State + c.Name
	if s[key] == nil {
		s[key] = make(map[model.Layer]int)
	}
	s[key][l]++
	return s[key][l]
}

// allocator owns the mutable state of one allocation run: the site
// counter, the random source and the growing element list.
type allocator struct {
	ctx     context.Context
	cfg     *Config
	quota   *Quota
	geo     *GeographyIndex
	rng     *rand.Rand
	log     logging.Logger
	counter siteCounter
	placed  map[model.Layer]int
	out     *Allocation
}

// Allocate places every element called for by the quota. Regions without
// candidate cities are skipped and reported in Allocation.Skipped.
func Allocate(ctx context.Context, quota *Quota, geo *GeographyIndex, cfg *Config, rng *rand.Rand, log logging.Logger) *Allocation {
	if log == nil {
		log = logging.Noop()
	}
	a := &allocator{
		ctx:     ctx,
		cfg:     cfg,
		quota:   quota,
		geo:     geo,
		rng:     rng,
		log:     log,
		counter: make(siteCounter),
		placed:  make(map[model.Layer]int),
		out:     &Allocation{},
	}
	a.allocateExchanges()
	a.allocateCore()
	a.allocateReflectors()
	a.allocatePeering()
	a.allocateEdges()
	a.allocateMetro()
	return a.out
}

func (a *allocator) allocateExchanges() {
	for _, p := range a.cfg.Exchanges {
		a.out.Elements = append(a.out.Elements, &model.Element{
			Name:   "PTT-" + textnorm.Truncate(p.City, 10),
			Layer:  model.LayerPTT,
			Level:  model.LayerPTT.Level(),
			SiteID: "PTT_" + textnorm.CityCode(p.City),
			Tier:   model.LayerPTT.Tier(),
			City:   p.City,
			State:  p.State,
			Region: a.geo.RegionTable().Lookup(p.State),
			Lat:    p.Lat,
			Lon:    p.Lon,
		})
	}
}

func (a *allocator) allocateCore() {
	if a.quota.Layer(model.LayerCore) <= 0 {
		return
	}
	for _, region := range a.quota.RegionOrder {
		want := a.quota.CoreByRegion[region]
		available := a.geo.CitiesInRegion(region)
		seeded := 0
		for _, hub := range a.cfg.Hierarchy[region].Hubs {
			i := indexOf(available, func(c model.City) bool { return c.Name == hub })
			if i < 0 {
				a.log.Warn(a.ctx, "hub city not in catalog",
					logging.String("region", region),
					logging.String("hub", hub),
				)
				continue
			}
			city := available[i]
			available = removeAt(available, i)
			a.place(city, model.LayerCore, fmt.Sprintf("RTIC-%s%02d-01", strings.ToUpper(textnorm.Truncate(hub, 3)), a.placed[model.LayerCore]+1))
			seeded++
		}
		a.placeExtras(region, model.LayerCore, want-seeded, available, func(c model.City, n int) string {
			return fmt.Sprintf("RTIC-%s%02d-01", strings.ToUpper(textnorm.Truncate(c.Name, 3)), n)
		})
	}
}

func (a *allocator) allocateReflectors() {
	if a.quota.Layer(model.LayerReflector) <= 0 {
		return
	}
	for _, region := range a.quota.RegionOrder {
		want := a.quota.ReflectorByRegion[region]
		available := a.geo.CitiesInRegion(region)
		seeded := 0
		for _, sub := range a.cfg.Hierarchy[region].SubRegions {
			if len(sub.States) == 0 {
				continue
			}
			state := sub.States[0]
			i := indexOf(available, func(c model.City) bool { return c.State == state })
			if i < 0 {
				a.log.Warn(a.ctx, "sub-region has no candidate city",
					logging.String("region", region),
					logging.String("sub_region", sub.Name),
					logging.String("state", state),
				)
				continue
			}
			city := available[i]
			available = removeAt(available, i)
			a.place(city, model.LayerReflector, fmt.Sprintf("RTRR-%s%02d-01", textnorm.Truncate(sub.Name, 5), a.placed[model.LayerReflector]+1))
			seeded++
		}
		a.placeExtras(region, model.LayerReflector, want-seeded, available, func(c model.City, n int) string {
			return fmt.Sprintf("RTRR-%s%02d-01", textnorm.Truncate(c.Name, 5), n)
		})
	}
}

// placeExtras draws the non-mandatory seeded elements without replacement,
// preferring cities that host a peering exchange.
func (a *allocator) placeExtras(region string, l model.Layer, extras int, available []model.City, name func(model.City, int) string) {
	if extras <= 0 {
		return
	}
	pool := a.geo.WithPeeringExchange(available)
	if len(pool) == 0 {
		pool = available
	}
	for i := 0; i < extras; i++ {
		if len(pool) == 0 {
			a.shortfall(l, region, extras, i, "candidate cities exhausted")
			return
		}
		j := a.rng.Intn(len(pool))
		city := pool[j]
		pool = removeAt(pool, j)
		a.place(city, l, name(city, a.placed[l]+1))
	}
}

func (a *allocator) allocatePeering() {
	total := a.quota.Layer(model.LayerPeering)
	if total <= 0 {
		return
	}
	for _, region := range a.quota.RegionOrder {
		want := max(1, regionShareOf(total, a.quota.Regions[region], a.quota.Total))
		cities := a.geo.CitiesInRegion(region)
		if len(cities) == 0 {
			a.shortfall(model.LayerPeering, region, want, 0, "no candidate cities")
			continue
		}
		pool := a.geo.WithPeeringExchange(cities)
		if len(pool) == 0 {
			pool = cities
		}
		for i := 0; i < want; i++ {
			city := pool[a.rng.Intn(len(pool))]
			a.place(city, model.LayerPeering, fmt.Sprintf("RTPR-%s%02d-01", city.State, i+1))
		}
	}
}

func (a *allocator) allocateEdges() {
	total := a.quota.Layer(model.LayerEdge)
	if total <= 0 {
		return
	}
	for _, region := range a.quota.RegionOrder {
		want := max(1, regionShareOf(total, a.quota.Regions[region], a.quota.Total))
		if want%2 != 0 {
			want++
		}
		cities := a.geo.CitiesInRegion(region)
		if len(cities) == 0 {
			a.shortfall(model.LayerEdge, region, want, 0, "no candidate cities")
			continue
		}
		for i := 0; i < want/2; i++ {
			base := cities[a.rng.Intn(len(cities))]
			partner := nearestOther(base, cities)
			first := a.place(base, model.LayerEdge, fmt.Sprintf("RTED-%s%02d-01", base.State, i+1))
			second := a.place(partner, model.LayerEdge, fmt.Sprintf("RTED-%s%02d-02", partner.State, i+1))
			a.out.Pairs = append(a.out.Pairs, EdgePair{A: first, B: second})
		}
	}
}

// nearestOther returns the candidate closest to base, excluding base
// itself. A region with a single city pairs the city with itself.
func nearestOther(base model.City, cities []model.City) model.City {
	others := make([]model.City, 0, len(cities))
	for _, c := range cities {
		if c != base {
			others = append(others, c)
		}
	}
	nearest := NearestK(base.Lat, base.Lon, cityPoints(others), 1)
	if len(nearest) == 0 {
		return base
	}
	return others[nearest[0]]
}

func (a *allocator) allocateMetro() {
	total := a.quota.Layer(model.LayerMetro)
	if total <= 0 {
		return
	}
	for _, region := range a.quota.RegionOrder {
		want := regionShareOf(total, a.quota.Regions[region], a.quota.Total)
		if want <= 0 {
			continue
		}
		cities := a.geo.CitiesInRegion(region)
		if len(cities) == 0 {
			a.shortfall(model.LayerMetro, region, want, 0, "no candidate cities")
			continue
		}
		for i := 0; i < want; i++ {
			city := cities[a.rng.Intn(len(cities))]
			a.place(city, model.LayerMetro, fmt.Sprintf("SWAC-%s%02d-01", city.State, i+1))
		}
	}
}

// place creates one element at city, consuming the next site counter value.
func (a *allocator) place(city model.City, l model.Layer, name string) *model.Element {
	e := &model.Element{
		Name:   name,
		Layer:  l,
		Level:  l.Level(),
		SiteID: a.siteID(city, l),
		Tier:   l.Tier(),
		City:   city.Name,
		State:  city.State,
		Region: a.geo.RegionTable().Lookup(city.State),
		Lat:    city.Lat,
		Lon:    city.Lon,
	}
	a.out.Elements = append(a.out.Elements, e)
	a.placed[l]++
	return e
}

// siteID renders {state}{city code}0{abbreviation}{counter:03d}. Two cities
// of one state sharing a city code can collide; that is accepted.
func (a *allocator) siteID(city model.City, l model.Layer) string {
	return fmt.Sprintf("%s%s0%s%03d", city.State, textnorm.CityCode(city.Name), a.cfg.Abbreviations[l], a.counter.next(city, l))
}

func (a *allocator) shortfall(l model.Layer, region string, wanted, placed int, reason string) {
	a.out.Skipped = append(a.out.Skipped, Shortfall{
		Layer:  l,
		Region: region,
		Wanted: wanted,
		Placed: placed,
		Reason: reason,
	})
	a.log.Warn(a.ctx, "allocation short of quota",
		logging.String("layer", string(l)),
		logging.String("region", region),
		logging.Int("wanted", wanted),
		logging.Int("placed", placed),
		logging.String("reason", reason),
	)
}

func indexOf(cities []model.City, match func(model.City) bool) int {
	for i, c := range cities {
		if match(c) {
			return i
		}
	}
	return -1
}

func removeAt(cities []model.City, i int) []model.City {
	return append(cities[:i], cities[i+1:]...)
}

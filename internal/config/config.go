// Package config loads the generator's input file. JSON and YAML share one
// decoder so mapping order survives: proportion ties and the region
// iteration order both depend on it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/signalsfoundry/backbone-generator/core"
	"github.com/signalsfoundry/backbone-generator/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every decoding and validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// proportionTolerance bounds how far a proportion table may sum away from 1.
const proportionTolerance = 0.05

var validate = validator.New()

// File mirrors the on-disk configuration. Key names are Portuguese and must
// stay stable for existing files.
type File struct {
	LayerProportions  Proportions       `yaml:"PROPORCAO_CAMADAS" validate:"required,min=5,dive"`
	RegionProportions Proportions       `yaml:"PROPORCOES_REGIAO" validate:"required,min=1,dive"`
	Hierarchy         Hierarchies       `yaml:"REGIOES_HIERARQUIA" validate:"dive"`
	Abbreviations     map[string]string `yaml:"ABREVIACOES" validate:"required,dive,keys,required,endkeys,required,alphanum"`
	Regions           StateGroups       `yaml:"REGIOES" validate:"required,min=1,dive"`
	Exchanges         []Exchange        `yaml:"PTTS" validate:"dive"`
	Cities            CityCatalog       `yaml:"CIDADES_UF" validate:"required,min=1,dive"`
	NationalOrder     []string          `yaml:"ORDEM_REGIOES" validate:"omitempty,unique,dive,required"`
}

// Format selects how raw bytes are pre-processed before decoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFromPath picks the format from the file extension. Anything that is
// not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, decodes and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return f, nil
}

// Decode parses data and validates the result.
func Decode(data []byte, format Format) (*File, error) {
	if format == FormatJSON {
		// JSON allows tab indentation, YAML does not. Raw tabs cannot occur
		// inside JSON strings, so swapping them is lossless.
		data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate runs the struct tag checks and then the cross-field checks.
// All problems are reported together.
func (f *File) Validate() error {
	var errs []error
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				errs = append(errs, formatFieldError(e))
			}
		} else {
			errs = append(errs, err)
		}
	}
	errs = append(errs, f.checkLayers()...)
	errs = append(errs, f.checkRegions()...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (f *File) checkLayers() []error {
	var errs []error
	seen := make(map[string]bool)
	for _, p := range f.LayerProportions {
		l, ok := model.ParseLayer(p.Key)
		if !ok || !l.Generated() {
			errs = append(errs, fmt.Errorf("PROPORCAO_CAMADAS: unknown layer %q", p.Key))
			continue
		}
		if seen[p.Key] {
			errs = append(errs, fmt.Errorf("PROPORCAO_CAMADAS: layer %q listed twice", p.Key))
		}
		seen[p.Key] = true
	}
	for _, l := range model.GeneratedLayers {
		if !seen[string(l)] {
			errs = append(errs, fmt.Errorf("PROPORCAO_CAMADAS: %w: %s", core.ErrMissingLayer, l))
		}
		if f.Abbreviations[string(l)] == "" {
			errs = append(errs, fmt.Errorf("ABREVIACOES: missing abbreviation for %s", l))
		}
	}
	if err := checkSum("PROPORCAO_CAMADAS", f.LayerProportions); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (f *File) checkRegions() []error {
	var errs []error
	declared := make(map[string]bool, len(f.Regions))
	owner := make(map[string]string)
	for _, r := range f.Regions {
		if declared[r.Name] {
			errs = append(errs, fmt.Errorf("REGIOES: region %q declared twice", r.Name))
		}
		declared[r.Name] = true
		for _, s := range r.States {
			if prev, dup := owner[s]; dup {
				errs = append(errs, fmt.Errorf("REGIOES: state %s listed in %q and %q", s, prev, r.Name))
				continue
			}
			owner[s] = r.Name
		}
	}

	for _, p := range f.RegionProportions {
		if !declared[p.Key] {
			errs = append(errs, fmt.Errorf("PROPORCOES_REGIAO: region %q not declared in REGIOES", p.Key))
		}
	}
	if err := checkSum("PROPORCOES_REGIAO", f.RegionProportions); err != nil {
		errs = append(errs, err)
	}
	for _, h := range f.Hierarchy {
		if !declared[h.Region] {
			errs = append(errs, fmt.Errorf("REGIOES_HIERARQUIA: region %q not declared in REGIOES", h.Region))
		}
	}
	for _, name := range f.NationalOrder {
		if !declared[name] {
			errs = append(errs, fmt.Errorf("ORDEM_REGIOES: region %q not declared in REGIOES", name))
		}
	}
	return errs
}

// UnassignedStates lists the CIDADES_UF and PTTS states that no REGIOES
// entry claims, in file order. Their elements report model.UnknownRegion
// and no regional quota ever draws from them.
func (f *File) UnassignedStates() []string {
	owned := make(map[string]bool)
	for _, r := range f.Regions {
		for _, s := range r.States {
			owned[s] = true
		}
	}
	var out []string
	add := func(state string) {
		if !owned[state] {
			owned[state] = true
			out = append(out, state)
		}
	}
	for _, sc := range f.Cities {
		add(sc.State)
	}
	for _, e := range f.Exchanges {
		add(e.State)
	}
	return out
}

func checkSum(field string, ps Proportions) error {
	if len(ps) == 0 {
		return nil
	}
	sum := 0.0
	for _, p := range ps {
		sum += p.Value
	}
	if math.Abs(sum-1) > proportionTolerance {
		return fmt.Errorf("%s: proportions sum to %.3f, want 1 ± %.2f", field, sum, proportionTolerance)
	}
	return nil
}

func formatFieldError(e validator.FieldError) error {
	field := strings.TrimPrefix(e.Namespace(), "File.")
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min":
		return fmt.Errorf("%s: must have at least %s entries", field, e.Param())
	case "gte", "lte":
		return fmt.Errorf("%s: value %v out of range (%s %s)", field, e.Value(), e.Tag(), e.Param())
	case "latitude", "longitude":
		return fmt.Errorf("%s: %v is not a valid %s", field, e.Value(), e.Tag())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}

// CoreConfig converts the file into the generator's input. The file must
// have passed Validate.
func (f *File) CoreConfig() core.Config {
	cfg := core.Config{
		LayerShares:   f.LayerProportions.shares(),
		RegionShares:  f.RegionProportions.shares(),
		Hierarchy:     make(map[string]core.Hierarchy, len(f.Hierarchy)),
		Abbreviations: make(map[model.Layer]string, len(f.Abbreviations)),
		NationalOrder: append([]string(nil), f.NationalOrder...),
	}
	for _, h := range f.Hierarchy {
		subs := make([]core.SubRegion, 0, len(h.SubRegions))
		for _, s := range h.SubRegions {
			subs = append(subs, core.SubRegion{Name: s.Name, States: append([]string(nil), s.States...)})
		}
		cfg.Hierarchy[h.Region] = core.Hierarchy{Hubs: append([]string(nil), h.Hubs...), SubRegions: subs}
	}
	for k, v := range f.Abbreviations {
		if l, ok := model.ParseLayer(k); ok {
			cfg.Abbreviations[l] = v
		}
	}
	for _, r := range f.Regions {
		cfg.Regions = append(cfg.Regions, model.Region{Name: r.Name, States: append([]string(nil), r.States...)})
	}
	for _, e := range f.Exchanges {
		cfg.Exchanges = append(cfg.Exchanges, model.PeeringExchange{City: e.City, State: e.State, Lat: e.Lat, Lon: e.Lon})
	}
	for _, sc := range f.Cities {
		for _, c := range sc.Cities {
			cfg.Cities = append(cfg.Cities, model.City{Name: c.Name, State: sc.State, Lat: c.Lat, Lon: c.Lon})
		}
	}
	return cfg
}

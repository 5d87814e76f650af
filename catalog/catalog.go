// Package catalog describes the kinds of objects that can be placed in a room.
//
// A catalog is read from a YAML, TOML or JSON file:
//
//	prefabs:
//	  - kind: painting
//	    surfaces: [wall]
//	    wall_mount_height: 1.5
//	    parts:
//	      - name: frame
//	        geometry: {min: {x: -0.4, y: -0.3, z: 0}, max: {x: 0.4, y: 0.3, z: 0.03}}
package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/surface"
	"github.com/pelletier/go-toml/v2"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

const (
	ErrTypeInvalidCatalog = "catalog_invalid"
	ErrTypeUnknownKind    = "catalog_unknown_kind"
)

// Format is the encoding of a catalog file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath returns the format matching the extension of a file.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.New("unsupported catalog file extension").
			WithType(ErrTypeInvalidCatalog).
			WithTag("path", path)
	}
}

// Prefab is a kind of object and the constants used to place it. Unset
// values fall back to the service configuration.
type Prefab struct {
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	// The surfaces the prefab can be placed on. Empty allows every surface.
	Surfaces []models.SurfaceKind `json:"surfaces,omitempty" yaml:"surfaces" toml:"surfaces"`

	// The unscaled size used when the prefab bounds can not be resolved.
	NominalSize *geom.Vector3f `json:"nominal_size,omitempty" yaml:"nominal_size" toml:"nominal_size"`

	WallStandoff    *float32 `json:"wall_standoff,omitempty" yaml:"wall_standoff" toml:"wall_standoff"`
	WallMountHeight *float32 `json:"wall_mount_height,omitempty" yaml:"wall_mount_height" toml:"wall_mount_height"`
	FloorClearance  *float32 `json:"floor_clearance,omitempty" yaml:"floor_clearance" toml:"floor_clearance"`

	// The parts new objects of this kind are made of.
	Parts []models.Part `json:"parts,omitempty" yaml:"parts" toml:"parts"`
}

// Allows reports whether the prefab can be placed on the given surface.
func (p Prefab) Allows(k models.SurfaceKind) bool {
	if len(p.Surfaces) == 0 {
		return true
	}

	for _, s := range p.Surfaces {
		if s == k {
			return true
		}
	}
	return false
}

// Options returns base with the prefab overrides applied.
func (p Prefab) Options(base surface.Options) surface.Options {
	if p.WallStandoff != nil {
		base.WallStandoff = *p.WallStandoff
	}
	if p.WallMountHeight != nil {
		base.WallMountHeight = *p.WallMountHeight
	}
	if p.FloorClearance != nil {
		base.FloorClearance = *p.FloorClearance
	}
	return base
}

// validateOverrides checks that the surface overrides are finite distances.
func (p Prefab) validateOverrides() error {
	overrides := []struct {
		field string
		value *float32
	}{
		{"wall_standoff", p.WallStandoff},
		{"wall_mount_height", p.WallMountHeight},
		{"floor_clearance", p.FloorClearance},
	}

	for _, o := range overrides {
		if o.value == nil {
			continue
		}
		if v := *o.value; !geom.IsFinite(v) || v < 0 {
			return errors.New("prefab override is not a finite non-negative distance").
				WithType(ErrTypeInvalidCatalog).
				WithTag("kind", p.Kind).
				WithTag("field", o.field).
				WithTag("value", v)
		}
	}
	return nil
}

// NewObject returns an object of the prefab kind at the origin.
func (p Prefab) NewObject(id models.ObjectID) *models.PlacedObject {
	tmpl := models.PlacedObject{
		Kind:  p.Kind,
		Parts: p.Parts,
	}

	obj := tmpl.Clone(id)
	obj.Transform = geom.IdentityTransform()
	for i := range obj.Parts {
		obj.Parts[i].Local = obj.Parts[i].Local.Normalized()
	}
	return obj
}

type file struct {
	Prefabs []Prefab `json:"prefabs" yaml:"prefabs" toml:"prefabs"`
}

// Catalog is a read-only set of prefabs indexed by kind.
type Catalog struct {
	prefabs map[string]Prefab
	kinds   []string
}

// New returns a catalog with the given prefabs. Kinds must be set and unique.
func New(prefabs ...Prefab) (*Catalog, error) {
	c := &Catalog{
		prefabs: make(map[string]Prefab, len(prefabs)),
		kinds:   make([]string, 0, len(prefabs)),
	}

	for i, p := range prefabs {
		if p.Kind == "" {
			return nil, errors.New("prefab without kind").
				WithType(ErrTypeInvalidCatalog).
				WithTag("index", i)
		}

		if _, ok := c.prefabs[p.Kind]; ok {
			return nil, errors.New("duplicate prefab kind").
				WithType(ErrTypeInvalidCatalog).
				WithTag("kind", p.Kind)
		}

		if p.NominalSize != nil && !p.NominalSize.IsFinite() {
			return nil, errors.New("prefab nominal size is not finite").
				WithType(ErrTypeInvalidCatalog).
				WithTag("kind", p.Kind)
		}

		if err := p.validateOverrides(); err != nil {
			return nil, err
		}

		c.prefabs[p.Kind] = p
		c.kinds = append(c.kinds, p.Kind)
	}

	return c, nil
}

// Load reads a catalog file. The format is picked from the file extension.
func Load(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading catalog file failed").
			WithType(ErrTypeInvalidCatalog).
			WithTag("path", path).
			Wrap(err)
	}

	c, err := Parse(data, format)
	if err != nil {
		return nil, errors.New("parsing catalog file failed").
			WithType(ErrTypeInvalidCatalog).
			WithTag("path", path).
			Wrap(err)
	}
	return c, nil
}

// Parse decodes a catalog.
func Parse(data []byte, format Format) (*Catalog, error) {
	var f file
	var err error

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&f)

	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)

	case FormatJSON:
		err = json.Unmarshal(data, &f)

	default:
		return nil, errors.New("unsupported catalog format").
			WithType(ErrTypeInvalidCatalog).
			WithTag("format", format)
	}

	if err != nil {
		return nil, errors.New("decoding catalog failed").
			WithType(ErrTypeInvalidCatalog).
			WithTag("format", format).
			Wrap(err)
	}
	return New(f.Prefabs...)
}

// Get returns the prefab of a kind.
func (c *Catalog) Get(kind string) (Prefab, bool) {
	if c == nil {
		return Prefab{}, false
	}

	p, ok := c.prefabs[kind]
	return p, ok
}

// Kinds returns the prefab kinds in declaration order.
func (c *Catalog) Kinds() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.kinds...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.kinds)
}

// NominalSize returns the nominal size of a kind, when the catalog defines
// one.
func (c *Catalog) NominalSize(kind string) (geom.Vector3f, bool) {
	p, ok := c.Get(kind)
	if !ok || p.NominalSize == nil {
		return geom.Vector3f{}, false
	}
	return *p.NominalSize, true
}

// NewObject returns an object of the given kind at the origin.
func (c *Catalog) NewObject(kind string, id models.ObjectID) (*models.PlacedObject, error) {
	p, ok := c.Get(kind)
	if !ok {
		return nil, errors.New("unknown object kind").
			WithType(ErrTypeUnknownKind).
			WithTag("kind", kind)
	}
	return p.NewObject(id), nil
}

package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// file is the on-disk shape shared by CUE and YAML catalogs.
type file struct {
	Products   []Product  `json:"products" yaml:"products"`
	Categories []Category `json:"categories" yaml:"categories"`
	Locations  []Location `json:"locations" yaml:"locations"`
	TimeSlots  TimeSlots  `json:"timeSlots" yaml:"timeSlots"`
	Priorities []Priority `json:"priorities" yaml:"priorities"`
}

// LoadError describes a catalog file that could not be read or decoded.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return "load catalog: " + e.Message
	}
	return fmt.Sprintf("load catalog %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the built-in catalog. The result is shared; Catalog is
// immutable.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCUE("default.cue", defaultCUE)
	})
	return defaultCatalog, defaultErr
}

// Load reads a catalog from path. The extension selects the format:
// .cue for CUE, .yaml or .yml for YAML.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read failed", Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml":
		return ParseYAML(path, bytes.NewReader(data))
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported extension %q", filepath.Ext(path))}
	}
}

// ParseCUE validates src against the catalog schema and builds a Catalog.
// name is used in error positions.
func ParseCUE(name string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Path: name, Message: "schema: " + cueerrors.Details(err, nil), Err: err}
	}

	data := ctx.CompileBytes(src, cue.Filename(name))
	if err := data.Err(); err != nil {
		return nil, &LoadError{Path: name, Message: cueerrors.Details(err, nil), Err: err}
	}

	value := schema.Unify(data)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Path: name, Message: cueerrors.Details(err, nil), Err: err}
	}

	var f file
	if err := value.Decode(&f); err != nil {
		return nil, &LoadError{Path: name, Message: "decode: " + err.Error(), Err: err}
	}
	return fromFile(name, f)
}

// ParseYAML decodes a YAML catalog. Unknown fields are rejected so typos
// surface instead of silently dropping data.
func ParseYAML(name string, r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Path: name, Message: "empty catalog file"}
		}
		return nil, &LoadError{Path: name, Message: err.Error(), Err: err}
	}

	for i, p := range f.Products {
		if p.ID <= 0 {
			return nil, &LoadError{Path: name, Message: fmt.Sprintf("products[%d]: id must be positive", i)}
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, &LoadError{Path: name, Message: fmt.Sprintf("products[%d]: name is required", i)}
		}
		if strings.TrimSpace(p.Category) == "" {
			return nil, &LoadError{Path: name, Message: fmt.Sprintf("products[%d]: category is required", i)}
		}
	}
	return fromFile(name, f)
}

func fromFile(name string, f file) (*Catalog, error) {
	c, err := New(f.Products,
		WithCategories(f.Categories),
		WithLocations(f.Locations),
		WithPriorities(f.Priorities),
		WithTimeSlots(f.TimeSlots),
	)
	if err != nil {
		return nil, &LoadError{Path: name, Message: err.Error(), Err: err}
	}
	return c, nil
}

package columnar

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// Origin records where a column's values come from
type Origin int

const (
	// OriginBound columns are refreshed by the backing dataset
	OriginBound Origin = iota
	// OriginDerived columns are written by application code
	OriginDerived
	// OriginConverted columns cache a coerced copy of another column
	OriginConverted
)

func (o Origin) String() string {
	switch o {
	case OriginBound:
		return "bound"
	case OriginDerived:
		return "derived"
	case OriginConverted:
		return "converted"
	default:
		return "unknown"
	}
}

// ConvertedSeparator joins a source column name and the target-kind suffix
// of its converted copy, e.g. "jetPt___f".
const ConvertedSeparator = "___"

// ConvertedName returns the reserved name of the converted copy of source
func ConvertedName(source string, suffix byte) string {
	return source + ConvertedSeparator + string(suffix)
}

// IsConvertedName reports whether name uses the reserved converted suffix
func IsConvertedName(name string) bool {
	i := strings.LastIndex(name, ConvertedSeparator)
	return i > 0 && len(name) == i+len(ConvertedSeparator)+1
}

// Column is a materialized, named storage cell
type Column struct {
	Name   string
	Origin Origin
	Handle Handle
}

// Type returns the column's tag
func (c *Column) Type() ColumnType { return c.Handle.Type() }

// Registry maps canonical names to columns. Scalar and indirect (vector, map)
// columns live in separate tables; a third table records the type name of
// every known name, materialized or not.
type Registry struct {
	scalars   map[string]*Column
	indirects map[string]*Column
	types     map[string]string
	destroyed bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		scalars:   make(map[string]*Column),
		indirects: make(map[string]*Column),
		types:     make(map[string]string),
	}
}

// Declare records a name as known without materializing storage. Used when
// scanning a dataset catalogue.
func (r *Registry) Declare(name string, t ColumnType) {
	if _, ok := r.types[name]; !ok {
		r.types[name] = t.String()
	}
}

// Known returns the type name of a known column
func (r *Registry) Known(name string) (string, bool) {
	typeName, ok := r.types[name]
	return typeName, ok
}

// Scalar returns a materialized scalar column
func (r *Registry) Scalar(name string) (*Column, bool) {
	c, ok := r.scalars[name]
	return c, ok
}

// Indirect returns a materialized vector or map column
func (r *Registry) Indirect(name string) (*Column, bool) {
	c, ok := r.indirects[name]
	return c, ok
}

// Column returns a materialized column from either table
func (r *Registry) Column(name string) (*Column, bool) {
	if c, ok := r.scalars[name]; ok {
		return c, true
	}
	c, ok := r.indirects[name]
	return c, ok
}

// Materialized reports whether storage exists for name
func (r *Registry) Materialized(name string) bool {
	_, ok := r.Column(name)
	return ok
}

// Register adds a new column. It fails if the name is already known, bound
// or not.
func (r *Registry) Register(name string, origin Origin, h Handle) (*Column, error) {
	if r.destroyed {
		return nil, errors.New(errors.ErrorTypeInternal, "registry already destroyed")
	}
	if _, ok := r.types[name]; ok {
		return nil, errors.Newf(errors.ErrorTypeConflict,
			"You are trying to redefine a tuple var: %q.  This is not allowed!  Please choose a unique name.", name).
			WithDetail("column", name)
	}
	return r.insert(name, origin, h), nil
}

// Materialize binds storage for a name that is known but has no storage yet.
// This is a first materialization, not a redefinition.
func (r *Registry) Materialize(name string, h Handle) (*Column, error) {
	if r.destroyed {
		return nil, errors.New(errors.ErrorTypeInternal, "registry already destroyed")
	}
	if _, ok := r.types[name]; !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "Variable not found: %q", name).
			WithDetail("column", name)
	}
	if r.Materialized(name) {
		return nil, errors.Newf(errors.ErrorTypeConflict, "tuple var %q is already bound", name).
			WithDetail("column", name)
	}
	c := r.insert(name, OriginBound, h)
	return c, nil
}

func (r *Registry) insert(name string, origin Origin, h Handle) *Column {
	c := &Column{Name: name, Origin: origin, Handle: h}
	if h.Kind().Indirect() {
		r.indirects[name] = c
	} else {
		r.scalars[name] = c
	}
	r.types[name] = h.Type().String()
	return c
}

// Names returns every known name in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destroy releases every column's storage exactly once
func (r *Registry) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	for _, table := range []map[string]*Column{r.scalars, r.indirects} {
		for _, c := range table {
			c.Handle.Destroy()
		}
	}
}

package ntuple

import (
	"github.com/ajitpratap0/ntuple/pkg/columnar"
)

// Var returns the value of a scalar column for the current event. T must be
// a sized type: columns store int32, int64, uint32 and so on, and the
// platform-dependent int and uint have no column type, so Var[int] always
// fails.
//
// On failure the error is logged while the first event is processed. With
// ReThrow enabled the error is returned; otherwise Var returns the zero
// value of T and a nil error.
func Var[T any](r *Reader, name string) (T, error) {
	return scalarValue[T](r, name, false)
}

// VarForce is Var that also accepts a numeric column of another type with
// the width of T and reads its bits as a T, e.g. an int32 column as uint32.
// Requests that cannot be reinterpreted go through the usual conversions.
func VarForce[T any](r *Reader, name string) (T, error) {
	return scalarValue[T](r, name, true)
}

// Vec returns the contents of a vector column for the current event. The
// slice is owned by the reader and is overwritten by the next load.
func Vec[T any](r *Reader, name string) ([]T, error) {
	return indirectValue[[]T](r, name, nil)
}

// VecForce is the vector counterpart of VarForce. A reinterpreted slice
// shares the column's storage.
func VecForce[T any](r *Reader, name string) ([]T, error) {
	return indirectValue(r, name, columnar.VectorAs[T])
}

// Map returns the contents of a map column for the current event. The map
// is owned by the reader and is overwritten by the next load.
func Map[K comparable, V any](r *Reader, name string) (map[K]V, error) {
	return indirectValue[map[K]V](r, name, nil)
}

func scalarValue[T any](r *Reader, name string, force bool) (T, error) {
	var zero T
	req := lookupRequest{
		requested: name,
		resolved:  r.resolve(name),
		want:      columnar.TagOf[T](),
		force:     force,
	}
	h, err := r.lookup(req)
	if err == nil {
		if s, ok := columnar.ScalarOf[T](h); ok {
			return s.Value(), nil
		}
		if v, ok := columnar.ScalarAs[T](h); ok && force {
			return v, nil
		}
		err = r.notFound(req)
	}
	return zero, r.reportLookup(err)
}

// indirectValue reads a vector or map column. A non-nil reinterpret makes
// the request forced.
func indirectValue[T any](r *Reader, name string, reinterpret func(columnar.Handle) (T, bool)) (T, error) {
	var zero T
	req := lookupRequest{
		requested: name,
		resolved:  r.resolve(name),
		want:      columnar.TagOf[T](),
		indirect:  true,
		force:     reinterpret != nil,
	}
	h, err := r.lookup(req)
	if err == nil {
		if s, ok := columnar.IndirectOf[T](h); ok {
			return s.Value(), nil
		}
		if reinterpret != nil {
			if v, ok := reinterpret(h); ok {
				return v, nil
			}
		}
		err = r.notFound(req)
	}
	return zero, r.reportLookup(err)
}

// Ptr returns the storage address of a scalar column (*T), resolving the
// name and binding the branch on first use. It returns nil if the column
// does not exist.
func (r *Reader) Ptr(name string) any {
	return r.rawAddr(name, false)
}

// VecPtr returns the storage address of a vector or map column (**T)
func (r *Reader) VecPtr(name string) any {
	return r.rawAddr(name, true)
}

// Value returns a copy of the current value of any column, whatever its
// type: a T for scalars, a []E or map[K]V for vectors and maps. It binds the
// branch on first use and reports false if the column does not exist.
func (r *Reader) Value(name string) (any, bool) {
	col, ok := r.column(name, r.reg.Column)
	if !ok {
		return nil, false
	}
	return col.Handle.Interface(), true
}

func (r *Reader) rawAddr(name string, indirect bool) any {
	col, ok := r.column(name, r.table(indirect))
	if !ok || col.Handle.Kind().Indirect() != indirect {
		return nil
	}
	return col.Handle.Addr()
}

// column resolves name against find, binding a catalogue branch if needed
func (r *Reader) column(name string, find func(string) (*columnar.Column, bool)) (*columnar.Column, bool) {
	if r.closed {
		return nil, false
	}
	resolved := r.resolve(name)
	if col, ok := find(resolved); ok {
		return col, true
	}
	if _, known := r.reg.Known(resolved); !known || r.reg.Materialized(resolved) {
		return nil, false
	}
	col, err := r.lazyBind(resolved)
	if err != nil {
		return nil, false
	}
	return col, true
}

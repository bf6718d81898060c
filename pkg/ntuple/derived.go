package ntuple

import (
	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// Updater computes derived columns once per event
type Updater interface {
	Update(r *Reader)
}

// UpdaterFunc adapts a plain function to Updater
type UpdaterFunc func(r *Reader)

// Update calls f(r)
func (f UpdaterFunc) Update(r *Reader) { f(r) }

// BoolUpdaterFunc adapts a function returning a status to Updater. The
// status is ignored: every function counts as succeeded.
type BoolUpdaterFunc func(r *Reader) bool

// Update calls f(r)
func (f BoolUpdaterFunc) Update(r *Reader) { f(r) }

// RegisterFunction appends u to the functions run on every advance, in
// registration order. Registration fails once an event has been loaded;
// this error is returned regardless of the rethrow policy.
func (r *Reader) RegisterFunction(u Updater) error {
	if u == nil {
		return errors.New(errors.ErrorTypeConfig, "cannot register a nil function")
	}
	if r.started {
		err := errors.New(errors.ErrorTypeConfig, "New functions cannot be registered after tuple reading begins!")
		r.log.Error("ntuple error", r.errorFields(err)...)
		return err
	}
	r.updaters = append(r.updaters, u)
	return nil
}

// RegisterFunc registers a plain per-event function
func (r *Reader) RegisterFunc(f func(r *Reader)) error {
	if f == nil {
		return r.RegisterFunction(nil)
	}
	return r.RegisterFunction(UpdaterFunc(f))
}

// RegisterBoolFunc registers a per-event function returning a status
func (r *Reader) RegisterBoolFunc(f func(r *Reader) bool) error {
	if f == nil {
		return r.RegisterFunction(nil)
	}
	return r.RegisterFunction(BoolUpdaterFunc(f))
}

// RegisterDerivedVar publishes value under name. The first call creates
// the column; calls made while events are processed overwrite it with a
// value of the same type. Before the first event a known name is always a
// redefinition, and new names cannot be created once the first event is
// over. Slices and maps must be published with RegisterDerivedVec or
// RegisterDerivedMap.
func RegisterDerivedVar[T any](r *Reader, name string, value T) error {
	col, err := derivedColumn(r, name, columnar.TagOf[T](), columnar.KindScalar, derivedOrigin(name),
		func() columnar.Handle { return columnar.NewScalar[T]() })
	if err != nil {
		return r.report(err)
	}
	s, ok := columnar.ScalarOf[T](col.Handle)
	if !ok {
		return r.report(errTypeChange(name, col.Type(), columnar.TagOf[T]()))
	}
	s.Set(value)
	return nil
}

// RegisterDerivedVec publishes the vector v under name, taking ownership
// of it. The previously published vector is released first unless it is v.
func RegisterDerivedVec[E any](r *Reader, name string, v *[]E) error {
	return registerIndirect(r, name, v, columnar.KindVector, derivedOrigin(name))
}

// RegisterDerivedMap publishes the map m under name, taking ownership of it
func RegisterDerivedMap[K comparable, V any](r *Reader, name string, m *map[K]V) error {
	return registerIndirect(r, name, m, columnar.KindMap, derivedOrigin(name))
}

// derivedOrigin classifies a published column. Names with a converted
// suffix are cached conversions, whoever computes them.
func derivedOrigin(name string) columnar.Origin {
	if columnar.IsConvertedName(name) {
		return columnar.OriginConverted
	}
	return columnar.OriginDerived
}

func registerIndirect[T any](r *Reader, name string, v *T, kind columnar.Kind, origin columnar.Origin) error {
	tag := columnar.TagOf[T]()
	col, err := derivedColumn(r, name, tag, kind, origin, func() columnar.Handle {
		return newIndirectHandle[T](tag, kind)
	})
	if err != nil {
		return r.report(err)
	}
	h, ok := columnar.IndirectOf[T](col.Handle)
	if !ok {
		return r.report(errTypeChange(name, col.Type(), tag))
	}
	h.Replace(v)
	return nil
}

// newIndirectHandle allocates an indirect handle for a builtin or
// registered container type
func newIndirectHandle[T any](tag columnar.ColumnType, kind columnar.Kind) columnar.Handle {
	h, err := columnar.NewHandle(tag)
	if err != nil || h.Kind() != kind {
		return nil
	}
	return h
}

// derivedColumn returns the existing column for name or creates it
func derivedColumn(r *Reader, name string, tag columnar.ColumnType, kind columnar.Kind, origin columnar.Origin,
	create func() columnar.Handle) (*columnar.Column, error) {
	if r.closed {
		return nil, errors.New(errors.ErrorTypeInternal, "reader is closed")
	}

	// existing derived columns may only be overwritten by per-event updates
	if col, ok := r.reg.Column(name); ok {
		if col.Origin != origin || !r.started {
			return nil, errRedefinition(name)
		}
		return col, nil
	}
	if _, known := r.reg.Known(name); known {
		return nil, errRedefinition(name)
	}

	if !r.IsFirstEvent() {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"tuple var %q cannot be created after the first event", name).
			WithDetail("column", name)
	}
	if !tag.Valid() {
		return nil, errors.Newf(errors.ErrorTypeCapability,
			"tuple var %q has an unregistered type, register it with columnar.RegisterType", name).
			WithDetail("column", name)
	}
	if tag.Kind() != kind {
		return nil, errors.Newf(errors.ErrorTypeCapability,
			"tuple var %q of type %s is a %s, not a %s", name, tag, tag.Kind(), kind).
			WithDetail("column", name)
	}

	h := create()
	if h == nil {
		return nil, errors.Newf(errors.ErrorTypeCapability, "cannot allocate storage of type %s", tag).
			WithDetail("column", name)
	}
	return r.reg.Register(name, origin, h)
}

func errRedefinition(name string) error {
	return errors.Newf(errors.ErrorTypeConflict,
		"You are trying to redefine a tuple var: %q.  This is not allowed!  Please choose a unique name.", name).
		WithDetail("column", name)
}

func errTypeChange(name string, stored, got columnar.ColumnType) error {
	return errors.Newf(errors.ErrorTypeConflict,
		"tuple var %q has type %s and cannot store %s", name, stored, got).
		WithDetail("column", name).
		WithDetail("actual_type", stored.String()).
		WithDetail("requested_type", got.String())
}

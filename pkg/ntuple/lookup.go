package ntuple

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/metrics"
)

// resolve maps a requested name to the stored column name. The alias table
// is applied first, then the prefix is tried. Resolution is not cached since
// the prefix may change between calls.
func (r *Reader) resolve(name string) string {
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	if r.prefix != "" {
		if _, ok := r.reg.Known(r.prefix + name); ok {
			return r.prefix + name
		}
	}
	return name
}

// vectorSuffixes maps (requested, stored) tag pairs to the suffix of the
// converted column serving them
var vectorSuffixes = map[[2]columnar.ColumnType]byte{
	{columnar.TypeVecFloat32, columnar.TypeVecFloat64}: 'f',
	{columnar.TypeVecFloat64, columnar.TypeVecFloat32}: 'd',
	{columnar.TypeVecInt32, columnar.TypeVecUInt32}:    'i',
	{columnar.TypeVecInt32, columnar.TypeVecFloat32}:   'a',
}

var scalarSuffixes = map[[2]columnar.ColumnType]byte{
	{columnar.TypeFloat32, columnar.TypeFloat64}: 'f',
	{columnar.TypeFloat64, columnar.TypeFloat32}: 'd',
	{columnar.TypeFloat32, columnar.TypeInt32}:   'i',
}

// fallbackSuffixes are scanned in order when no direct conversion applies
var fallbackSuffixes = []byte{'d', 'f', 'i'}

// lookupRequest describes one getter call
type lookupRequest struct {
	requested string
	resolved  string
	want      columnar.ColumnType
	indirect  bool
	force     bool
}

// matches reports whether a column stored as t serves the request without
// conversion. Forced requests also accept same-width numeric storage, read
// bit for bit.
func (req lookupRequest) matches(t columnar.ColumnType) bool {
	if req.want.Valid() && t == req.want {
		return true
	}
	return req.force && columnar.Reinterpretable(t, req.want)
}

func (r *Reader) table(indirect bool) func(string) (*columnar.Column, bool) {
	if indirect {
		return r.reg.Indirect
	}
	return r.reg.Scalar
}

// lookup resolves a request to a storage handle. Tiers, first match wins:
// exact tag match (or a same-width reinterpretation when forced), converted
// column, bind on first use. The engine never converts values itself.
func (r *Reader) lookup(req lookupRequest) (columnar.Handle, error) {
	if r.closed {
		return nil, errors.New(errors.ErrorTypeInternal, "reader is closed")
	}
	find := r.table(req.indirect)

	if col, ok := find(req.resolved); ok {
		if req.matches(col.Type()) {
			return col.Handle, nil
		}
		if r.coercion {
			if h, ok := r.converted(req, col.Type()); ok {
				return h, nil
			}
		}
	} else if _, known := r.reg.Known(req.resolved); known && !r.reg.Materialized(req.resolved) {
		col, err := r.lazyBind(req.resolved)
		if err != nil {
			r.log.Debug("lazy bind failed", zap.String("column", req.resolved), zap.Error(err))
		} else if col.Handle.Kind().Indirect() == req.indirect && req.matches(col.Type()) {
			return col.Handle, nil
		}
	}

	return nil, r.notFound(req)
}

// converted looks up the cached converted copy of a column
func (r *Reader) converted(req lookupRequest, stored columnar.ColumnType) (columnar.Handle, bool) {
	find := r.table(req.indirect)
	suffixes := scalarSuffixes
	if req.indirect {
		suffixes = vectorSuffixes
	}

	if suffix, ok := suffixes[[2]columnar.ColumnType{req.want, stored}]; ok {
		if col, ok := find(columnar.ConvertedName(req.resolved, suffix)); ok && col.Type() == req.want {
			r.metrics.CoercionHit(string(suffix))
			return col.Handle, true
		}
	}

	for _, suffix := range fallbackSuffixes {
		if col, ok := find(columnar.ConvertedName(req.resolved, suffix)); ok && col.Type() == req.want {
			r.metrics.CoercionHit(string(suffix))
			return col.Handle, true
		}
	}
	return nil, false
}

// lazyBind binds a catalogue branch on first access and loads it for the
// current event only
func (r *Reader) lazyBind(name string) (*columnar.Column, error) {
	col, err := r.bindBranch(name)
	if err != nil {
		return nil, err
	}
	r.metrics.LazyBind()
	r.log.Debug("bound branch on first access", zap.String("column", name), zap.Int("event", r.nevt))

	if r.nevt > 0 {
		if err := r.ds.LoadBranch(name, r.nevt-1); err != nil {
			return nil, err
		}
	}
	return col, nil
}

// notFound builds the variable-not-found error, naming the stored type when
// the column exists with another type
func (r *Reader) notFound(req lookupRequest) error {
	wantName := req.want.String()
	if !req.want.Valid() {
		wantName = "unregistered type"
	}

	if actual, ok := r.reg.Known(req.resolved); ok {
		r.metrics.LookupFailure(metrics.ReasonWrongType)
		return errors.Newf(errors.ErrorTypeNotFound,
			"Variable not found: %q with type %q, but is found with type %q!!!", req.requested, wantName, actual).
			WithDetail("column", req.resolved).
			WithDetail("requested_type", wantName).
			WithDetail("actual_type", actual)
	}

	r.metrics.LookupFailure(metrics.ReasonNotFound)
	return errors.Newf(errors.ErrorTypeNotFound, "Variable not found: %q with type %q!!!", req.requested, wantName).
		WithDetail("column", req.resolved).
		WithDetail("requested_type", wantName)
}

// reportLookup logs a failed lookup while the first event is processed and
// applies the rethrow policy
func (r *Reader) reportLookup(err error) error {
	if r.IsFirstEvent() {
		r.log.Error("lookup failed", r.errorFields(err)...)
	}
	if r.reThrow {
		return err
	}
	return nil
}

// report logs err unconditionally and applies the rethrow policy
func (r *Reader) report(err error) error {
	r.log.Error("ntuple error", r.errorFields(err)...)
	if r.reThrow {
		return err
	}
	return nil
}

func (r *Reader) errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err), zap.Int("event", r.nevt)}
	var e *errors.Error
	if errors.As(err, &e) {
		for _, key := range []string{"column", "requested_type", "actual_type"} {
			if v, ok := e.Detail(key); ok {
				fields = append(fields, zap.Any(key, v))
			}
		}
	}
	return fields
}

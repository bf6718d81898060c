package ntuple

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// VectorConversions selects which vector branches get a converted copy
type VectorConversions struct {
	DoubleToFloat bool // []float64 -> name___f []float32
	FloatToDouble bool // []float32 -> name___d []float64
	IntToInt      bool // []uint32  -> name___i []int32
	FloatToInt    bool // []float32 -> name___a []int32
}

// ScalarConversions selects which scalar branches get a converted copy
type ScalarConversions struct {
	DoubleToFloat bool // float64 -> name___f float32
	FloatToDouble bool // float32 -> name___d float64
	IntToFloat    bool // int32   -> name___i float32
}

// DefaultVectorConversions enables double to float only
func DefaultVectorConversions() VectorConversions {
	return VectorConversions{DoubleToFloat: true}
}

// DefaultScalarConversions enables double to float and int to float
func DefaultScalarConversions() ScalarConversions {
	return ScalarConversions{DoubleToFloat: true, IntToFloat: true}
}

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// conversion registers the converter of one branch
type conversion struct {
	enabled bool
	source  columnar.ColumnType
	suffix  byte
	convert func(name string, suffix byte) Updater
}

// SetConvertFloatingPointVectors enables converted lookups and registers a
// per-event function for every catalogue vector branch matching an enabled
// conversion. It must be called before the first event.
func (r *Reader) SetConvertFloatingPointVectors(c VectorConversions) error {
	return r.setConversions([]conversion{
		{c.DoubleToFloat, columnar.TypeVecFloat64, 'f', castVector[float64, float32]},
		{c.FloatToDouble, columnar.TypeVecFloat32, 'd', castVector[float32, float64]},
		{c.IntToInt, columnar.TypeVecUInt32, 'i', castVector[uint32, int32]},
		{c.FloatToInt, columnar.TypeVecFloat32, 'a', castVector[float32, int32]},
	})
}

// SetConvertFloatingPointScalars is the scalar counterpart of
// SetConvertFloatingPointVectors
func (r *Reader) SetConvertFloatingPointScalars(c ScalarConversions) error {
	return r.setConversions([]conversion{
		{c.DoubleToFloat, columnar.TypeFloat64, 'f', castScalar[float64, float32]},
		{c.FloatToDouble, columnar.TypeFloat32, 'd', castScalar[float32, float64]},
		{c.IntToFloat, columnar.TypeInt32, 'i', castScalar[int32, float32]},
	})
}

func (r *Reader) setConversions(conversions []conversion) error {
	if r.started {
		return r.report(errors.New(errors.ErrorTypeConfig,
			"conversions cannot be enabled after tuple reading begins"))
	}
	r.coercion = true

	for _, b := range r.ds.Branches() {
		for _, c := range conversions {
			if !c.enabled || b.Type != c.source {
				continue
			}
			if err := r.RegisterFunction(c.convert(b.Name, c.suffix)); err != nil {
				return err
			}
			r.log.Debug("registered conversion",
				zap.String("column", b.Name),
				zap.String("converted", columnar.ConvertedName(b.Name, c.suffix)))
		}
	}
	return nil
}

// castVector publishes an element-wise converted copy of vector name
func castVector[From, To number](name string, suffix byte) Updater {
	target := columnar.ConvertedName(name, suffix)
	return UpdaterFunc(func(r *Reader) {
		src, ok := sourceValue[[]From](r, name, true)
		if !ok {
			return
		}
		out := convertSlice[From, To](src)
		if err := registerIndirect(r, target, &out, columnar.KindVector, columnar.OriginConverted); err != nil {
			r.log.Debug("conversion failed", zap.String("column", target), zap.Error(err))
		}
	})
}

// castScalar publishes a converted copy of scalar name
func castScalar[From, To number](name string, suffix byte) Updater {
	target := columnar.ConvertedName(name, suffix)
	return UpdaterFunc(func(r *Reader) {
		src, ok := sourceValue[From](r, name, false)
		if !ok {
			return
		}
		col, err := derivedColumn(r, target, columnar.TagOf[To](), columnar.KindScalar, columnar.OriginConverted,
			func() columnar.Handle { return columnar.NewScalar[To]() })
		if err != nil {
			r.log.Debug("conversion failed", zap.String("column", target), zap.Error(err))
			return
		}
		if s, ok := columnar.ScalarOf[To](col.Handle); ok {
			s.Set(To(src))
		}
	})
}

// sourceValue reads a branch by its stored name, bypassing alias and
// prefix resolution
func sourceValue[T any](r *Reader, name string, indirect bool) (T, bool) {
	var zero T
	h, err := r.lookup(lookupRequest{
		requested: name,
		resolved:  name,
		want:      columnar.TagOf[T](),
		indirect:  indirect,
	})
	if err != nil {
		return zero, false
	}
	if indirect {
		if v, ok := columnar.IndirectOf[T](h); ok {
			return v.Value(), true
		}
		return zero, false
	}
	if s, ok := columnar.ScalarOf[T](h); ok {
		return s.Value(), true
	}
	return zero, false
}

func convertSlice[From, To number](src []From) []To {
	out := make([]To, len(src))
	for i, v := range src {
		out[i] = To(v)
	}
	return out
}

// SetVectorAlias publishes an element-wise converted copy of vector from
// under alias on every event
func SetVectorAlias[From, To number](r *Reader, from, alias string) error {
	return r.RegisterFunc(func(r *Reader) {
		src, ok := sourceValue[[]From](r, r.resolve(from), true)
		if !ok {
			return
		}
		out := convertSlice[From, To](src)
		if err := RegisterDerivedVec(r, alias, &out); err != nil {
			r.log.Debug("vector alias failed", zap.String("column", alias), zap.Error(err))
		}
	})
}

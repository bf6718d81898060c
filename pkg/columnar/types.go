package columnar

import (
	"fmt"
	"reflect"
	"sync"
)

// ColumnType is the explicit type tag recorded for every column. Two columns
// have the same type iff their tags are equal.
type ColumnType int

const (
	TypeInvalid ColumnType = iota

	TypeBool
	TypeInt8
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeString

	TypeVecBool
	TypeVecInt8
	TypeVecUInt8
	TypeVecInt16
	TypeVecUInt16
	TypeVecInt32
	TypeVecUInt32
	TypeVecInt64
	TypeVecUInt64
	TypeVecFloat32
	TypeVecFloat64
	TypeVecString

	TypeMapStringInt32
	TypeMapStringInt64
	TypeMapStringFloat32
	TypeMapStringFloat64
	TypeMapStringString
	TypeMapInt32Float64

	typeBuiltinEnd
)

// Kind classifies how a column's storage is laid out
type Kind int

const (
	// KindScalar columns hold their value inline
	KindScalar Kind = iota
	// KindVector columns hold an owned pointer to a slice
	KindVector
	// KindMap columns hold an owned pointer to a map
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Indirect reports whether columns of this kind live in the vector table
func (k Kind) Indirect() bool { return k != KindScalar }

type typeInfo struct {
	name      string
	kind      Kind
	elem      ColumnType
	newHandle func(ColumnType) Handle
}

func scalarInfo[T any](name string) typeInfo {
	return typeInfo{name: name, kind: KindScalar, newHandle: func(t ColumnType) Handle { return newScalar[T](t) }}
}

func vectorInfo[T any](name string, elem ColumnType) typeInfo {
	return typeInfo{name: name, kind: KindVector, elem: elem, newHandle: func(t ColumnType) Handle { return newIndirect[[]T](t, KindVector) }}
}

func mapInfo[K comparable, V any](name string) typeInfo {
	return typeInfo{name: name, kind: KindMap, newHandle: func(t ColumnType) Handle { return newIndirect[map[K]V](t, KindMap) }}
}

var builtinTypes = map[ColumnType]typeInfo{
	TypeBool:    scalarInfo[bool]("bool"),
	TypeInt8:    scalarInfo[int8]("int8"),
	TypeUInt8:   scalarInfo[uint8]("uint8"),
	TypeInt16:   scalarInfo[int16]("int16"),
	TypeUInt16:  scalarInfo[uint16]("uint16"),
	TypeInt32:   scalarInfo[int32]("int32"),
	TypeUInt32:  scalarInfo[uint32]("uint32"),
	TypeInt64:   scalarInfo[int64]("int64"),
	TypeUInt64:  scalarInfo[uint64]("uint64"),
	TypeFloat32: scalarInfo[float32]("float32"),
	TypeFloat64: scalarInfo[float64]("float64"),
	TypeString:  scalarInfo[string]("string"),

	TypeVecBool:    vectorInfo[bool]("[]bool", TypeBool),
	TypeVecInt8:    vectorInfo[int8]("[]int8", TypeInt8),
	TypeVecUInt8:   vectorInfo[uint8]("[]uint8", TypeUInt8),
	TypeVecInt16:   vectorInfo[int16]("[]int16", TypeInt16),
	TypeVecUInt16:  vectorInfo[uint16]("[]uint16", TypeUInt16),
	TypeVecInt32:   vectorInfo[int32]("[]int32", TypeInt32),
	TypeVecUInt32:  vectorInfo[uint32]("[]uint32", TypeUInt32),
	TypeVecInt64:   vectorInfo[int64]("[]int64", TypeInt64),
	TypeVecUInt64:  vectorInfo[uint64]("[]uint64", TypeUInt64),
	TypeVecFloat32: vectorInfo[float32]("[]float32", TypeFloat32),
	TypeVecFloat64: vectorInfo[float64]("[]float64", TypeFloat64),
	TypeVecString:  vectorInfo[string]("[]string", TypeString),

	TypeMapStringInt32:   mapInfo[string, int32]("map[string]int32"),
	TypeMapStringInt64:   mapInfo[string, int64]("map[string]int64"),
	TypeMapStringFloat32: mapInfo[string, float32]("map[string]float32"),
	TypeMapStringFloat64: mapInfo[string, float64]("map[string]float64"),
	TypeMapStringString:  mapInfo[string, string]("map[string]string"),
	TypeMapInt32Float64:  mapInfo[int32, float64]("map[int32]float64"),
}

// Application types registered with RegisterType get tags above the builtins.
var custom = struct {
	sync.RWMutex
	byGoType map[reflect.Type]ColumnType
	info     map[ColumnType]typeInfo
	next     ColumnType
}{
	byGoType: make(map[reflect.Type]ColumnType),
	info:     make(map[ColumnType]typeInfo),
	next:     typeBuiltinEnd,
}

// RegisterType assigns a tag to an application type so it can be stored in
// derived columns. Slices and maps are stored indirectly like builtin vectors.
// Registering the same type twice returns the existing tag.
func RegisterType[T any](name string) ColumnType {
	if t := builtinTag[T](); t != TypeInvalid {
		return t
	}
	goType := reflect.TypeOf((*T)(nil)).Elem()

	custom.Lock()
	defer custom.Unlock()

	if t, ok := custom.byGoType[goType]; ok {
		return t
	}

	if name == "" {
		name = goType.String()
	}

	info := typeInfo{name: name, kind: KindScalar, newHandle: func(t ColumnType) Handle { return newScalar[T](t) }}
	switch goType.Kind() {
	case reflect.Slice:
		info.kind = KindVector
		info.newHandle = func(t ColumnType) Handle { return newIndirect[T](t, KindVector) }
	case reflect.Map:
		info.kind = KindMap
		info.newHandle = func(t ColumnType) Handle { return newIndirect[T](t, KindMap) }
	}

	t := custom.next
	custom.next++
	custom.byGoType[goType] = t
	custom.info[t] = info
	return t
}

// TagOf returns the tag for T, or TypeInvalid if T is neither builtin nor
// registered.
func TagOf[T any]() ColumnType {
	if t := builtinTag[T](); t != TypeInvalid {
		return t
	}
	custom.RLock()
	defer custom.RUnlock()
	return custom.byGoType[reflect.TypeOf((*T)(nil)).Elem()]
}

func builtinTag[T any]() ColumnType {
	switch any((*T)(nil)).(type) {
	case *bool:
		return TypeBool
	case *int8:
		return TypeInt8
	case *uint8:
		return TypeUInt8
	case *int16:
		return TypeInt16
	case *uint16:
		return TypeUInt16
	case *int32:
		return TypeInt32
	case *uint32:
		return TypeUInt32
	case *int64:
		return TypeInt64
	case *uint64:
		return TypeUInt64
	case *float32:
		return TypeFloat32
	case *float64:
		return TypeFloat64
	case *string:
		return TypeString
	case *[]bool:
		return TypeVecBool
	case *[]int8:
		return TypeVecInt8
	case *[]uint8:
		return TypeVecUInt8
	case *[]int16:
		return TypeVecInt16
	case *[]uint16:
		return TypeVecUInt16
	case *[]int32:
		return TypeVecInt32
	case *[]uint32:
		return TypeVecUInt32
	case *[]int64:
		return TypeVecInt64
	case *[]uint64:
		return TypeVecUInt64
	case *[]float32:
		return TypeVecFloat32
	case *[]float64:
		return TypeVecFloat64
	case *[]string:
		return TypeVecString
	case *map[string]int32:
		return TypeMapStringInt32
	case *map[string]int64:
		return TypeMapStringInt64
	case *map[string]float32:
		return TypeMapStringFloat32
	case *map[string]float64:
		return TypeMapStringFloat64
	case *map[string]string:
		return TypeMapStringString
	case *map[int32]float64:
		return TypeMapInt32Float64
	}
	return TypeInvalid
}

func lookupInfo(t ColumnType) (typeInfo, bool) {
	if info, ok := builtinTypes[t]; ok {
		return info, true
	}
	custom.RLock()
	defer custom.RUnlock()
	info, ok := custom.info[t]
	return info, ok
}

// String returns the fixed descriptive name of the tag
func (t ColumnType) String() string {
	if info, ok := lookupInfo(t); ok {
		return info.name
	}
	return fmt.Sprintf("invalid(%d)", int(t))
}

// Kind returns the storage kind of the tag
func (t ColumnType) Kind() Kind {
	info, _ := lookupInfo(t)
	return info.kind
}

// Valid reports whether the tag is builtin or registered
func (t ColumnType) Valid() bool {
	_, ok := lookupInfo(t)
	return ok
}

// Elem returns the element tag of a builtin vector tag
func (t ColumnType) Elem() ColumnType {
	info, _ := lookupInfo(t)
	return info.elem
}

var widths = map[ColumnType]int{
	TypeInt8: 1, TypeUInt8: 1,
	TypeInt16: 2, TypeUInt16: 2,
	TypeInt32: 4, TypeUInt32: 4, TypeFloat32: 4,
	TypeInt64: 8, TypeUInt64: 8, TypeFloat64: 8,
}

// Width returns the byte size of a fixed-width numeric tag, 0 for any other
// tag
func (t ColumnType) Width() int { return widths[t] }

// Reinterpretable reports whether storage of type stored can be read as want
// by reusing its bits: two numeric scalars of the same width, or two vectors
// whose numeric elements have the same width.
func Reinterpretable(stored, want ColumnType) bool {
	if stored.Kind() != want.Kind() {
		return false
	}
	switch stored.Kind() {
	case KindScalar:
		return stored.Width() > 0 && stored.Width() == want.Width()
	case KindVector:
		return stored.Elem().Width() > 0 && stored.Elem().Width() == want.Elem().Width()
	}
	return false
}

// VectorOf returns the builtin vector tag whose element is t
func VectorOf(t ColumnType) ColumnType {
	for vt, info := range builtinTypes {
		if info.kind == KindVector && info.elem == t {
			return vt
		}
	}
	return TypeInvalid
}

// NewHandle allocates storage for a column of type t
func NewHandle(t ColumnType) (Handle, error) {
	info, ok := lookupInfo(t)
	if !ok {
		return nil, fmt.Errorf("unsupported column type tag %d", int(t))
	}
	return info.newHandle(t), nil
}

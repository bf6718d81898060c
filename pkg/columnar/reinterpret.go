package columnar

import (
	"reflect"
	"unsafe"
)

// ScalarAs reads the bits of a numeric scalar handle as a T of the same
// width, e.g. an int32 column as uint32 or float32.
func ScalarAs[T any](h Handle) (T, bool) {
	var zero T
	if h.Destroyed() || !Reinterpretable(h.Type(), TagOf[T]()) {
		return zero, false
	}
	return *(*T)(reflect.ValueOf(h.Addr()).UnsafePointer()), true
}

// VectorAs views the elements of a numeric vector handle as []E, where E
// has the width of the stored element type. The returned slice shares the
// handle's storage.
func VectorAs[E any](h Handle) ([]E, bool) {
	if h.Destroyed() || !Reinterpretable(h.Type(), TagOf[[]E]()) {
		return nil, false
	}
	owned := reflect.ValueOf(h.Addr()).Elem()
	if owned.IsNil() {
		return nil, true
	}
	src := owned.Elem()
	if src.IsNil() {
		return nil, true
	}
	return unsafe.Slice((*E)(src.UnsafePointer()), src.Len()), true
}

package columnar

// Handle is a type-erased storage cell. Only the constructors in this package
// name concrete types; everything else moves handles around generically and
// recovers typed access with ScalarOf / IndirectOf after comparing tags.
type Handle interface {
	// Type returns the tag recorded when the handle was created
	Type() ColumnType
	// Kind returns the storage layout
	Kind() Kind
	// Addr returns *T for scalar handles and **T for indirect handles.
	// Datasets bind to this address.
	Addr() any
	// Interface returns a copy of the current value, dereferencing the
	// owned pointer of indirect handles
	Interface() any
	// Destroy releases the storage. Calls after the first are no-ops.
	Destroy()
	// Destroyed reports whether Destroy has run
	Destroyed() bool
}

// Scalar stores a single value inline
type Scalar[T any] struct {
	tag ColumnType
	ptr *T
}

// NewScalar creates a scalar handle for T
func NewScalar[T any]() *Scalar[T] {
	return newScalar[T](TagOf[T]())
}

func newScalar[T any](tag ColumnType) *Scalar[T] {
	return &Scalar[T]{tag: tag, ptr: new(T)}
}

func (s *Scalar[T]) Type() ColumnType { return s.tag }
func (s *Scalar[T]) Kind() Kind       { return KindScalar }
func (s *Scalar[T]) Addr() any        { return s.ptr }
func (s *Scalar[T]) Destroyed() bool  { return s.ptr == nil }
func (s *Scalar[T]) Interface() any   { return s.Value() }

// Ptr returns the storage address, nil once destroyed
func (s *Scalar[T]) Ptr() *T { return s.ptr }

// Value returns the stored value, or the zero value once destroyed
func (s *Scalar[T]) Value() T {
	if s.ptr == nil {
		var zero T
		return zero
	}
	return *s.ptr
}

// Set overwrites the stored value
func (s *Scalar[T]) Set(v T) {
	if s.ptr == nil {
		return
	}
	*s.ptr = v
}

func (s *Scalar[T]) Destroy() {
	if s.ptr == nil {
		return
	}
	var zero T
	*s.ptr = zero
	s.ptr = nil
}

// Indirect stores an owned pointer to a heap value, typically a slice or a
// map. The slot is either nil or the single owner of the pointed-to value;
// datasets may swap the pointer when they reallocate.
type Indirect[T any] struct {
	tag  ColumnType
	kind Kind
	slot **T
}

// NewVector creates an indirect handle holding a []E
func NewVector[E any]() *Indirect[[]E] {
	return newIndirect[[]E](TagOf[[]E](), KindVector)
}

// NewMap creates an indirect handle holding a map[K]V
func NewMap[K comparable, V any]() *Indirect[map[K]V] {
	return newIndirect[map[K]V](TagOf[map[K]V](), KindMap)
}

func newIndirect[T any](tag ColumnType, kind Kind) *Indirect[T] {
	return &Indirect[T]{tag: tag, kind: kind, slot: new(*T)}
}

func (h *Indirect[T]) Type() ColumnType { return h.tag }
func (h *Indirect[T]) Kind() Kind       { return h.kind }
func (h *Indirect[T]) Addr() any        { return h.slot }
func (h *Indirect[T]) Destroyed() bool  { return h.slot == nil }
func (h *Indirect[T]) Interface() any   { return h.Value() }

// Get returns the owned pointer, which may be nil
func (h *Indirect[T]) Get() *T {
	if h.slot == nil {
		return nil
	}
	return *h.slot
}

// Value dereferences the owned pointer, returning the zero value when empty
func (h *Indirect[T]) Value() T {
	if p := h.Get(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Replace takes ownership of p, releasing the previously owned value first.
// Replacing with the pointer already held is a no-op.
func (h *Indirect[T]) Replace(p *T) {
	if h.slot == nil {
		return
	}
	if old := *h.slot; old != nil && old != p {
		var zero T
		*old = zero
	}
	*h.slot = p
}

func (h *Indirect[T]) Destroy() {
	if h.slot == nil {
		return
	}
	if old := *h.slot; old != nil {
		var zero T
		*old = zero
		*h.slot = nil
	}
	h.slot = nil
}

// ScalarOf recovers typed access to a scalar handle
func ScalarOf[T any](h Handle) (*Scalar[T], bool) {
	s, ok := h.(*Scalar[T])
	return s, ok
}

// IndirectOf recovers typed access to an indirect handle
func IndirectOf[T any](h Handle) (*Indirect[T], bool) {
	s, ok := h.(*Indirect[T])
	return s, ok
}

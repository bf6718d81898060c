package dataset

import (
	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// series is one in-memory branch: the full per-entry column plus the
// storage it is bound to, if any.
type series interface {
	columnType() columnar.ColumnType
	bind(h columnar.Handle) bool
	bound() bool
	load(entry int)
	len() int
}

type scalarSeries[T any] struct {
	tag    columnar.ColumnType
	values []T
	ptr    *T
}

func (s *scalarSeries[T]) columnType() columnar.ColumnType { return s.tag }
func (s *scalarSeries[T]) bound() bool                     { return s.ptr != nil }
func (s *scalarSeries[T]) len() int                        { return len(s.values) }

func (s *scalarSeries[T]) bind(h columnar.Handle) bool {
	ptr, ok := h.Addr().(*T)
	if ok {
		s.ptr = ptr
	}
	return ok
}

func (s *scalarSeries[T]) load(entry int) {
	*s.ptr = s.values[entry]
}

type vectorSeries[E any] struct {
	tag    columnar.ColumnType
	values [][]E
	slot   **[]E
}

func (s *vectorSeries[E]) columnType() columnar.ColumnType { return s.tag }
func (s *vectorSeries[E]) bound() bool                     { return s.slot != nil }
func (s *vectorSeries[E]) len() int                        { return len(s.values) }

func (s *vectorSeries[E]) bind(h columnar.Handle) bool {
	slot, ok := h.Addr().(**[]E)
	if ok {
		s.slot = slot
	}
	return ok
}

func (s *vectorSeries[E]) load(entry int) {
	if *s.slot == nil {
		*s.slot = new([]E)
	}
	**s.slot = append((**s.slot)[:0], s.values[entry]...)
}

type mapSeries[K comparable, V any] struct {
	tag    columnar.ColumnType
	values []map[K]V
	slot   **map[K]V
}

func (s *mapSeries[K, V]) columnType() columnar.ColumnType { return s.tag }
func (s *mapSeries[K, V]) bound() bool                     { return s.slot != nil }
func (s *mapSeries[K, V]) len() int                        { return len(s.values) }

func (s *mapSeries[K, V]) bind(h columnar.Handle) bool {
	slot, ok := h.Addr().(**map[K]V)
	if ok {
		s.slot = slot
	}
	return ok
}

func (s *mapSeries[K, V]) load(entry int) {
	if *s.slot == nil {
		m := make(map[K]V, len(s.values[entry]))
		*s.slot = &m
	}
	m := **s.slot
	clear(m)
	for k, v := range s.values[entry] {
		m[k] = v
	}
}

// Memory is a dataset held entirely in memory. Columns are added with
// AddScalar, AddVector and AddMap; all columns must have the same length.
type Memory struct {
	name    string
	order   []string
	columns map[string]series
	entries int
}

// NewMemory creates an empty in-memory dataset
func NewMemory(name string) *Memory {
	return &Memory{
		name:    name,
		columns: make(map[string]series),
		entries: -1,
	}
}

func (m *Memory) add(name string, s series) error {
	if _, exists := m.columns[name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "branch %q already exists in %s", name, m.name).
			WithDetail("branch", name)
	}
	if !s.columnType().Valid() {
		return errors.Newf(errors.ErrorTypeCapability, "branch %q has no registered column type", name).
			WithDetail("branch", name)
	}
	if m.entries >= 0 && s.len() != m.entries {
		return errors.Newf(errors.ErrorTypeData, "branch %q has %d entries, dataset %s has %d",
			name, s.len(), m.name, m.entries).
			WithDetail("branch", name)
	}
	m.entries = s.len()
	m.columns[name] = s
	m.order = append(m.order, name)
	return nil
}

// AddScalar adds a scalar branch
func AddScalar[T any](m *Memory, name string, values []T) error {
	return m.add(name, &scalarSeries[T]{tag: columnar.TagOf[T](), values: values})
}

// AddVector adds a vector branch
func AddVector[E any](m *Memory, name string, values [][]E) error {
	return m.add(name, &vectorSeries[E]{tag: columnar.TagOf[[]E](), values: values})
}

// AddMap adds a map branch
func AddMap[K comparable, V any](m *Memory, name string, values []map[K]V) error {
	return m.add(name, &mapSeries[K, V]{tag: columnar.TagOf[map[K]V](), values: values})
}

// Name returns the dataset name
func (m *Memory) Name() string { return m.name }

// Branches lists the branches in insertion order
func (m *Memory) Branches() []Branch {
	branches := make([]Branch, 0, len(m.order))
	for _, name := range m.order {
		branches = append(branches, Branch{Name: name, Type: m.columns[name].columnType()})
	}
	return branches
}

// Bind attaches storage to a branch
func (m *Memory) Bind(name string, h columnar.Handle) error {
	s, ok := m.columns[name]
	if !ok {
		return errUnknownBranch(m.name, name)
	}
	if h.Type() != s.columnType() || !s.bind(h) {
		return errBindType(name, s.columnType(), h.Type())
	}
	return nil
}

// LoadBranch refreshes one bound branch
func (m *Memory) LoadBranch(name string, entry int) error {
	s, ok := m.columns[name]
	if !ok {
		return errUnknownBranch(m.name, name)
	}
	if !s.bound() {
		return errNotBound(m.name, name)
	}
	if entry < 0 || entry >= m.NumEntries() {
		return errEntryRange(m.name, entry, m.NumEntries())
	}
	s.load(entry)
	return nil
}

// Load refreshes every bound branch
func (m *Memory) Load(entry int) error {
	if entry < 0 || entry >= m.NumEntries() {
		return errEntryRange(m.name, entry, m.NumEntries())
	}
	for _, name := range m.order {
		if s := m.columns[name]; s.bound() {
			s.load(entry)
		}
	}
	return nil
}

// NumEntries returns the number of entries
func (m *Memory) NumEntries() int {
	if m.entries < 0 {
		return 0
	}
	return m.entries
}

// Close is a no-op for in-memory datasets
func (m *Memory) Close() error { return nil }

package dataset

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// valueArray is satisfied by every primitive arrow array
type valueArray[T any] interface {
	arrow.Array
	Value(i int) T
}

// loader checks that row of col fits the bound storage and returns the
// write, so that a failing branch leaves every other branch untouched
type loader func(col arrow.Array, row int) (func(), error)

type binder func(h columnar.Handle) (loader, bool)

var binders = map[columnar.ColumnType]binder{
	columnar.TypeBool:    bindScalar[bool],
	columnar.TypeInt8:    bindScalar[int8],
	columnar.TypeUInt8:   bindScalar[uint8],
	columnar.TypeInt16:   bindScalar[int16],
	columnar.TypeUInt16:  bindScalar[uint16],
	columnar.TypeInt32:   bindScalar[int32],
	columnar.TypeUInt32:  bindScalar[uint32],
	columnar.TypeInt64:   bindScalar[int64],
	columnar.TypeUInt64:  bindScalar[uint64],
	columnar.TypeFloat32: bindScalar[float32],
	columnar.TypeFloat64: bindScalar[float64],
	columnar.TypeString:  bindScalar[string],

	columnar.TypeVecBool:    bindVector[bool],
	columnar.TypeVecInt8:    bindVector[int8],
	columnar.TypeVecUInt8:   bindVector[uint8],
	columnar.TypeVecInt16:   bindVector[int16],
	columnar.TypeVecUInt16:  bindVector[uint16],
	columnar.TypeVecInt32:   bindVector[int32],
	columnar.TypeVecUInt32:  bindVector[uint32],
	columnar.TypeVecInt64:   bindVector[int64],
	columnar.TypeVecUInt64:  bindVector[uint64],
	columnar.TypeVecFloat32: bindVector[float32],
	columnar.TypeVecFloat64: bindVector[float64],
	columnar.TypeVecString:  bindVector[string],

	columnar.TypeMapStringInt32:   bindMap[string, int32],
	columnar.TypeMapStringInt64:   bindMap[string, int64],
	columnar.TypeMapStringFloat32: bindMap[string, float32],
	columnar.TypeMapStringFloat64: bindMap[string, float64],
	columnar.TypeMapStringString:  bindMap[string, string],
	columnar.TypeMapInt32Float64:  bindMap[int32, float64],
}

func errArrowLayout(col arrow.Array) error {
	return errors.Newf(errors.ErrorTypeCapability, "unexpected arrow array layout %s", col.DataType())
}

func bindScalar[T any](h columnar.Handle) (loader, bool) {
	ptr, ok := h.Addr().(*T)
	if !ok {
		return nil, false
	}
	return func(col arrow.Array, row int) (func(), error) {
		arr, ok := col.(valueArray[T])
		if !ok {
			return nil, errArrowLayout(col)
		}
		return func() {
			if arr.IsNull(row) {
				var zero T
				*ptr = zero
				return
			}
			*ptr = arr.Value(row)
		}, nil
	}, true
}

func bindVector[E any](h columnar.Handle) (loader, bool) {
	slot, ok := h.Addr().(**[]E)
	if !ok {
		return nil, false
	}
	return func(col arrow.Array, row int) (func(), error) {
		list, ok := col.(*array.List)
		if !ok {
			return nil, errArrowLayout(col)
		}
		values, ok := list.ListValues().(valueArray[E])
		if !ok {
			return nil, errArrowLayout(list.ListValues())
		}
		return func() {
			if *slot == nil {
				*slot = new([]E)
			}
			out := (**slot)[:0]
			if !list.IsNull(row) {
				start, end := list.ValueOffsets(row)
				for i := start; i < end; i++ {
					out = append(out, values.Value(int(i)))
				}
			}
			**slot = out
		}, nil
	}, true
}

func bindMap[K comparable, V any](h columnar.Handle) (loader, bool) {
	slot, ok := h.Addr().(**map[K]V)
	if !ok {
		return nil, false
	}
	return func(col arrow.Array, row int) (func(), error) {
		m, ok := col.(*array.Map)
		if !ok {
			return nil, errArrowLayout(col)
		}
		keys, ok := m.Keys().(valueArray[K])
		if !ok {
			return nil, errArrowLayout(m.Keys())
		}
		items, ok := m.Items().(valueArray[V])
		if !ok {
			return nil, errArrowLayout(m.Items())
		}
		return func() {
			if *slot == nil {
				out := make(map[K]V)
				*slot = &out
			}
			out := **slot
			clear(out)
			if !m.IsNull(row) {
				start, end := m.ValueOffsets(row)
				for i := start; i < end; i++ {
					out[keys.Value(int(i))] = items.Value(int(i))
				}
			}
		}, nil
	}, true
}

// columnTypeOf maps an arrow data type to its column tag
func columnTypeOf(dt arrow.DataType) columnar.ColumnType {
	switch dt.ID() {
	case arrow.BOOL:
		return columnar.TypeBool
	case arrow.INT8:
		return columnar.TypeInt8
	case arrow.UINT8:
		return columnar.TypeUInt8
	case arrow.INT16:
		return columnar.TypeInt16
	case arrow.UINT16:
		return columnar.TypeUInt16
	case arrow.INT32:
		return columnar.TypeInt32
	case arrow.UINT32:
		return columnar.TypeUInt32
	case arrow.INT64:
		return columnar.TypeInt64
	case arrow.UINT64:
		return columnar.TypeUInt64
	case arrow.FLOAT32:
		return columnar.TypeFloat32
	case arrow.FLOAT64:
		return columnar.TypeFloat64
	case arrow.STRING:
		return columnar.TypeString
	case arrow.LIST:
		elem := columnTypeOf(dt.(*arrow.ListType).Elem())
		if elem.Kind() != columnar.KindScalar {
			return columnar.TypeInvalid
		}
		return columnar.VectorOf(elem)
	case arrow.MAP:
		mt := dt.(*arrow.MapType)
		key, item := columnTypeOf(mt.KeyType()), columnTypeOf(mt.ItemType())
		switch {
		case key == columnar.TypeString && item == columnar.TypeInt32:
			return columnar.TypeMapStringInt32
		case key == columnar.TypeString && item == columnar.TypeInt64:
			return columnar.TypeMapStringInt64
		case key == columnar.TypeString && item == columnar.TypeFloat32:
			return columnar.TypeMapStringFloat32
		case key == columnar.TypeString && item == columnar.TypeFloat64:
			return columnar.TypeMapStringFloat64
		case key == columnar.TypeString && item == columnar.TypeString:
			return columnar.TypeMapStringString
		case key == columnar.TypeInt32 && item == columnar.TypeFloat64:
			return columnar.TypeMapInt32Float64
		}
	}
	return columnar.TypeInvalid
}

type arrowBranch struct {
	index int
	tag   columnar.ColumnType
	load  loader
}

// Arrow serves events from a sequence of arrow record batches. Entry i lives
// in the batch whose row offset range contains it.
type Arrow struct {
	name     string
	schema   *arrow.Schema
	batches  []arrow.Record
	offsets  []int
	entries  int
	order    []string
	branches map[string]*arrowBranch
}

func newArrow(name string, schema *arrow.Schema, batches []arrow.Record) *Arrow {
	a := &Arrow{
		name:     name,
		schema:   schema,
		batches:  batches,
		offsets:  make([]int, 0, len(batches)),
		branches: make(map[string]*arrowBranch),
	}
	for _, rec := range batches {
		a.offsets = append(a.offsets, a.entries)
		a.entries += int(rec.NumRows())
	}
	for i, field := range schema.Fields() {
		if _, dup := a.branches[field.Name]; dup {
			continue
		}
		a.order = append(a.order, field.Name)
		a.branches[field.Name] = &arrowBranch{index: i, tag: columnTypeOf(field.Type)}
	}
	return a
}

// ReadArrow reads an Arrow IPC file. All record batches are kept in memory.
func ReadArrow(r io.Reader, name string) (*Arrow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Arrow data")
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow reader")
	}
	defer fr.Close()

	batches := make([]arrow.Record, 0, fr.NumRecords())
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.RecordAt(i)
		if err != nil {
			releaseAll(batches)
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record batch").
				WithDetail("batch", i)
		}
		batches = append(batches, rec)
	}
	return newArrow(name, fr.Schema(), batches), nil
}

// ReadParquet reads a Parquet file through its Arrow representation
func ReadParquet(r io.Reader, name string) (*Arrow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Parquet data")
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Parquet reader")
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow reader")
	}

	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Parquet table")
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()

	var batches []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	return newArrow(name, tbl.Schema(), batches), nil
}

func releaseAll(batches []arrow.Record) {
	for _, rec := range batches {
		rec.Release()
	}
}

// Name returns the dataset name
func (a *Arrow) Name() string { return a.name }

// Schema returns the arrow schema of the file
func (a *Arrow) Schema() *arrow.Schema { return a.schema }

// Branches lists every top-level field in schema order
func (a *Arrow) Branches() []Branch {
	branches := make([]Branch, 0, len(a.order))
	for _, name := range a.order {
		branches = append(branches, Branch{Name: name, Type: a.branches[name].tag})
	}
	return branches
}

// Bind attaches storage to a branch
func (a *Arrow) Bind(name string, h columnar.Handle) error {
	b, ok := a.branches[name]
	if !ok {
		return errUnknownBranch(a.name, name)
	}
	bind, ok := binders[b.tag]
	if !ok || h.Type() != b.tag {
		return errBindType(name, b.tag, h.Type())
	}
	load, ok := bind(h)
	if !ok {
		return errBindType(name, b.tag, h.Type())
	}
	b.load = load
	return nil
}

// locate returns the batch holding entry and the row within it
func (a *Arrow) locate(entry int) (arrow.Record, int, error) {
	if entry < 0 || entry >= a.entries {
		return nil, 0, errEntryRange(a.name, entry, a.entries)
	}
	i := sort.Search(len(a.offsets), func(i int) bool { return a.offsets[i] > entry }) - 1
	return a.batches[i], entry - a.offsets[i], nil
}

// LoadBranch refreshes one bound branch
func (a *Arrow) LoadBranch(name string, entry int) error {
	b, ok := a.branches[name]
	if !ok {
		return errUnknownBranch(a.name, name)
	}
	if b.load == nil {
		return errNotBound(a.name, name)
	}
	rec, row, err := a.locate(entry)
	if err != nil {
		return err
	}
	write, err := b.load(rec.Column(b.index), row)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to load branch").WithDetail("branch", name)
	}
	write()
	return nil
}

// Load refreshes every bound branch. If any branch cannot be read, no
// branch is written.
func (a *Arrow) Load(entry int) error {
	rec, row, err := a.locate(entry)
	if err != nil {
		return err
	}
	writes := make([]func(), 0, len(a.order))
	for _, name := range a.order {
		b := a.branches[name]
		if b.load == nil {
			continue
		}
		write, err := b.load(rec.Column(b.index), row)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to load branch").WithDetail("branch", name)
		}
		writes = append(writes, write)
	}
	for _, write := range writes {
		write()
	}
	return nil
}

// NumEntries returns the total row count across batches
func (a *Arrow) NumEntries() int { return a.entries }

// Close releases the record batches
func (a *Arrow) Close() error {
	releaseAll(a.batches)
	a.batches = nil
	a.offsets = nil
	a.entries = 0
	return nil
}

package dataset

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

var eventSchema = arrow.NewSchema([]arrow.Field{
	{Name: "run", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "met", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
	{Name: "jetPt", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "weights", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Float64)},
	{Name: "blob", Type: arrow.BinaryTypes.Binary},
}, nil)

// buildBatch appends one row per run value
func buildBatch(t *testing.T, runs []uint32, met []float32, jets [][]float64) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(memory.NewGoAllocator(), eventSchema)
	defer b.Release()

	b.Field(0).(*array.Uint32Builder).AppendValues(runs, nil)

	metB := b.Field(1).(*array.Float32Builder)
	for _, v := range met {
		if v < 0 {
			metB.AppendNull()
			continue
		}
		metB.Append(v)
	}

	lb := b.Field(2).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Float64Builder)
	for _, row := range jets {
		lb.Append(true)
		vb.AppendValues(row, nil)
	}

	mb := b.Field(3).(*array.MapBuilder)
	kb := mb.KeyBuilder().(*array.StringBuilder)
	ib := mb.ItemBuilder().(*array.Float64Builder)
	for _, run := range runs {
		mb.Append(true)
		kb.Append("nominal")
		ib.Append(float64(run) / 10)
	}

	for range runs {
		b.Field(4).(*array.BinaryBuilder).Append([]byte{0x1})
	}
	return b.NewRecord()
}

func writeArrowFile(t *testing.T, batches ...arrow.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(eventSchema))
	require.NoError(t, err)
	for _, rec := range batches {
		require.NoError(t, w.Write(rec))
		rec.Release()
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func twoBatches(t *testing.T) []arrow.Record {
	return []arrow.Record{
		buildBatch(t, []uint32{1, 1}, []float32{10, -1}, [][]float64{{40, 30}, {}}),
		buildBatch(t, []uint32{2}, []float32{30}, [][]float64{{55, 45, 35}}),
	}
}

func TestColumnTypeOf(t *testing.T) {
	tests := []struct {
		dt   arrow.DataType
		want columnar.ColumnType
	}{
		{arrow.FixedWidthTypes.Boolean, columnar.TypeBool},
		{arrow.PrimitiveTypes.Int32, columnar.TypeInt32},
		{arrow.PrimitiveTypes.Uint64, columnar.TypeUInt64},
		{arrow.BinaryTypes.String, columnar.TypeString},
		{arrow.ListOf(arrow.PrimitiveTypes.Float32), columnar.TypeVecFloat32},
		{arrow.ListOf(arrow.PrimitiveTypes.Uint32), columnar.TypeVecUInt32},
		{arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Float32)), columnar.TypeInvalid},
		{arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64), columnar.TypeMapStringInt64},
		{arrow.MapOf(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Float64), columnar.TypeMapInt32Float64},
		{arrow.MapOf(arrow.PrimitiveTypes.Int64, arrow.PrimitiveTypes.Float64), columnar.TypeInvalid},
		{arrow.BinaryTypes.Binary, columnar.TypeInvalid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnTypeOf(tt.dt), tt.dt.String())
	}
}

func TestReadArrow(t *testing.T) {
	data := writeArrowFile(t, twoBatches(t)...)

	a, err := ReadArrow(bytes.NewReader(data), "events.arrow")
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "events.arrow", a.Name())
	assert.Equal(t, 3, a.NumEntries())
	assert.Equal(t, []Branch{
		{Name: "run", Type: columnar.TypeUInt32},
		{Name: "met", Type: columnar.TypeFloat32},
		{Name: "jetPt", Type: columnar.TypeVecFloat64},
		{Name: "weights", Type: columnar.TypeMapStringFloat64},
		{Name: "blob", Type: columnar.TypeInvalid},
	}, a.Branches())

	run := columnar.NewScalar[uint32]()
	met := columnar.NewScalar[float32]()
	jets := columnar.NewVector[float64]()
	weights := columnar.NewMap[string, float64]()
	require.NoError(t, a.Bind("run", run))
	require.NoError(t, a.Bind("met", met))
	require.NoError(t, a.Bind("jetPt", jets))
	require.NoError(t, a.Bind("weights", weights))

	require.NoError(t, a.Load(0))
	assert.Equal(t, uint32(1), run.Value())
	assert.Equal(t, float32(10), met.Value())
	assert.Equal(t, []float64{40, 30}, jets.Value())
	assert.InDelta(t, 0.1, weights.Value()["nominal"], 1e-12)

	// null scalar reads as zero
	require.NoError(t, a.Load(1))
	assert.Equal(t, float32(0), met.Value())
	assert.Empty(t, jets.Value())

	// entry 2 lives in the second batch
	require.NoError(t, a.Load(2))
	assert.Equal(t, uint32(2), run.Value())
	assert.Equal(t, []float64{55, 45, 35}, jets.Value())

	require.NoError(t, a.LoadBranch("run", 0))
	assert.Equal(t, uint32(1), run.Value())
	assert.Equal(t, []float64{55, 45, 35}, jets.Value())

	assert.Error(t, a.Load(3))
}

func TestArrowBindErrors(t *testing.T) {
	a, err := ReadArrow(bytes.NewReader(writeArrowFile(t, twoBatches(t)...)), "events.arrow")
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, errors.IsType(a.Bind("run", columnar.NewScalar[int32]()), errors.ErrorTypeCapability))
	assert.True(t, errors.IsType(a.Bind("blob", columnar.NewVector[uint8]()), errors.ErrorTypeCapability))
	assert.True(t, errors.IsNotFound(a.Bind("missing", columnar.NewScalar[int32]())))
	assert.True(t, errors.IsType(a.LoadBranch("met", 0), errors.ErrorTypeData))
}

func TestArrowLoadIsAllOrNothing(t *testing.T) {
	// the second batch stores met as int64, which does not match the schema
	badSchema := arrow.NewSchema([]arrow.Field{
		{Name: "run", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "met", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	rb := array.NewRecordBuilder(memory.NewGoAllocator(), badSchema)
	defer rb.Release()
	rb.Field(0).(*array.Uint32Builder).Append(2)
	rb.Field(1).(*array.Int64Builder).Append(30)

	good := buildBatch(t, []uint32{1, 1}, []float32{10, -1}, [][]float64{{40, 30}, {}})
	a := newArrow("mixed", eventSchema, []arrow.Record{good, rb.NewRecord()})
	defer a.Close()

	run := columnar.NewScalar[uint32]()
	met := columnar.NewScalar[float32]()
	require.NoError(t, a.Bind("run", run))
	require.NoError(t, a.Bind("met", met))

	require.NoError(t, a.Load(0))
	assert.Equal(t, uint32(1), run.Value())
	assert.Equal(t, float32(10), met.Value())

	err := a.Load(2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Equal(t, uint32(1), run.Value())
	assert.Equal(t, float32(10), met.Value())

	assert.True(t, errors.IsType(a.LoadBranch("met", 2), errors.ErrorTypeData))
	require.NoError(t, a.LoadBranch("run", 2))
	assert.Equal(t, uint32(2), run.Value())
}

func TestReadArrowRejectsGarbage(t *testing.T) {
	_, err := ReadArrow(bytes.NewReader([]byte("not arrow")), "bad.arrow")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestReadParquet(t *testing.T) {
	batches := twoBatches(t)
	tbl := array.NewTableFromRecords(eventSchema, batches)
	for _, rec := range batches {
		rec.Release()
	}
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))

	a, err := ReadParquet(bytes.NewReader(buf.Bytes()), "events.parquet")
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.NumEntries())

	jets := columnar.NewVector[float64]()
	run := columnar.NewScalar[uint32]()
	require.NoError(t, a.Bind("jetPt", jets))
	require.NoError(t, a.Bind("run", run))

	require.NoError(t, a.Load(2))
	assert.Equal(t, uint32(2), run.Value())
	assert.Equal(t, []float64{55, 45, 35}, jets.Value())
}

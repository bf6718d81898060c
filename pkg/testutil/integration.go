package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides a temp directory and a context for tests
// that read dataset files from disk
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "ntuple-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile writes content to name inside the temp directory,
// compressing it according to the name's suffix
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	WriteFile(s.T(), path, content)
	return path
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// EventSchema is the Arrow schema of the run, met and jetPt columns of
// Events
var EventSchema = arrow.NewSchema([]arrow.Field{
	{Name: "run", Type: arrow.PrimitiveTypes.Int32},
	{Name: "met", Type: arrow.PrimitiveTypes.Float64},
	{Name: "jetPt", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
}, nil)

// EventRecord builds the run, met and jetPt columns of Events as one
// record batch. The caller releases it.
func EventRecord() arrow.Record {
	b := array.NewRecordBuilder(memory.NewGoAllocator(), EventSchema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues(Events.Run, nil)
	b.Field(1).(*array.Float64Builder).AppendValues(Events.Met, nil)
	lb := b.Field(2).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Float64Builder)
	for _, row := range Events.JetPt {
		lb.Append(true)
		vb.AppendValues(row, nil)
	}
	return b.NewRecord()
}

// ArrowEvents encodes EventRecord as an Arrow IPC file
func ArrowEvents(t *testing.T) []byte {
	t.Helper()
	rec := EventRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(EventSchema))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// ParquetEvents encodes EventRecord as a Parquet file
func ParquetEvents(t *testing.T) []byte {
	t.Helper()
	rec := EventRecord()
	tbl := array.NewTableFromRecords(EventSchema, []arrow.Record{rec})
	rec.Release()
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
	return buf.Bytes()
}

// EventAvroSchema is the Avro schema of the run, met and jetPt columns of
// Events
const EventAvroSchema = `{
  "type": "record",
  "name": "Event",
  "fields": [
    {"name": "run", "type": "int"},
    {"name": "met", "type": "double"},
    {"name": "jetPt", "type": {"type": "array", "items": "double"}}
  ]
}`

// AvroEvents encodes the run, met and jetPt columns of Events as an Avro
// object container file
func AvroEvents(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: &buf, Schema: EventAvroSchema})
	require.NoError(t, err)

	records := make([]interface{}, 0, len(Events.Run))
	for i := range Events.Run {
		jets := make([]interface{}, 0, len(Events.JetPt[i]))
		for _, pt := range Events.JetPt[i] {
			jets = append(jets, pt)
		}
		records = append(records, map[string]interface{}{
			"run":   Events.Run[i],
			"met":   Events.Met[i],
			"jetPt": jets,
		})
	}
	require.NoError(t, w.Append(records))
	return buf.Bytes()
}

package ntuple

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/ntuple/pkg/config"
	"github.com/ajitpratap0/ntuple/pkg/dataset"
	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/testutil"
)

func newTestReader(t *testing.T, opts ...Option) (*Reader, *observer.ObservedLogs) {
	t.Helper()
	log, logs := testutil.ObservedLogger(zap.DebugLevel)
	r, err := NewReader(testutil.EventDataset(t), append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, logs
}

func TestRunScenario(t *testing.T) {
	m := dataset.NewMemory("runs")
	require.NoError(t, dataset.AddScalar(m, "run", []int32{1, 2, 3}))
	r, err := NewReader(m, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.GetEvtNum())
	assert.Equal(t, 3, r.GetNEntries())
	assert.Equal(t, "runs", r.FileName())

	require.True(t, r.NextEvent())
	run, err := Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(1), run)
	assert.True(t, r.IsFirstEvent())
	assert.Equal(t, 1, r.GetEvtNum())

	require.True(t, r.NextEvent())
	run, err = Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(2), run)
	assert.False(t, r.IsFirstEvent())

	require.True(t, r.NextEvent())
	assert.False(t, r.NextEvent())
	run, err = Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(3), run)
	assert.Equal(t, 3, r.GetEvtNum())
}

func TestBoundColumnsRoundTrip(t *testing.T) {
	r, _ := newTestReader(t)

	require.True(t, r.GoToEvent(1))
	met, err := Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 20.25, met)

	trigger, err := Var[string](r, "trigger")
	require.NoError(t, err)
	assert.Equal(t, "HLT_Ele", trigger)

	jets, err := Vec[float64](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float64{55}, jets)

	weights, err := Map[string, float64](r, "weights")
	require.NoError(t, err)
	assert.Equal(t, 0.5, weights["nominal"])
}

func TestGoToEventOutOfRange(t *testing.T) {
	r, _ := newTestReader(t)
	require.True(t, r.NextEvent())
	require.True(t, r.NextEvent())

	assert.False(t, r.GoToEvent(3))
	assert.False(t, r.GoToEvent(-1))
	assert.Equal(t, 2, r.GetEvtNum())
	assert.False(t, r.IsFirstEvent())
	run, err := Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(2), run)

	require.True(t, r.GoToEvent(0))
	assert.Equal(t, 1, r.GetEvtNum())
	run, err = Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(1), run)

	// iteration continues from the jump target
	require.True(t, r.NextEvent())
	assert.Equal(t, 2, r.GetEvtNum())
}

func TestNameResolution(t *testing.T) {
	r, _ := newTestReader(t)
	require.True(t, r.NextEvent())

	jets, err := Vec[float64](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float64{40.5, 30.25}, jets)

	r.SetPrefix("ak8")
	assert.Equal(t, "ak8", r.Prefix())
	jets, err = Vec[float64](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float64{400}, jets)

	// names without a prefixed column fall back to the bare name
	met, err := Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 10.5, met)

	r.SetPrefix("")
	jets, err = Vec[float64](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float64{40.5, 30.25}, jets)

	r.AddAlias("jetPt", "jets")
	jets, err = Vec[float64](r, "jets")
	require.NoError(t, err)
	assert.Equal(t, []float64{40.5, 30.25}, jets)

	// the alias is applied before the prefix
	r.SetPrefix("ak8")
	jets, err = Vec[float64](r, "jets")
	require.NoError(t, err)
	assert.Equal(t, []float64{400}, jets)
}

func TestVariableNotFound(t *testing.T) {
	r, _ := newTestReader(t)
	require.True(t, r.NextEvent())

	_, err := Var[int32](r, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), `Variable not found: "missing" with type "int32"`)

	_, err = Var[float32](r, "met")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `but is found with type "float64"`)

	// a vector requested as a scalar
	_, err = Var[float64](r, "jetPt")
	assert.True(t, errors.IsNotFound(err))
}

func TestSuppressedErrorsReturnZeroValue(t *testing.T) {
	r, logs := newTestReader(t, WithReThrow(false))
	assert.False(t, r.GetReThrow())
	require.True(t, r.NextEvent())

	v, err := Var[int32](r, "missing")
	assert.NoError(t, err)
	assert.Equal(t, int32(0), v)

	vec, err := Vec[float32](r, "missing")
	assert.NoError(t, err)
	assert.Nil(t, vec)

	m, err := Map[string, int32](r, "missing")
	assert.NoError(t, err)
	assert.Nil(t, m)

	assert.Equal(t, 3, logs.FilterMessage("lookup failed").Len())

	// lookup failures are only reported during the first event
	require.True(t, r.NextEvent())
	_, _ = Var[int32](r, "missing")
	assert.Equal(t, 3, logs.FilterMessage("lookup failed").Len())

	r.SetReThrow(true)
	_, err = Var[int32](r, "missing")
	assert.Error(t, err)
}

func TestLazyBind(t *testing.T) {
	r, logs := newTestReader(t, WithActiveBranches("run"))
	require.True(t, r.NextEvent())
	require.True(t, r.NextEvent())

	members := r.Members()
	require.NotEmpty(t, members)
	for _, m := range members {
		if m.Name == "met" {
			assert.Equal(t, "unbound", m.Origin)
			assert.Equal(t, "float64", m.Type)
		}
	}

	// a known but unbound branch is bound and loaded for the current event
	met, err := Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 20.25, met)
	assert.Equal(t, 1, logs.FilterMessage("bound branch on first access").Len())

	require.True(t, r.NextEvent())
	met, err = Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 30.75, met)
	assert.Equal(t, 1, logs.FilterMessage("bound branch on first access").Len())
}

func TestLazyBindWrongType(t *testing.T) {
	r, _ := newTestReader(t, WithActiveBranches("run"))
	require.True(t, r.NextEvent())

	_, err := Vec[float32](r, "jetPt")
	assert.True(t, errors.IsNotFound(err))

	// the branch stays bound with its native type
	jets, err := Vec[float64](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float64{40.5, 30.25}, jets)
}

func TestLazyBindBeforeFirstEvent(t *testing.T) {
	r, _ := newTestReader(t, WithActiveBranches("run"))
	met, err := Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 0.0, met)

	require.True(t, r.NextEvent())
	met, err = Var[float64](r, "met")
	require.NoError(t, err)
	assert.Equal(t, 10.5, met)
}

func TestActiveBranchMissingFromDataset(t *testing.T) {
	r, logs := newTestReader(t, WithActiveBranches("run", "nope"))
	assert.Equal(t, 1, logs.FilterMessage("active branch not found in dataset").Len())
	assert.False(t, r.HasVar("nope"))
}

func TestForceLoad(t *testing.T) {
	r, _ := newTestReader(t)
	require.True(t, r.NextEvent())

	_, err := Var[uint32](r, "run")
	assert.Error(t, err)

	// forcing reads the stored bits as a type of the same width
	run, err := VarForce[uint32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), run)
	bits, err := VarForce[float32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, math.Float32frombits(1), bits)
	exact, err := VarForce[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(1), exact)

	idx, err := VecForce[int32](r, "jetIdx")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1}, idx)
	etaBits, err := VecForce[uint32](r, "jetEta")
	require.NoError(t, err)
	assert.Equal(t, []uint32{math.Float32bits(1.5), math.Float32bits(-0.5)}, etaBits)

	// widths must match and strings are never reinterpreted
	_, err = VarForce[int64](r, "run")
	assert.True(t, errors.IsNotFound(err))
	_, err = VecForce[float32](r, "jetPt")
	assert.True(t, errors.IsNotFound(err))
	_, err = VarForce[int32](r, "trigger")
	assert.True(t, errors.IsNotFound(err))
}

func TestForceLoadKeepsConversions(t *testing.T) {
	r, _ := newTestReader(t)
	require.NoError(t, r.SetConvertFloatingPointVectors(DefaultVectorConversions()))
	require.True(t, r.NextEvent())

	pt, err := VecForce[float32](r, "jetPt")
	require.NoError(t, err)
	assert.Equal(t, []float32{40.5, 30.25}, pt)
}

func TestForceLoadBindsOnFirstAccess(t *testing.T) {
	r, _ := newTestReader(t, WithActiveBranches("run"))
	require.True(t, r.NextEvent())

	idx, err := VecForce[int32](r, "jetIdx")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1}, idx)
}

func TestCatalogueQueries(t *testing.T) {
	r, _ := newTestReader(t)

	assert.True(t, r.CheckBranch("jetPt"))
	assert.True(t, r.HasVar("weights"))
	assert.False(t, r.HasVar("missing"))

	typeName, ok := r.GetType("jetEta")
	require.True(t, ok)
	assert.Equal(t, "[]float32", typeName)
	_, ok = r.GetType("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{
		"ak8jetPt", "jetEta", "jetIdx", "jetPt", "met", "nMuons", "run", "trigger", "weights",
	}, r.GetTupleMembers())
}

func TestCatalogueQueriesResolveNames(t *testing.T) {
	r, _ := newTestReader(t)
	r.AddAlias("run", "runNumber")

	assert.True(t, r.HasVar("runNumber"))
	assert.True(t, r.CheckBranch("runNumber"))
	typeName, ok := r.GetType("runNumber")
	require.True(t, ok)
	assert.Equal(t, "int32", typeName)

	r.SetPrefix("ak8")
	typeName, ok = r.GetType("jetPt")
	require.True(t, ok)
	assert.Equal(t, "[]float64", typeName)
	assert.True(t, r.HasVar("met"))
	assert.False(t, r.HasVar("missing"))
}

func TestPrintTupleMembers(t *testing.T) {
	r, _ := newTestReader(t)
	require.NoError(t, RegisterDerivedVar(r, "nJets", int32(0)))

	var buf bytes.Buffer
	r.PrintTupleMembers(&buf)
	out := buf.String()
	assert.Contains(t, out, "jetPt")
	assert.Contains(t, out, "[]float64")
	assert.Contains(t, out, "derived")

	buf.Reset()
	require.NoError(t, r.RenderTupleMembers(&buf, "csv"))
	assert.Contains(t, buf.String(), "nJets,int32,derived")

	buf.Reset()
	require.NoError(t, r.RenderTupleMembers(&buf, "json"))
	assert.Contains(t, buf.String(), `{"name":"nJets","type":"int32","origin":"derived"}`)

	assert.True(t, errors.IsConfig(r.RenderTupleMembers(&buf, "xml")))
}

func TestRawPointers(t *testing.T) {
	r, _ := newTestReader(t, WithActiveBranches("run"))
	require.True(t, r.NextEvent())

	ptr, ok := r.Ptr("run").(*int32)
	require.True(t, ok)
	assert.Equal(t, int32(1), *ptr)

	slot, ok := r.VecPtr("jetPt").(**[]float64)
	require.True(t, ok)
	require.NotNil(t, *slot)
	assert.Equal(t, []float64{40.5, 30.25}, **slot)

	assert.Nil(t, r.Ptr("missing"))
	assert.Nil(t, r.Ptr("jetEta"))
}

func TestValue(t *testing.T) {
	r, _ := newTestReader(t, WithActiveBranches("run"))
	require.True(t, r.NextEvent())

	for name, want := range map[string]any{
		"run":     int32(1),
		"trigger": "HLT_Mu",
		"jetPt":   []float64{40.5, 30.25},
		"weights": map[string]float64{"nominal": 1},
	} {
		v, ok := r.Value(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v, name)
	}

	r.AddAlias("jetEta", "eta")
	v, ok := r.Value("eta")
	require.True(t, ok)
	assert.Equal(t, []float32{1.5, -0.5}, v)

	_, ok = r.Value("missing")
	assert.False(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	r, err := NewReader(testutil.EventDataset(t), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.True(t, r.NextEvent())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.False(t, r.NextEvent())
	_, err = Var[int32](r, "run")
	assert.Error(t, err)
	assert.Nil(t, r.Ptr("run"))
}

func TestNewReaderRequiresDataset(t *testing.T) {
	_, err := NewReader(nil)
	assert.True(t, errors.IsConfig(err))
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reader.ReThrow = false
	cfg.Reader.Prefix = "ak8"
	cfg.Reader.Aliases["jets"] = "jetPt"
	cfg.Reader.ActiveBranches = []string{"run"}
	cfg.Convert.Vectors.DoubleToFloat = true

	r, err := FromConfig(testutil.EventDataset(t), cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.GetReThrow())
	require.True(t, r.NextEvent())

	jets, err := Vec[float64](r, "jets")
	require.NoError(t, err)
	assert.Equal(t, []float64{400}, jets)

	r.SetPrefix("")
	converted, err := Vec[float32](r, "jets")
	require.NoError(t, err)
	assert.Equal(t, []float32{40.5, 30.25}, converted)
}

func TestFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Max = -1
	_, err := FromConfig(testutil.EventDataset(t), cfg)
	assert.True(t, errors.IsConfig(err))
}

func TestPlatformIntIsNotAColumnType(t *testing.T) {
	r, _ := newTestReader(t)
	require.True(t, r.NextEvent())

	_, err := Var[int](r, "run")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "unregistered type")

	run, err := Var[int32](r, "run")
	require.NoError(t, err)
	assert.Equal(t, int32(1), run)
}

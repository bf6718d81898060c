package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

func newEventsMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory("events")
	require.NoError(t, AddScalar(m, "run", []uint32{1, 1, 2}))
	require.NoError(t, AddScalar(m, "met", []float64{10.5, 20.25, 30}))
	require.NoError(t, AddVector(m, "jetPt", [][]float64{{40, 30}, {55}, nil}))
	require.NoError(t, AddMap(m, "weights", []map[string]float64{{"nominal": 1}, {"nominal": 0.9, "up": 1.1}, {}}))
	return m
}

func TestMemoryCatalogue(t *testing.T) {
	m := newEventsMemory(t)
	assert.Equal(t, "events", m.Name())
	assert.Equal(t, 3, m.NumEntries())
	assert.Equal(t, []Branch{
		{Name: "run", Type: columnar.TypeUInt32},
		{Name: "met", Type: columnar.TypeFloat64},
		{Name: "jetPt", Type: columnar.TypeVecFloat64},
		{Name: "weights", Type: columnar.TypeMapStringFloat64},
	}, m.Branches())
	assert.NoError(t, m.Close())
}

func TestMemoryAddValidation(t *testing.T) {
	m := newEventsMemory(t)

	err := AddScalar(m, "run", []uint32{1, 2, 3})
	assert.True(t, errors.IsConflict(err))

	err = AddScalar(m, "short", []int32{1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	type unregistered struct{}
	err = AddScalar(m, "custom", []unregistered{{}, {}, {}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestMemoryLoad(t *testing.T) {
	m := newEventsMemory(t)

	met := columnar.NewScalar[float64]()
	jets := columnar.NewVector[float64]()
	weights := columnar.NewMap[string, float64]()
	require.NoError(t, m.Bind("met", met))
	require.NoError(t, m.Bind("jetPt", jets))
	require.NoError(t, m.Bind("weights", weights))

	require.NoError(t, m.Load(0))
	assert.Equal(t, 10.5, met.Value())
	assert.Equal(t, []float64{40, 30}, jets.Value())
	owned := jets.Get()

	require.NoError(t, m.Load(1))
	assert.Equal(t, 20.25, met.Value())
	assert.Equal(t, []float64{55}, jets.Value())
	assert.Same(t, owned, jets.Get())
	assert.Equal(t, map[string]float64{"nominal": 0.9, "up": 1.1}, weights.Value())

	require.NoError(t, m.Load(2))
	assert.Empty(t, jets.Value())
	assert.Empty(t, weights.Value())

	// the run branch is not bound and keeps no storage
	err := m.LoadBranch("run", 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestMemoryLoadBranch(t *testing.T) {
	m := newEventsMemory(t)
	run := columnar.NewScalar[uint32]()
	met := columnar.NewScalar[float64]()
	require.NoError(t, m.Bind("run", run))
	require.NoError(t, m.Bind("met", met))

	require.NoError(t, m.LoadBranch("run", 2))
	assert.Equal(t, uint32(2), run.Value())
	assert.Equal(t, 0.0, met.Value())

	assert.True(t, errors.IsNotFound(m.LoadBranch("missing", 0)))
	assert.Error(t, m.LoadBranch("run", 3))
	assert.Error(t, m.Load(-1))
}

func TestMemoryBindRejectsWrongType(t *testing.T) {
	m := newEventsMemory(t)
	err := m.Bind("met", columnar.NewScalar[float32]())
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
	assert.True(t, errors.IsNotFound(m.Bind("missing", columnar.NewScalar[float32]())))
}

// Package testutil provides testing utilities for ntuple readers
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/ntuple/pkg/compression"
	"github.com/ajitpratap0/ntuple/pkg/dataset"
)

// TestLogger creates a test logger that writes to the test output
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger creates a logger whose entries at or above level can be
// inspected by the test
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout, cancelled
// when the test completes
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Events is the canonical three-event table shared by reader tests
var Events = struct {
	Run      []int32
	Met      []float64
	NMuons   []int32
	Trigger  []string
	JetPt    [][]float64
	Ak8JetPt [][]float64
	JetEta   [][]float32
	JetIdx   [][]uint32
	Weights  []map[string]float64
}{
	Run:      []int32{1, 2, 3},
	Met:      []float64{10.5, 20.25, 30.75},
	NMuons:   []int32{0, 2, 1},
	Trigger:  []string{"HLT_Mu", "HLT_Ele", "HLT_Mu"},
	JetPt:    [][]float64{{40.5, 30.25}, {55}, {}},
	Ak8JetPt: [][]float64{{400}, {550}, {600}},
	JetEta:   [][]float32{{1.5, -0.5}, {2.25}, {}},
	JetIdx:   [][]uint32{{0, 1}, {2}, {}},
	Weights:  []map[string]float64{{"nominal": 1}, {"nominal": 0.5}, {"nominal": 2}},
}

// EventDataset builds the canonical events as an in-memory dataset named
// "events"
func EventDataset(t *testing.T) *dataset.Memory {
	t.Helper()
	m := dataset.NewMemory("events")
	require.NoError(t, dataset.AddScalar(m, "run", Events.Run))
	require.NoError(t, dataset.AddScalar(m, "met", Events.Met))
	require.NoError(t, dataset.AddScalar(m, "nMuons", Events.NMuons))
	require.NoError(t, dataset.AddScalar(m, "trigger", Events.Trigger))
	require.NoError(t, dataset.AddVector(m, "jetPt", Events.JetPt))
	require.NoError(t, dataset.AddVector(m, "ak8jetPt", Events.Ak8JetPt))
	require.NoError(t, dataset.AddVector(m, "jetEta", Events.JetEta))
	require.NoError(t, dataset.AddVector(m, "jetIdx", Events.JetIdx))
	require.NoError(t, dataset.AddMap(m, "weights", Events.Weights))
	return m
}

// WriteFile writes data to path, compressed according to the path's
// compression suffix (.zst, .lz4, .gz, .sz, .s2)
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	alg, _ := compression.FromPath(path)
	c, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	require.NoError(t, err)
	out, err := c.Compress(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o600))
}

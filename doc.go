// Package ntuple provides typed, on-demand access to columnar event data.
//
// An event dataset is a table with one row per event and named columns of
// scalars, vectors and maps. Analysis code reads it one event at a time and
// asks for columns by name and Go type, without knowing up front which
// columns exist or how they are stored.
//
// # Architecture
//
// The module is organized in layers:
//
//   - pkg/columnar: type tags, typed storage handles and the column registry
//   - pkg/dataset: the backing dataset contract with in-memory, Arrow IPC,
//     Parquet and Avro implementations, opened transparently from compressed
//     files
//   - pkg/ntuple: the Reader with name resolution, typed lookups, lazy
//     binding, numeric conversions, derived columns and the event cursor
//   - internal/scan and cmd/ntuple: the event-dump loop and the command line
//     tool built on top of the reader
//
// Ambient concerns live in pkg/errors (structured errors), pkg/logger (zap),
// pkg/config (YAML configuration), pkg/metrics (Prometheus counters and
// process resources) and pkg/tracing (OpenTelemetry spans).
//
// # Quick Start
//
//	ds, err := dataset.Open("events.parquet.zst")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := ntuple.NewReader(ds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	r.RegisterFunc(func(r *ntuple.Reader) {
//	    jets, _ := ntuple.Vec[float64](r, "jetPt")
//	    ntuple.RegisterDerivedVar(r, "nJets", int32(len(jets)))
//	})
//
//	for r.NextEvent() {
//	    nJets, _ := ntuple.Var[int32](r, "nJets")
//	    fmt.Println(r.GetEvtNum(), nJets)
//	}
//
// From the command line:
//
//	ntuple members events.arrow
//	ntuple scan events.arrow --columns run,jetPt --max 10
package ntuple

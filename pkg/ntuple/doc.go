// Package ntuple provides typed, on-demand access to the columns of an
// event dataset.
//
// # Overview
//
// A Reader walks the events of a dataset.Dataset one at a time. Columns are
// fetched by name with the generic getters Var, Vec and Map; branches that
// were not bound at construction are bound on first access. Application
// code can publish derived columns from per-event functions, and consumers
// read them exactly like dataset branches.
//
// # Basic Usage
//
//	ds, err := dataset.Open("events.arrow.zst")
//	if err != nil {
//	    return err
//	}
//	r, err := ntuple.NewReader(ds)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for r.NextEvent() {
//	    run, err := ntuple.Var[uint32](r, "run")
//	    jets, err := ntuple.Vec[float64](r, "jetPt")
//	}
//
// Column types are sized: an integer branch is read as int32 or int64, never
// as int. Application types can be stored in derived columns after
// columnar.RegisterType.
//
// # Derived Columns
//
// Functions are registered before the first event and run on every advance,
// in registration order:
//
//	r.RegisterFunc(func(r *ntuple.Reader) {
//	    jets, _ := ntuple.Vec[float64](r, "jetPt")
//	    ntuple.RegisterDerivedVar(r, "nJets", int32(len(jets)))
//	})
//
// A derived name is created once, while the first event is processed, and
// overwritten on later events. Redefining a known name fails with a
// conflict error.
//
// # Name Resolution
//
// Every lookup first applies the alias table (AddAlias), then tries the
// prefix (SetPrefix) before the bare name.
//
// # Conversions
//
// SetConvertFloatingPointVectors and SetConvertFloatingPointScalars register
// functions that publish converted copies of matching branches under
// reserved names ("jetPt___f" for the float32 copy of a float64 vector).
// Once enabled, a request whose type does not match the stored type is
// served from the converted copy.
//
// # Error Policy
//
// Errors are logged through zap. With ReThrow enabled (the default) they are
// also returned; otherwise failed getters return the zero value and a nil
// error. Lookup failures are only logged while the first event is processed.
package ntuple

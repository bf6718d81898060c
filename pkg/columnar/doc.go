// Package columnar implements the type-erased column storage used by ntuple
// readers.
//
// # Overview
//
// Every column is a Handle: a storage cell created for one concrete Go type
// and tagged with an explicit ColumnType. Handles come in two layouts:
//
//   - Scalar[T] holds a value inline (int32, float64, string, ...)
//   - Indirect[T] holds an owned pointer to a slice or map, so that a backing
//     dataset can reallocate the container without invalidating the handle
//
// The only place concrete types are named is this package. Callers recover
// typed access with ScalarOf / IndirectOf after comparing tags with TagOf.
//
// # Type Tags
//
// The builtin tags cover the numeric scalars, bool and string, slices of
// those, and a handful of map shapes. Application types used for derived
// columns are registered once:
//
//	type Jet struct{ Pt, Eta float64 }
//	jetsTag := columnar.RegisterType[[]Jet]("[]Jet")
//
// Type matching is nominal: two columns match iff their tags are equal.
//
// # Registry
//
// Registry keeps one table for scalar columns and one for vector/map columns,
// plus the known-names table used for "found with another type" diagnostics:
//
//	reg := columnar.NewRegistry()
//	reg.Declare("run", columnar.TypeUInt32)        // catalogue scan
//	col, err := reg.Materialize("run", h)          // bind on first use
//	_, err = reg.Register("run", columnar.OriginDerived, h2) // conflict
//
// Register enforces the redefinition guard; Materialize is the bind-on-demand
// path for names already in the catalogue. Destroy releases every column once.
package columnar

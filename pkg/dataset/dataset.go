// Package dataset defines the backing store an ntuple reader pulls events
// from, together with in-memory, Arrow IPC, Parquet and Avro implementations.
//
// A Dataset exposes a catalogue of named, typed branches. The reader binds a
// columnar.Handle to a branch once; each Load then writes the branch's value
// for the requested entry through the handle's address. Vector and map
// branches write through the handle's indirection, allocating the owned
// container on first load and reusing it afterwards.
package dataset

import (
	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// Branch is one catalogue entry
type Branch struct {
	Name string
	Type columnar.ColumnType
}

// Dataset is the capability set the reader needs from a backing store
type Dataset interface {
	// Name identifies the dataset in diagnostics, usually the file name
	Name() string
	// Branches lists every branch with its native type. Branches whose
	// storage type has no tag are reported with TypeInvalid.
	Branches() []Branch
	// Bind attaches storage to a branch. The handle's tag must equal the
	// branch's native tag.
	Bind(name string, h columnar.Handle) error
	// LoadBranch refreshes one bound branch for entry
	LoadBranch(name string, entry int) error
	// Load refreshes every bound branch for entry
	Load(entry int) error
	// NumEntries returns the number of events
	NumEntries() int
	Close() error
}

func errUnknownBranch(ds, name string) error {
	return errors.Newf(errors.ErrorTypeNotFound, "branch %q not found in %s", name, ds).
		WithDetail("branch", name)
}

func errNotBound(ds, name string) error {
	return errors.Newf(errors.ErrorTypeData, "branch %q of %s is not bound", name, ds).
		WithDetail("branch", name)
}

func errBindType(name string, native, got columnar.ColumnType) error {
	return errors.Newf(errors.ErrorTypeCapability, "cannot bind branch %q of type %s to storage of type %s",
		name, native, got).
		WithDetail("branch", name).
		WithDetail("native_type", native.String()).
		WithDetail("storage_type", got.String())
}

func errEntryRange(ds string, entry, n int) error {
	return errors.Newf(errors.ErrorTypeData, "entry %d out of range [0, %d) in %s", entry, n, ds).
		WithDetail("entry", entry)
}

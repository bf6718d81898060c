package ntuple

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/columnar"
	"github.com/ajitpratap0/ntuple/pkg/config"
	"github.com/ajitpratap0/ntuple/pkg/dataset"
	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/json"
	"github.com/ajitpratap0/ntuple/pkg/logger"
	"github.com/ajitpratap0/ntuple/pkg/metrics"
)

// Reader gives typed, on-demand access to the columns of a dataset, one
// event at a time. A Reader is not safe for concurrent use.
type Reader struct {
	ds      dataset.Dataset
	reg     *columnar.Registry
	log     *zap.Logger
	metrics *metrics.Collector

	prefix  string
	aliases map[string]string
	active  map[string]bool

	updaters []Updater

	nevt           int // 1-based number of the loaded event, 0 before the first load
	evtProcessed   int
	started        bool
	updateDisabled bool
	reThrow        bool
	coercion       bool
	closed         bool
}

// Option configures a Reader
type Option func(*Reader)

// WithLogger sets the logger errors are reported to
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Reader) {
		if c != nil {
			r.metrics = c
		}
	}
}

// WithActiveBranches limits eager binding to the named branches. Other
// catalogue branches stay known and are bound on first access.
func WithActiveBranches(names ...string) Option {
	return func(r *Reader) {
		if len(names) == 0 {
			return
		}
		r.active = make(map[string]bool, len(names))
		for _, name := range names {
			r.active[name] = true
		}
	}
}

// WithReThrow sets the initial error policy, see SetReThrow
func WithReThrow(reThrow bool) Option {
	return func(r *Reader) { r.reThrow = reThrow }
}

// WithPrefix sets the initial name prefix, see SetPrefix
func WithPrefix(prefix string) Option {
	return func(r *Reader) { r.prefix = prefix }
}

// NewReader scans the dataset catalogue and binds its branches
func NewReader(ds dataset.Dataset, opts ...Option) (*Reader, error) {
	if ds == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "dataset is required")
	}

	r := &Reader{
		ds:      ds,
		reg:     columnar.NewRegistry(),
		aliases: make(map[string]string),
		reThrow: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("ntuple")
	}
	r.log = r.log.With(zap.String("dataset", ds.Name()))
	if r.metrics == nil {
		r.metrics = metrics.NewCollector(ds.Name())
	}

	r.populateBranchList()

	for name := range r.active {
		if _, ok := r.reg.Known(name); !ok {
			r.log.Warn("active branch not found in dataset", zap.String("column", name))
		}
	}
	return r, nil
}

// FromConfig builds a reader from a loaded configuration
func FromConfig(ds dataset.Dataset, cfg *config.ReaderConfig, opts ...Option) (*Reader, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithReThrow(cfg.Reader.ReThrow),
		WithPrefix(cfg.Reader.Prefix),
		WithActiveBranches(cfg.Reader.ActiveBranches...),
	}
	r, err := NewReader(ds, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for alias, name := range cfg.Reader.Aliases {
		r.AddAlias(name, alias)
	}
	if v := cfg.Convert.Vectors; v.Any() {
		if err := r.SetConvertFloatingPointVectors(VectorConversions(v)); err != nil {
			return nil, err
		}
	}
	if s := cfg.Convert.Scalars; s.Any() {
		if err := r.SetConvertFloatingPointScalars(ScalarConversions(s)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// populateBranchList records every catalogue branch as known and binds the
// active ones
func (r *Reader) populateBranchList() {
	for _, b := range r.ds.Branches() {
		if !b.Type.Valid() {
			r.log.Debug("skipping branch with unsupported type", zap.String("column", b.Name))
			continue
		}
		r.reg.Declare(b.Name, b.Type)
	}
	for _, b := range r.ds.Branches() {
		if !b.Type.Valid() || (r.active != nil && !r.active[b.Name]) {
			continue
		}
		if _, err := r.bindBranch(b.Name); err != nil {
			r.log.Warn("failed to bind branch", zap.String("column", b.Name), zap.Error(err))
		}
	}
}

// bindBranch materializes storage of the branch's native type and attaches
// it to the dataset
func (r *Reader) bindBranch(name string) (*columnar.Column, error) {
	t, ok := r.nativeType(name)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "branch %q not found in %s", name, r.ds.Name())
	}
	h, err := columnar.NewHandle(t)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCapability, "cannot allocate storage").WithDetail("column", name)
	}
	if err := r.ds.Bind(name, h); err != nil {
		h.Destroy()
		return nil, err
	}
	return r.reg.Materialize(name, h)
}

func (r *Reader) nativeType(name string) (columnar.ColumnType, bool) {
	for _, b := range r.ds.Branches() {
		if b.Name == name && b.Type.Valid() {
			return b.Type, true
		}
	}
	return columnar.TypeInvalid, false
}

// Close releases every column exactly once and closes the dataset
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.reg.Destroy()
	return r.ds.Close()
}

// FileName returns the name of the backing dataset
func (r *Reader) FileName() string { return r.ds.Name() }

// GetNEntries returns the number of events in the dataset
func (r *Reader) GetNEntries() int { return r.ds.NumEntries() }

// GetEvtNum returns the 1-based number of the loaded event, 0 before the
// first load
func (r *Reader) GetEvtNum() int { return r.nevt }

// IsFirstEvent is true until the second successful advance
func (r *Reader) IsFirstEvent() bool { return r.evtProcessed <= 1 }

// SetReThrow sets whether reported errors are also returned to the caller.
// When disabled, failed getters return the zero value and a nil error.
func (r *Reader) SetReThrow(reThrow bool) { r.reThrow = reThrow }

// GetReThrow returns the error policy
func (r *Reader) GetReThrow() bool { return r.reThrow }

// SetPrefix sets the prefix tried before every requested name
func (r *Reader) SetPrefix(prefix string) { r.prefix = prefix }

// Prefix returns the current name prefix
func (r *Reader) Prefix() string { return r.prefix }

// AddAlias makes alias resolve to name
func (r *Reader) AddAlias(name, alias string) {
	r.aliases[alias] = name
}

// CheckBranch reports whether name is a known column, bound or not. The
// name is resolved through aliases and the prefix like a getter's.
func (r *Reader) CheckBranch(name string) bool {
	_, ok := r.GetType(name)
	return ok
}

// HasVar is an alias of CheckBranch
func (r *Reader) HasVar(name string) bool { return r.CheckBranch(name) }

// GetType returns the type name of the column a getter would read for name
func (r *Reader) GetType(name string) (string, bool) {
	return r.reg.Known(r.resolve(name))
}

// GetTupleMembers returns every known column name in sorted order
func (r *Reader) GetTupleMembers() []string {
	return r.reg.Names()
}

// Member describes one known column
type Member struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Origin string `json:"origin"`
}

// Members describes every known column in sorted order. Catalogue branches
// that were never bound report origin "unbound".
func (r *Reader) Members() []Member {
	names := r.reg.Names()
	members := make([]Member, 0, len(names))
	for _, name := range names {
		typeName, _ := r.reg.Known(name)
		origin := "unbound"
		if col, ok := r.reg.Column(name); ok {
			origin = col.Origin.String()
		}
		members = append(members, Member{Name: name, Type: typeName, Origin: origin})
	}
	return members
}

// PrintTupleMembers renders the known columns as a table
func (r *Reader) PrintTupleMembers(w io.Writer) {
	_ = r.RenderTupleMembers(w, "table")
}

// RenderTupleMembers renders the known columns as table, csv, markdown or
// json
func (r *Reader) RenderTupleMembers(w io.Writer, format string) error {
	if strings.EqualFold(format, "json") {
		return json.MarshalToWriter(w, r.Members())
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Type", "Origin"})
	for _, m := range r.Members() {
		t.AppendRow(table.Row{m.Name, m.Type, m.Origin})
	}

	switch strings.ToLower(format) {
	case "", "table":
		t.Render()
	case "csv":
		t.RenderCSV()
	case "markdown", "md":
		t.RenderMarkdown()
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown member format %q", format)
	}
	return nil
}

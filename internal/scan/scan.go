// Package scan dumps the columns of an ntuple reader event by event.
//
// A Scanner walks a reader from a start event and writes one JSON object per
// event, either as JSON lines or as a single JSON array:
//
//	s := scan.New(reader, &scan.Config{Columns: []string{"run", "jetPt"}}, logger)
//	stats, err := s.Run(ctx, os.Stdout)
package scan

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/json"
	"github.com/ajitpratap0/ntuple/pkg/metrics"
	"github.com/ajitpratap0/ntuple/pkg/ntuple"
	"github.com/ajitpratap0/ntuple/pkg/tracing"
)

// Output formats
const (
	FormatLines = "lines"
	FormatArray = "array"
)

// EventField is the key holding the 1-based event number in every dumped
// object
const EventField = "_event"

// Config controls which events and columns are dumped
type Config struct {
	Columns []string // columns to dump, empty means every known column
	First   int      // 0-based index of the first event
	Max     int      // maximum number of events, 0 means all
	Format  string   // FormatLines or FormatArray
	Pretty  bool     // indent every object
}

// DefaultConfig dumps every column of every event as JSON lines
func DefaultConfig() *Config {
	return &Config{Format: FormatLines}
}

// Stats summarizes a finished scan
type Stats struct {
	Events     int
	Missing    []string
	Duration   time.Duration
	Throughput float64
	Resources  metrics.ResourceUsage
}

// Scanner dumps events of a reader
type Scanner struct {
	reader  *ntuple.Reader
	config  *Config
	logger  *zap.Logger
	tracker *metrics.ThroughputTracker
	monitor *metrics.ResourceMonitor
}

// New creates a scanner. The reader must not have been advanced yet if
// derived columns are registered, since the scanner moves the cursor.
func New(reader *ntuple.Reader, config *Config, logger *zap.Logger) *Scanner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		reader:  reader,
		config:  config,
		logger:  logger,
		tracker: metrics.NewThroughputTracker(reader.FileName()),
		monitor: metrics.NewResourceMonitor(),
	}
}

// Run writes the selected events to w. It stops early when ctx is done.
func (s *Scanner) Run(ctx context.Context, w io.Writer) (*Stats, error) {
	if s.config.First < 0 || s.config.Max < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "first and max cannot be negative")
	}

	isArray := false
	switch s.config.Format {
	case "", FormatLines:
	case FormatArray:
		isArray = true
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown scan format %q", s.config.Format)
	}

	enc, err := json.NewStreamingEncoder(w, isArray)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to start output")
	}
	if s.config.Pretty {
		enc.SetPretty("  ")
	}

	ctx, span := tracing.StartSpan(ctx, "ntuple.scan",
		attribute.String("dataset", s.reader.FileName()),
		attribute.Int("first", s.config.First),
		attribute.Int("max", s.config.Max))

	start := time.Now()
	s.logger.Info("starting scan",
		zap.String("dataset", s.reader.FileName()),
		zap.Int("entries", s.reader.GetNEntries()),
		zap.Int("first", s.config.First),
		zap.Int("max", s.config.Max))

	stats := &Stats{}
	columns := s.config.Columns
	missing := make(map[string]bool)

	for ok := s.reader.GoToEvent(s.config.First); ok; ok = s.reader.NextEvent() {
		select {
		case <-ctx.Done():
			s.logger.Info("scan cancelled", zap.Int("events", stats.Events))
			return s.finish(span, stats, start, enc, ctx.Err())
		default:
		}

		// the column list is taken after the first load so that derived
		// columns are included
		if columns == nil {
			columns = s.reader.GetTupleMembers()
		}

		event := make(map[string]interface{}, len(columns)+1)
		event[EventField] = s.reader.GetEvtNum()
		for _, name := range columns {
			v, ok := s.reader.Value(name)
			if !ok {
				if !missing[name] {
					missing[name] = true
					stats.Missing = append(stats.Missing, name)
					s.logger.Warn("column not found", zap.String("column", name))
				}
				continue
			}
			event[name] = v
		}

		if err := enc.Encode(event); err != nil {
			return s.finish(span, stats, start, enc, errors.Wrap(err, errors.ErrorTypeFile, "failed to write event"))
		}
		stats.Events++
		s.tracker.Increment(1)

		if s.config.Max > 0 && stats.Events >= s.config.Max {
			break
		}
	}

	return s.finish(span, stats, start, enc, nil)
}

func (s *Scanner) finish(span trace.Span, stats *Stats, start time.Time, enc *json.StreamingEncoder,
	runErr error) (*Stats, error) {
	closeErr := enc.Close()
	if runErr == nil && closeErr != nil {
		runErr = errors.Wrap(closeErr, errors.ErrorTypeFile, "failed to finish output")
	}

	stats.Duration = time.Since(start)
	stats.Throughput = s.tracker.GetAndReset()
	stats.Resources = s.monitor.Usage()

	span.SetAttributes(attribute.Int("events", stats.Events))
	tracing.End(span, runErr)

	s.logger.Info("scan completed",
		zap.Int("events", stats.Events),
		zap.Strings("missing", stats.Missing),
		zap.Duration("duration", stats.Duration),
		zap.Float64("throughput_eps", stats.Throughput),
		zap.Uint64("memory_rss", stats.Resources.MemoryRSS),
		zap.Float64("cpu_percent", stats.Resources.CPUPercent))

	return stats, runErr
}

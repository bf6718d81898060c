package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/ntuple/pkg/compression"
	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// Format identifies an on-disk dataset encoding
type Format string

const (
	FormatArrow   Format = "arrow"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

var formatExtensions = map[string]Format{
	".arrow":   FormatArrow,
	".ipc":     FormatArrow,
	".feather": FormatArrow,
	".parquet": FormatParquet,
	".pq":      FormatParquet,
	".avro":    FormatAvro,
}

// DetectFormat returns the dataset format and compression algorithm of path,
// e.g. "events.arrow.zst" is Arrow compressed with zstd.
func DetectFormat(path string) (Format, compression.Algorithm, error) {
	alg, base := compression.FromPath(path)
	format, ok := formatExtensions[strings.ToLower(filepath.Ext(base))]
	if !ok {
		return "", alg, errors.Newf(errors.ErrorTypeCapability, "unsupported dataset file %q", path).
			WithDetail("path", path)
	}
	return format, alg, nil
}

// Open opens a dataset file, decompressing it transparently
func Open(path string) (Dataset, error) {
	format, alg, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: path is user supplied by design
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open dataset").WithDetail("path", path)
	}
	defer f.Close()

	r, err := compression.NewReader(alg, f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open decompressor").WithDetail("path", path)
	}
	defer r.Close()

	var ds Dataset
	switch format {
	case FormatArrow:
		ds, err = ReadArrow(r, path)
	case FormatParquet:
		ds, err = ReadParquet(r, path)
	default:
		ds, err = ReadAvro(r, path)
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

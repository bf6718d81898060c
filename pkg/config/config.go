// Package config provides the YAML configuration of ntuple readers and the
// ntuple command.
//
// The configuration is organized into logical sections:
//   - Reader: error policy, name resolution, active branches
//   - Convert: which numeric conversions are materialized per event
//   - Scan: defaults for the event-dump command
//   - Logging: zap logger settings
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Reader.Prefix = "ak8"
//	cfg.Convert.Vectors.DoubleToFloat = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/logger"
)

// ReaderConfig is the top-level configuration structure
type ReaderConfig struct {
	// Reader settings control lookup behaviour
	Reader ReaderSection `yaml:"reader" json:"reader"`

	// Convert enables per-event numeric conversions
	Convert ConvertConfig `yaml:"convert" json:"convert"`

	// Scan holds defaults for the scan command
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Logging configures the global zap logger
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// ReaderSection contains the lookup settings of a reader
type ReaderSection struct {
	// ReThrow returns lookup errors to the caller after logging them.
	// When false, failed getters return the zero value.
	ReThrow bool `yaml:"rethrow" json:"rethrow"`
	// Prefix is tried before every requested name
	Prefix string `yaml:"prefix" json:"prefix"`
	// Aliases maps an alias to the column it stands for
	Aliases map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	// ActiveBranches restricts eager binding to these branches.
	// Empty means every branch is bound at construction.
	ActiveBranches []string `yaml:"active_branches,omitempty" json:"active_branches,omitempty"`
}

// ConvertConfig groups the vector and scalar conversion toggles
type ConvertConfig struct {
	Vectors VectorConvertConfig `yaml:"vectors" json:"vectors"`
	Scalars ScalarConvertConfig `yaml:"scalars" json:"scalars"`
}

// VectorConvertConfig toggles element-wise vector conversions
type VectorConvertConfig struct {
	DoubleToFloat bool `yaml:"double_to_float" json:"double_to_float"`
	FloatToDouble bool `yaml:"float_to_double" json:"float_to_double"`
	IntToInt      bool `yaml:"int_to_int" json:"int_to_int"`
	FloatToInt    bool `yaml:"float_to_int" json:"float_to_int"`
}

// Any reports whether any vector conversion is enabled
func (v VectorConvertConfig) Any() bool {
	return v.DoubleToFloat || v.FloatToDouble || v.IntToInt || v.FloatToInt
}

// ScalarConvertConfig toggles scalar conversions
type ScalarConvertConfig struct {
	DoubleToFloat bool `yaml:"double_to_float" json:"double_to_float"`
	FloatToDouble bool `yaml:"float_to_double" json:"float_to_double"`
	IntToFloat    bool `yaml:"int_to_float" json:"int_to_float"`
}

// Any reports whether any scalar conversion is enabled
func (s ScalarConvertConfig) Any() bool {
	return s.DoubleToFloat || s.FloatToDouble || s.IntToFloat
}

// ScanConfig holds defaults for the scan command
type ScanConfig struct {
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	First   int      `yaml:"first" json:"first"`
	// Max limits the number of dumped events, 0 means all
	Max    int    `yaml:"max" json:"max"`
	Format string `yaml:"format" json:"format"` // lines or array
}

// Default returns a configuration with the defaults of a bare reader
func Default() *ReaderConfig {
	return &ReaderConfig{
		Reader: ReaderSection{
			ReThrow: true,
			Aliases: make(map[string]string),
		},
		Scan: ScanConfig{
			Format: "lines",
		},
		Logging: logger.DefaultConfig(),
	}
}

// Validate checks the configuration for values the reader would reject
func (c *ReaderConfig) Validate() error {
	for alias, name := range c.Reader.Aliases {
		if alias == "" || name == "" {
			return errors.New(errors.ErrorTypeConfig, "aliases must map a non-empty alias to a non-empty name")
		}
		if alias == name {
			return errors.Newf(errors.ErrorTypeConfig, "alias %q refers to itself", alias)
		}
	}
	for _, b := range c.Reader.ActiveBranches {
		if b == "" {
			return errors.New(errors.ErrorTypeConfig, "active_branches cannot contain empty names")
		}
	}
	if c.Scan.First < 0 {
		return errors.New(errors.ErrorTypeConfig, "scan.first cannot be negative")
	}
	if c.Scan.Max < 0 {
		return errors.New(errors.ErrorTypeConfig, "scan.max cannot be negative")
	}
	switch c.Scan.Format {
	case "", "lines", "array":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "scan.format must be lines or array, got %q", c.Scan.Format)
	}
	return nil
}

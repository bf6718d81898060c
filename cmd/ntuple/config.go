package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/ntuple/pkg/config"
	"github.com/ajitpratap0/ntuple/pkg/logger"
)

// envPrefix namespaces environment overrides, e.g. NTUPLE_READER_PREFIX
const envPrefix = "NTUPLE"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig layers the YAML file, NTUPLE_* environment variables and
// explicitly set flags, in increasing precedence, and initializes the global
// logger from the result
func loadConfig(v *viper.Viper) (*config.ReaderConfig, error) {
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("reader.rethrow") {
		cfg.Reader.ReThrow = v.GetBool("reader.rethrow")
	}
	if v.IsSet("reader.prefix") {
		cfg.Reader.Prefix = v.GetString("reader.prefix")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	} else if v.GetString("config") == "" {
		// keep stderr quiet unless asked otherwise
		cfg.Logging.Level = "warn"
	}
	if v.IsSet("scan.columns") {
		if cols := splitColumns(v.GetStringSlice("scan.columns")); len(cols) > 0 {
			cfg.Scan.Columns = cols
		}
	}
	if v.IsSet("scan.first") {
		cfg.Scan.First = v.GetInt("scan.first")
	}
	if v.IsSet("scan.max") {
		cfg.Scan.Max = v.GetInt("scan.max")
	}
	if v.IsSet("scan.format") {
		cfg.Scan.Format = v.GetString("scan.format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitColumns accepts both repeated flags and comma separated environment
// values
func splitColumns(values []string) []string {
	var cols []string
	for _, value := range values {
		for _, col := range strings.Split(value, ",") {
			if col = strings.TrimSpace(col); col != "" {
				cols = append(cols, col)
			}
		}
	}
	return cols
}

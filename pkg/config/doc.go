// Package config loads ntuple reader settings from YAML.
//
// # Key Features
//
// - ReaderConfig: one structure for the reader, conversions, scan defaults and logging
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults matching a reader built without options
// - Validation of aliases, active branches and scan settings
//
// # Usage
//
//	cfg, err := config.LoadFile("ntuple.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	reader, err := ntuple.FromConfig(ds, cfg)
//
// # Example YAML
//
//	reader:
//	  rethrow: true
//	  prefix: ${NTUPLE_PREFIX}
//	  aliases:
//	    jets: jetPt
//	  active_branches: [run, jetPt]
//	convert:
//	  vectors:
//	    double_to_float: true
//	logging:
//	  level: debug
package config

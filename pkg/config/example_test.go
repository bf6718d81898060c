package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/ntuple/pkg/config"
)

// ExampleDefault demonstrates the defaults of a reader configuration.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("ReThrow: %v\n", cfg.Reader.ReThrow)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
	fmt.Printf("Scan format: %s\n", cfg.Scan.Format)

	// Output:
	// ReThrow: true
	// Log level: info
	// Scan format: lines
}

// ExampleReaderConfig_Validate shows how to validate a configuration
// before building a reader from it.
func ExampleReaderConfig_Validate() {
	cfg := config.Default()
	cfg.Reader.Prefix = "ak8"
	cfg.Reader.Aliases["jets"] = "jetPt"
	cfg.Convert.Vectors.DoubleToFloat = true

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")
	fmt.Println("Vector conversions:", cfg.Convert.Vectors.Any())

	// Output:
	// Configuration is valid!
	// Vector conversions: true
}

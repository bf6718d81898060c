package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/internal/scan"
	"github.com/ajitpratap0/ntuple/pkg/config"
	"github.com/ajitpratap0/ntuple/pkg/dataset"
	"github.com/ajitpratap0/ntuple/pkg/logger"
	"github.com/ajitpratap0/ntuple/pkg/ntuple"
	"github.com/ajitpratap0/ntuple/pkg/tracing"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:   "ntuple",
		Short: "Inspect and dump event datasets column by column",
		Long: `ntuple reads Arrow, Parquet and Avro event files (optionally compressed with
zstd, lz4, gzip, snappy or s2) and gives typed access to their columns.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML reader configuration")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("rethrow", true, "Fail on the first lookup error instead of emitting zero values")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("reader.rethrow", root.PersistentFlags().Lookup("rethrow"))

	root.AddCommand(newVersionCommand())
	root.AddCommand(newMembersCommand(v))
	root.AddCommand(newScanCommand(v))
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ntuple v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newMembersCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members FILE",
		Short: "List the columns of a dataset and their types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			r, err := openReader(args[0], cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			format := v.GetString("members.format")
			if !strings.EqualFold(format, "json") {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", r.FileName(), r.GetNEntries())
			}
			return r.RenderTupleMembers(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().String("format", "table", "Output format (table, csv, markdown, json)")
	_ = v.BindPFlag("members.format", cmd.Flags().Lookup("format"))
	return cmd
}

func newScanCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan FILE",
		Short: "Dump selected columns of every event as JSON",
		Long: `Dump selected columns of every event as JSON lines or as a JSON array.

Example:
  ntuple scan events.arrow.zst --columns run,jetPt --first 100 --max 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			r, err := openReader(args[0], cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if v.GetBool("scan.trace") {
				traceCfg := tracing.DefaultConfig()
				traceCfg.ServiceVersion = version
				traceCfg.Output = cmd.ErrOrStderr()
				shutdown, err := tracing.Init(traceCfg)
				if err != nil {
					return err
				}
				defer func() { _ = shutdown(context.Background()) }()
			}

			scanCfg := &scan.Config{
				Columns: cfg.Scan.Columns,
				First:   cfg.Scan.First,
				Max:     cfg.Scan.Max,
				Format:  cfg.Scan.Format,
				Pretty:  v.GetBool("scan.pretty"),
			}
			_, err = scan.New(r, scanCfg, logger.Named("scan")).Run(ctx, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringSlice("columns", nil, "Columns to dump (default all)")
	cmd.Flags().Int("first", 0, "Index of the first event")
	cmd.Flags().Int("max", 0, "Maximum number of events (0 means all)")
	cmd.Flags().String("prefix", "", "Prefix tried before every column name")
	cmd.Flags().String("format", scan.FormatLines, "Output format (lines, array)")
	cmd.Flags().Bool("pretty", false, "Indent every event")
	cmd.Flags().Bool("trace", false, "Write OpenTelemetry spans to stderr")
	_ = v.BindPFlag("scan.columns", cmd.Flags().Lookup("columns"))
	_ = v.BindPFlag("scan.first", cmd.Flags().Lookup("first"))
	_ = v.BindPFlag("scan.max", cmd.Flags().Lookup("max"))
	_ = v.BindPFlag("reader.prefix", cmd.Flags().Lookup("prefix"))
	_ = v.BindPFlag("scan.format", cmd.Flags().Lookup("format"))
	_ = v.BindPFlag("scan.pretty", cmd.Flags().Lookup("pretty"))
	_ = v.BindPFlag("scan.trace", cmd.Flags().Lookup("trace"))
	return cmd
}

// openReader opens a dataset file and wraps it in a configured reader
func openReader(path string, cfg *config.ReaderConfig) (*ntuple.Reader, error) {
	log := logger.Get().With(zap.String("component", "ntuple-cli"), zap.String("file", path))
	log.Debug("opening dataset")

	ds, err := dataset.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := ntuple.FromConfig(ds, cfg, ntuple.WithLogger(logger.Named("ntuple")))
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	return r, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yuya-takeyama/strict-s3-diff/internal/config"
	"github.com/yuya-takeyama/strict-s3-diff/internal/summary"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/compare"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/report"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	cfgFile   string
	output    string
	backend   string
	timeout   int
	retries   int
	excludes  []string
	logLevel  string
	logFormat string
	quiet     bool
	noColor   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := viper.New()
	rootCmd := newRootCmd(v)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strict-s3-diff",
		Short: "Report the object keys that exist in only one of two S3 buckets",
		Long: `strict-s3-diff lists a primary and a mirror bucket, computes which keys
exist on only one side and writes the result to a JSON report.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", config.DefaultFile, "Configuration file path")
	flags.StringVarP(&output, "output", "o", "", "Report file path (default bucket_differences.json)")
	flags.StringVar(&backend, "backend", "", "Listing backend: s5cmd, sdk or minio")
	flags.IntVar(&timeout, "timeout", 0, "Per-bucket listing timeout in seconds (default 300)")
	flags.IntVar(&retries, "retries", 0, "Retry a failed listing up to N times")
	flags.StringSliceVar(&excludes, "exclude", nil, "Exclude key patterns (multiple allowed)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	bindings := map[string]string{
		"settings.output":     "output",
		"settings.backend":    "backend",
		"settings.timeout":    "timeout",
		"settings.retries":    "retries",
		"settings.exclude":    "exclude",
		"settings.log_level":  "log-level",
		"settings.log_format": "log-format",
	}
	for key, name := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	config.SetDefaults(v)
	return rootCmd
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	settings := cfg.Settings

	log := logger.New(logger.Config{
		Level:  settings.LogLevel,
		Format: logger.Format(settings.LogFormat),
		Quiet:  quiet,
	})
	log.Debug("configuration loaded", "path", v.ConfigFileUsed(), "backend", settings.Backend)

	l, err := buildLister(settings, log)
	if err != nil {
		return err
	}

	primary := cfg.Primary.Endpoint()
	mirror := cfg.Mirror.Endpoint()

	writer := report.NewWriter(report.Options{
		PrimaryBucket:    primary.BucketName,
		MirrorBucket:     mirror.BucketName,
		SizeWarningBytes: settings.SizeWarningBytes,
	}, log.With("component", "report"))

	result, stats, err := compare.New(l, writer, log).Run(ctx, primary, mirror, settings.Output)
	if err != nil {
		var reportErr *compare.ReportError
		if !errors.As(err, &reportErr) {
			return err
		}
		// the comparison itself succeeded; show it before failing
		printSummary(primary.BucketName, mirror.BucketName, result.OnlyInPrimary, result.OnlyInMirror, stats, "", 0)
		return err
	}

	var reportBytes int64
	if info, statErr := os.Stat(settings.Output); statErr == nil {
		reportBytes = info.Size()
	}
	printSummary(primary.BucketName, mirror.BucketName, result.OnlyInPrimary, result.OnlyInMirror, stats, settings.Output, reportBytes)
	return nil
}

func printSummary(primaryBucket, mirrorBucket string, onlyInPrimary, onlyInMirror []string, stats compare.Stats, reportPath string, reportBytes int64) {
	summary.NewPrinter(os.Stdout, quiet, noColor).Print(summary.Summary{
		PrimaryBucket:  primaryBucket,
		MirrorBucket:   mirrorBucket,
		PrimaryObjects: stats.PrimaryObjects,
		MirrorObjects:  stats.MirrorObjects,
		OnlyInPrimary:  len(onlyInPrimary),
		OnlyInMirror:   len(onlyInMirror),
		ReportPath:     reportPath,
		ReportBytes:    reportBytes,
		Duration:       stats.Duration,
	})
}

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/arena"
	"github.com/joshuapare/heapkit/mem/malloc"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	backendName string
	staticSize  int
	configName  string
	logDir      string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise and inspect the heapkit allocator",
	Long: `heapctl drives the heapkit allocator through canned and randomized
workloads. It can replay the classic example program, run a randomized
stress test with corruption checks, compare fit policies, and dump the
arena layout.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&backendName, "backend", "mapped", "Arena backend: mapped or static")
	rootCmd.PersistentFlags().
		IntVar(&staticSize, "static-size", arena.DefaultStaticSize, "Capacity of the static backend in bytes")
	rootCmd.PersistentFlags().
		StringVar(&configName, "config", "standard", "Heap preset: standard, compact or bulk")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write allocator diagnostics to dated files in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging routes allocator diagnostics to stderr in verbose mode, or to
// --log-dir when given.
func initLogging() error {
	opts := logger.Options{
		Enabled: verbose || logDir != "",
		LogDir:  logDir,
		Prefix:  "heapctl",
		JSON:    logDir != "",
		Level:   slog.LevelDebug,
	}
	if logDir == "" {
		opts.Writer = os.Stderr
	}
	return logger.Init(opts)
}

// heapConfig resolves --config to a preset.
func heapConfig() (alloc.Config, error) {
	switch configName {
	case "standard", "":
		return alloc.ConfigStandard, nil
	case "compact":
		return alloc.ConfigCompact, nil
	case "bulk":
		return alloc.ConfigBulk, nil
	}
	return alloc.Config{}, fmt.Errorf("unknown config %q (want standard, compact or bulk)", configName)
}

// newBackendFunc resolves --backend and --static-size.
func newBackendFunc() (func() (arena.Backend, error), error) {
	switch backendName {
	case "mapped", "":
		return func() (arena.Backend, error) { return arena.NewMapped(0) }, nil
	case "static":
		size := staticSize
		return func() (arena.Backend, error) { return arena.NewStatic(size), nil }, nil
	}
	return nil, fmt.Errorf("unknown backend %q (want mapped or static)", backendName)
}

// newAllocator builds an Allocator from the global flags.
func newAllocator(policy alloc.Policy) (*malloc.Allocator, error) {
	cfg, err := heapConfig()
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy
	newBackend, err := newBackendFunc()
	if err != nil {
		return nil, err
	}
	a := malloc.New(malloc.Options{Config: &cfg, NewBackend: newBackend})
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var numbers = message.NewPrinter(language.English)

// formatNumber renders n with thousands separators.
func formatNumber(n int64) string {
	return numbers.Sprintf("%d", n)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

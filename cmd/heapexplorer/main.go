package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/arena"
)

func main() {
	flags := pflag.NewFlagSet("heapexplorer", pflag.ContinueOnError)
	flags.Usage = printHelp
	debugMode := flags.BoolP("debug", "d", false, "Enable debug logging to ~/.heapexplorer/logs/")
	showVersion := flags.BoolP("version", "v", false, "Show version information")
	policyName := flags.StringP("policy", "p", "first", "Initial fit policy: first, best or worst")
	configName := flags.StringP("config", "c", "standard", "Heap preset: standard, compact or bulk")
	maxSize := flags.IntP("max-size", "m", 512, "Largest random request in bytes")
	seed := flags.Int64("seed", 1, "Random seed for request sizes")
	staticSize := flags.Int("static", 0, "Use a fixed-capacity arena of this many bytes instead of mapped memory")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		printUsage()
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("heapexplorer %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		os.Exit(0)
	}

	// Initialize logger (must be before any logging calls)
	if err := initLogging(*debugMode); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	opts, err := buildOptions(*configName, *policyName, *maxSize, *seed, *staticSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}
	logger.Info("starting heapexplorer", "config", opts.Config.Name, "policy", opts.Config.Policy.String())

	m := NewModel(opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.Warn("error releasing heap", "error", err)
		}
	}

	logger.Info("heapexplorer exited normally")
}

// initLogging writes debug logs to dated files under ~/.heapexplorer/logs;
// the terminal belongs to the TUI.
func initLogging(debug bool) error {
	opts := logger.Options{Enabled: debug, Prefix: "heapexplorer", Level: slog.LevelDebug}
	if debug {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		opts.LogDir = filepath.Join(home, ".heapexplorer", "logs")
	}
	return logger.Init(opts)
}

// buildOptions resolves the command-line flags into explorer options.
func buildOptions(configName, policyName string, maxSize int, seed int64, staticSize int) (Options, error) {
	var cfg alloc.Config
	switch configName {
	case "standard", "":
		cfg = alloc.ConfigStandard
	case "compact":
		cfg = alloc.ConfigCompact
	case "bulk":
		cfg = alloc.ConfigBulk
	default:
		return Options{}, fmt.Errorf("unknown config %q", configName)
	}

	policy, err := alloc.ParsePolicy(policyName)
	if err != nil {
		return Options{}, err
	}
	cfg.Policy = policy
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	if maxSize <= 0 {
		return Options{}, fmt.Errorf("max-size must be positive, got %d", maxSize)
	}

	opts := Options{Config: cfg, MaxSize: maxSize, Seed: seed}
	if staticSize > 0 {
		opts.NewBackend = func() (arena.Backend, error) { return arena.NewStatic(staticSize), nil }
	}
	return opts, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: heapexplorer [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'heapexplorer --help' for more information.\n")
}

func printHelp() {
	fmt.Println("heapexplorer - Interactive TUI for the heapkit allocator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  heapexplorer [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Starts an empty heap and lets you allocate and free blocks by hand while")
	fmt.Println("  watching the arena layout, the free list and the allocator counters.")
	fmt.Println()
	fmt.Println("  Keys:")
	fmt.Println("    ↑/k, ↓/j    Move cursor")
	fmt.Println("    a / A       Allocate one / sixteen random-sized blocks")
	fmt.Println("    x           Free the selected block")
	fmt.Println("    X           Free every allocated block")
	fmt.Println("    p           Cycle fit policy")
	fmt.Println("    Tab         Switch between arena and free list")
	fmt.Println("    Enter       Show block header and payload")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -c, --config string   Heap preset: standard, compact or bulk (default standard)")
	fmt.Println("  -p, --policy string   Initial fit policy: first, best or worst (default first)")
	fmt.Println("  -m, --max-size int    Largest random request in bytes (default 512)")
	fmt.Println("      --seed int        Random seed for request sizes (default 1)")
	fmt.Println("      --static int      Use a fixed-capacity arena of this many bytes")
	fmt.Println("  -d, --debug           Enable debug logging to ~/.heapexplorer/logs/")
	fmt.Println("  -h, --help            Show this help message")
	fmt.Println("  -v, --version         Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  heapexplorer")
	fmt.Println("  heapexplorer --config compact --policy best --max-size 128")
	fmt.Println("  heapexplorer --static 65536")
	fmt.Println()
	fmt.Println("For non-interactive runs, use the 'heapctl' command instead.")
}

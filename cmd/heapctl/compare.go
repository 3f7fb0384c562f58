package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/mem/alloc"
)

var compareCfg = workloadConfig{
	Iterations: 20000,
	Slots:      2000,
	MaxSize:    4096,
	Seed:       1,
}

func init() {
	cmd := newCompareCmd()
	cmd.Flags().IntVar(&compareCfg.Iterations, "iterations", compareCfg.Iterations, "Number of random slot visits")
	cmd.Flags().IntVar(&compareCfg.Slots, "slots", compareCfg.Slots, "Number of pointer slots")
	cmd.Flags().IntVar(&compareCfg.MaxSize, "max-size", compareCfg.MaxSize, "Largest request in bytes")
	cmd.Flags().Int64Var(&compareCfg.Seed, "seed", compareCfg.Seed, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare fit policies on the same workload",
		Long: `The compare command runs one seeded workload under every fit policy and
reports arena size and fragmentation measured before the final drain.

Example:
  heapctl compare
  heapctl compare --config compact --max-size 512 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare()
		},
	}
	return cmd
}

func comparePolicies(cfg workloadConfig) ([]workloadResult, error) {
	results := make([]workloadResult, 0, len(alloc.Policies))
	for _, p := range alloc.Policies {
		a, err := newAllocator(p)
		if err != nil {
			return nil, err
		}
		res, err := runWorkload(a, cfg, nil)
		a.Cleanup()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func runCompare() error {
	results, err := comparePolicies(compareCfg)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(results)
	}

	printInfo("\nPolicy Comparison (%s iterations, sizes 1-%s)\n",
		formatNumber(int64(compareCfg.Iterations)), formatNumber(int64(compareCfg.MaxSize)))
	printInfo("%s\n", strings.Repeat("=", 78))
	printInfo("%-10s %14s %8s %12s %14s %8s %6s\n",
		"Policy", "Arena", "Grows", "Free blocks", "Largest free", "Frag", "Fails")
	for _, r := range results {
		printInfo("%-10s %14s %8s %12s %14s %7.1f%% %6d\n",
			r.Policy,
			formatNumber(int64(r.Usage.ArenaBytes)),
			formatNumber(int64(r.Stats.GrowCalls)),
			formatNumber(int64(r.Usage.FreeBlocks)),
			formatNumber(int64(r.Usage.LargestFree)),
			r.Usage.Fragmentation()*100,
			r.Failed,
		)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/mem/alloc"
)

var (
	stressCfg    = defaultWorkload
	stressPolicy string
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressCfg.Iterations, "iterations", defaultWorkload.Iterations, "Number of random slot visits")
	cmd.Flags().IntVar(&stressCfg.Slots, "slots", defaultWorkload.Slots, "Number of pointer slots")
	cmd.Flags().IntVar(&stressCfg.MaxSize, "max-size", defaultWorkload.MaxSize, "Largest request in bytes")
	cmd.Flags().Int64Var(&stressCfg.Seed, "seed", defaultWorkload.Seed, "Random seed")
	cmd.Flags().StringVar(&stressPolicy, "policy", "first", "Fit policy: first, best or worst")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized allocate/free test",
		Long: `The stress command visits random pointer slots, allocating a block of
random size into empty slots and freeing full ones. Each block carries a
random value that is verified before it is freed, and the heap invariants
are checked at the end.

Example:
  heapctl stress
  heapctl stress --iterations 100000 --policy best
  heapctl stress --backend static --static-size 4194304`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

func runStress() error {
	policy, err := alloc.ParsePolicy(stressPolicy)
	if err != nil {
		return err
	}
	a, err := newAllocator(policy)
	if err != nil {
		return err
	}
	defer a.Cleanup()

	printVerbose("Starting random allocation and deallocation test...\n")
	res, err := runWorkload(a, stressCfg, printVerbose)
	if err != nil {
		return fmt.Errorf("heap check failed: %w", err)
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printStress(res)
	}

	if res.Corrupted > 0 {
		return fmt.Errorf("%d corrupted block(s) detected", res.Corrupted)
	}
	return nil
}

func printStress(res workloadResult) {
	printInfo("\nStress Test (%s)\n", res.Policy)
	printInfo("  Allocations:   %s (%s failed)\n", formatNumber(int64(res.Allocs)), formatNumber(int64(res.Failed)))
	printInfo("  Frees:         %s\n", formatNumber(int64(res.Frees)))
	printInfo("  Peak live:     %s blocks\n", formatNumber(int64(res.PeakLive)))
	printInfo("  Arena:         %s (%s bytes)\n", formatBytes(int64(res.Usage.ArenaBytes)), formatNumber(int64(res.Usage.ArenaBytes)))
	printInfo("  Arena growths: %s\n", formatNumber(int64(res.Stats.GrowCalls)))
	printInfo("  Splits:        %s\n", formatNumber(int64(res.Stats.SplitCount)))
	printInfo("  Merges:        %s forward, %s backward\n",
		formatNumber(int64(res.Stats.CoalesceForward)), formatNumber(int64(res.Stats.CoalesceBackward)))
	printInfo("  Fragmentation: %.1f%% before drain\n", res.Usage.Fragmentation()*100)
	printInfo("  Corrupted:     %d\n", res.Corrupted)
	printInfo("  Last error:    %s\n", res.LastError)
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/malloc"
)

var (
	dumpPolicy string
	dumpFree   bool
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVar(&dumpPolicy, "policy", "first", "Fit policy: first, best or worst")
	cmd.Flags().BoolVar(&dumpFree, "free-only", false, "Only print the free list")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Show block layout after a small workload",
		Long: `The dump command allocates a handful of blocks, frees every other one
and prints the arena layout and the free list.

Example:
  heapctl dump
  heapctl dump --free-only --policy best
  heapctl dump --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
	return cmd
}

type dumpReport struct {
	Policy   string
	Blocks   []alloc.Block
	FreeList []alloc.Block
	Usage    alloc.Usage
}

// dumpSizes is the request sequence replayed before dumping.
var dumpSizes = []int{8, 64, 20, 33, 512, 100, 4000, 40}

// fragment allocates dumpSizes and frees every other block.
func fragment(a *malloc.Allocator) {
	ptrs := make([]alloc.Ptr, len(dumpSizes))
	for i, n := range dumpSizes {
		ptrs[i] = a.Malloc(n)
	}
	for i := 0; i < len(ptrs); i += 2 {
		a.Free(ptrs[i])
	}
}

func runDump() error {
	policy, err := alloc.ParsePolicy(dumpPolicy)
	if err != nil {
		return err
	}
	a, err := newAllocator(policy)
	if err != nil {
		return err
	}
	defer a.Cleanup()

	fragment(a)

	return a.Do(func(h *alloc.Heap) error {
		if jsonOut {
			report := dumpReport{Policy: h.Policy().String()}
			if err := h.Walk(func(b alloc.Block) bool {
				report.Blocks = append(report.Blocks, b)
				return true
			}); err != nil {
				return err
			}
			if err := h.WalkFree(func(b alloc.Block) bool {
				report.FreeList = append(report.FreeList, b)
				return true
			}); err != nil {
				return err
			}
			u, err := h.Usage()
			if err != nil {
				return err
			}
			report.Usage = u
			return printJSON(report)
		}

		if quiet {
			return nil
		}
		if !dumpFree {
			if err := h.DumpBlocks(os.Stdout); err != nil {
				return err
			}
		}
		return h.DumpFreeList(os.Stdout)
	})
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/malloc"
)

func init() {
	rootCmd.AddCommand(newExampleCmd())
}

func newExampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Replay the basic allocate/free walkthrough",
		Long: `The example command allocates an integer and two small strings,
reports the usable size each request was rounded to, frees them all and
releases the heap.

Example:
  heapctl example
  heapctl example --backend static --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExample()
		},
	}
	return cmd
}

type exampleStep struct {
	Name      string
	Requested int
	Usable    int
	Ptr       uint64
}

type exampleReport struct {
	Steps     []exampleStep
	LastError string
	Blocks    int
	FreeBytes int
}

func runExample() error {
	a, err := newAllocator(alloc.FirstFit)
	if err != nil {
		return err
	}
	defer a.Cleanup()

	report, err := exampleWalkthrough(a)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	for _, s := range report.Steps {
		printInfo("Allocated %s: %d bytes requested, %d usable at %#x\n", s.Name, s.Requested, s.Usable, s.Ptr)
	}
	printInfo("Freed all blocks: %d free block(s), %s bytes free\n", report.Blocks, formatNumber(int64(report.FreeBytes)))
	printInfo("Last error: %s\n", report.LastError)
	return nil
}

// exampleWalkthrough allocates an int and two strings, checks the int round
// trips, frees everything and reports the resulting layout.
func exampleWalkthrough(a *malloc.Allocator) (exampleReport, error) {
	var report exampleReport
	requests := []struct {
		name string
		size int
	}{
		{"num", 4},
		{"str", 20},
		{"str1", 33},
	}

	ptrs := make([]alloc.Ptr, 0, len(requests))
	for _, r := range requests {
		p := a.Malloc(r.size)
		if p == alloc.Nil {
			for _, q := range ptrs {
				a.Free(q)
			}
			return report, fmt.Errorf("failed to allocate memory for %s: %v", r.name, a.LastError())
		}
		ptrs = append(ptrs, p)
		report.Steps = append(report.Steps, exampleStep{
			Name:      r.name,
			Requested: r.size,
			Usable:    a.UsableSize(p),
			Ptr:       uint64(p),
		})
	}

	format.PutU32(a.Bytes(ptrs[0]), 0, 42)
	if got := format.ReadU32(a.Bytes(ptrs[0]), 0); got != 42 {
		return report, fmt.Errorf("num reads back %d, want 42", got)
	}
	printVerbose("Allocated num: %d\n", 42)

	for i, p := range ptrs {
		printVerbose("Freeing %s...\n", requests[i].name)
		a.Free(p)
	}

	err := a.Do(func(h *alloc.Heap) error {
		return h.WalkFree(func(b alloc.Block) bool {
			report.Blocks++
			report.FreeBytes += b.Size
			return true
		})
	})
	report.LastError = a.LastError().String()
	return report, err
}

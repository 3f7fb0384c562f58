package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string // e.g. Heap_Fragmented
	Policy      string // e.g. best-fit
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// PolicyComparison holds one operation measured under every policy.
type PolicyComparison struct {
	Operation string
	Results   map[string]BenchmarkResult // keyed by policy
	Fastest   string
}

// baseline is the policy other policies are compared against.
const baseline = "first-fit"

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results)
	report := generateMarkdownReport(comparisons, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// Benchmark_Heap_Fragmented/best-fit-8    5000000    243.1 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Accept `go test -json` output as well
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		operation, policy, ok := splitName(name)
		if !ok {
			continue
		}

		r := BenchmarkResult{Name: name, Operation: operation, Policy: policy}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}
		results = append(results, r)
	}

	return results
}

// splitName parses Benchmark_<Group>_<Op>/<policy>-<procs>.
func splitName(name string) (operation, policy string, ok bool) {
	base, sub, found := strings.Cut(name, "/")
	if !found {
		return "", "", false
	}
	operation = strings.TrimPrefix(strings.TrimPrefix(base, "Benchmark"), "_")

	// Strip the GOMAXPROCS suffix
	policy = sub
	if i := strings.LastIndex(sub, "-"); i > 0 {
		if _, err := strconv.Atoi(sub[i+1:]); err == nil {
			policy = sub[:i]
		}
	}
	if !strings.HasSuffix(policy, "-fit") {
		return "", "", false
	}
	return operation, policy, true
}

func generateComparisons(results []BenchmarkResult) []PolicyComparison {
	grouped := make(map[string]map[string]BenchmarkResult)
	for _, r := range results {
		if grouped[r.Operation] == nil {
			grouped[r.Operation] = make(map[string]BenchmarkResult)
		}
		grouped[r.Operation][r.Policy] = r
	}

	comparisons := make([]PolicyComparison, 0, len(grouped))
	for op, byPolicy := range grouped {
		c := PolicyComparison{Operation: op, Results: byPolicy}
		for _, p := range sortedPolicies(byPolicy) {
			if c.Fastest == "" || byPolicy[p].NsPerOp < byPolicy[c.Fastest].NsPerOp {
				c.Fastest = p
			}
		}
		comparisons = append(comparisons, c)
	}

	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].Operation < comparisons[j].Operation
	})
	return comparisons
}

// sortedPolicies lists the baseline first, then the rest by name.
func sortedPolicies(byPolicy map[string]BenchmarkResult) []string {
	names := make([]string, 0, len(byPolicy))
	for p := range byPolicy {
		names = append(names, p)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == baseline) != (names[j] == baseline) {
			return names[i] == baseline
		}
		return names[i] < names[j]
	})
	return names
}

func generateMarkdownReport(comparisons []PolicyComparison, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Fit Policy Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	wins := make(map[string]int)
	for _, c := range comparisons {
		wins[c.Fastest]++
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Operations**: %d\n", len(comparisons))
	for _, p := range sortedWins(wins) {
		fmt.Fprintf(&sb, "- **%s** fastest in %d\n", p, wins[p])
	}
	sb.WriteString("\n")

	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString("| Operation | Policy | ns/op | vs " + baseline + " | Memory (B/op) | Allocs |\n")
	sb.WriteString("|-----------|--------|-------|--------------|---------------|--------|\n")
	for _, c := range comparisons {
		base, hasBase := c.Results[baseline]
		for _, p := range sortedPolicies(c.Results) {
			r := c.Results[p]
			ratio := "*N/A*"
			if hasBase && r.NsPerOp > 0 {
				ratio = fmt.Sprintf("%.2fx", base.NsPerOp/r.NsPerOp)
			}
			marker := ""
			if p == c.Fastest {
				marker = " ✓"
			}
			fmt.Fprintf(&sb, "| %s | %s%s | %s | %s | %s | %s |\n",
				c.Operation, p, marker,
				formatNumber(r.NsPerOp), ratio,
				formatBytes(r.BytesPerOp), formatNumber(float64(r.AllocsPerOp)))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **vs " + baseline + " > 1.0**: faster than " + baseline + "\n")
	sb.WriteString("- **Memory** and **Allocs** count Go heap allocations, not arena blocks\n")

	return sb.String()
}

func sortedWins(wins map[string]int) []string {
	names := make([]string, 0, len(wins))
	for p := range wins {
		names = append(names, p)
	}
	sort.Slice(names, func(i, j int) bool {
		if wins[names[i]] != wins[names[j]] {
			return wins[names[i]] > wins[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}

package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"seqbench/internal/bench"
)

// RunInfo describes a benchmark run for the header printed before it starts.
type RunInfo struct {
	ID      string
	URL     string
	Method  string
	HasBody bool
	Policy  bench.Policy
}

func WriteRunHeader(w io.Writer, info RunInfo) {
	if d, ok := info.Policy.TimeLimit(); ok {
		fmt.Fprintf(w, "Starting benchmark for %s seconds...\n", formatSeconds(d))
	} else {
		fmt.Fprintln(w, "Starting benchmark...")
	}
	if n, ok := info.Policy.RequestLimit(); ok {
		fmt.Fprintf(w, "Request limit: %d\n", n)
	}
	if info.ID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", info.ID)
	}
	fmt.Fprintf(w, "URL: %s\n", info.URL)
	fmt.Fprintf(w, "Method: %s\n", info.Method)
	if info.HasBody {
		fmt.Fprintln(w, "Body: <provided>")
	}
	fmt.Fprintln(w)
}

func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d", int64(d/time.Second))
	}
	return fmt.Sprintf("%.3f", d.Seconds())
}

// ProgressLine renders the running request count and elapsed time.
func ProgressLine(s bench.Snapshot) string {
	return fmt.Sprintf("Requests: %d | Elapsed: %.1fs", s.Requests, s.Elapsed.Seconds())
}

// NewProgressPrinter returns a progress callback for the loop. On a terminal
// the line is redrawn in place, otherwise every update gets its own line.
func NewProgressPrinter(w io.Writer) func(bench.Snapshot) {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return func(s bench.Snapshot) {
		if tty {
			fmt.Fprintf(w, "\r%s", ProgressLine(s))
			return
		}
		fmt.Fprintln(w, ProgressLine(s))
	}
}

func millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}

// WriteSummary prints the end-of-run block. The latency section is omitted
// when no request succeeded.
func WriteSummary(w io.Writer, s *bench.Stats) {
	fmt.Fprintln(w, "\n=== Benchmark Results ===")
	fmt.Fprintf(w, "Total Duration: %.3fs\n", s.TotalDuration.Seconds())
	fmt.Fprintf(w, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Successful: %d\n", s.SuccessfulRequests)
	fmt.Fprintf(w, "Failed: %d\n", s.FailedRequests)
	fmt.Fprintf(w, "Requests/sec: %.2f\n", s.ThroughputRPS())

	lo, ok := s.MinLatency()
	if !ok {
		return
	}
	hi, _ := s.MaxLatency()

	fmt.Fprintln(w, "\n=== Latency Statistics ===")
	fmt.Fprintf(w, "Min: %.3fms\n", millis(lo))
	fmt.Fprintf(w, "Max: %.3fms\n", millis(hi))
	fmt.Fprintf(w, "Avg: %.3fms\n", millis(s.AverageLatency()))
	fmt.Fprintf(w, "P50: %.3fms\n", millis(s.Percentile(50)))
	fmt.Fprintf(w, "P90: %.3fms\n", millis(s.Percentile(90)))
	fmt.Fprintf(w, "P95: %.3fms\n", millis(s.Percentile(95)))
	fmt.Fprintf(w, "P99: %.3fms\n", millis(s.Percentile(99)))
}

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"seqbench/internal/bench"
)

// Attempt is one exported row: a single request of the run.
type Attempt struct {
	Seq       uint64        `json:"seq"`
	TimeStamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency_ns"`
	Status    int           `json:"status"`
	Bytes     int64         `json:"bytes"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Recorder keeps every outcome of a run so it can be exported afterwards.
type Recorder struct {
	Attempts []Attempt
}

func (r *Recorder) Record(o bench.Outcome) {
	a := Attempt{
		Seq:       uint64(len(r.Attempts) + 1),
		TimeStamp: o.Start,
		Latency:   o.Latency,
		Status:    o.Status,
		Bytes:     o.Bytes,
		Success:   o.OK(),
	}
	if o.Err != nil {
		a.Error = o.Err.Error()
	}
	r.Attempts = append(r.Attempts, a)
}

// ExportCSV writes one row per attempt in a JMeter-like layout.
func ExportCSV(attempts []Attempt, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"seq", "timeStamp", "elapsed", "responseCode", "success", "bytes", "failureMessage"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, a := range attempts {
		record := []string{
			strconv.FormatUint(a.Seq, 10),
			strconv.FormatInt(a.TimeStamp.UnixMilli(), 10),
			fmt.Sprintf("%.3f", millis(a.Latency)),
			strconv.Itoa(a.Status),
			strconv.FormatBool(a.Success),
			strconv.FormatInt(a.Bytes, 10),
			a.Error,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

type LatencySummary struct {
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P90Ms float64 `json:"p90_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

type Summary struct {
	RunID         string          `json:"run_id"`
	URL           string          `json:"url"`
	Method        string          `json:"method"`
	StartedAt     time.Time       `json:"started_at"`
	DurationSec   float64         `json:"duration_s"`
	TotalRequests uint64          `json:"total_requests"`
	Success       uint64          `json:"success"`
	Fail          uint64          `json:"fail"`
	RequestsSec   float64         `json:"requests_per_sec"`
	Latency       *LatencySummary `json:"latency,omitempty"`
}

func NewSummary(info RunInfo, started time.Time, s *bench.Stats) Summary {
	sum := Summary{
		RunID:         info.ID,
		URL:           info.URL,
		Method:        info.Method,
		StartedAt:     started,
		DurationSec:   s.TotalDuration.Seconds(),
		TotalRequests: s.TotalRequests,
		Success:       s.SuccessfulRequests,
		Fail:          s.FailedRequests,
		RequestsSec:   s.ThroughputRPS(),
	}

	if lo, ok := s.MinLatency(); ok {
		hi, _ := s.MaxLatency()
		sum.Latency = &LatencySummary{
			MinMs: millis(lo),
			MaxMs: millis(hi),
			AvgMs: millis(s.AverageLatency()),
			P50Ms: millis(s.Percentile(50)),
			P90Ms: millis(s.Percentile(90)),
			P95Ms: millis(s.Percentile(95)),
			P99Ms: millis(s.Percentile(99)),
		}
	}
	return sum
}

func ExportJSON(v any, filename string) error {
	data, err := jsoniter.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportRun writes <prefix>.csv with every attempt and <prefix>_summary.json.
func ExportRun(prefix string, sum Summary, attempts []Attempt) error {
	if err := ExportCSV(attempts, prefix+".csv"); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := ExportJSON(sum, prefix+"_summary.json"); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	return nil
}

package bench

import (
	"math"
	"slices"
	"time"
)

// Stats accumulates the outcomes of one run. It has a single writer, the
// loop, and is read-only once Finalize has been called.
type Stats struct {
	TotalRequests      uint64
	SuccessfulRequests uint64
	FailedRequests     uint64
	TotalDuration      time.Duration

	minLatency time.Duration
	maxLatency time.Duration
	latencies  []time.Duration
	sum        time.Duration

	sorted []time.Duration
	hist   *Histogram
	final  bool
}

func NewStats() *Stats {
	return &Stats{
		minLatency: time.Duration(math.MaxInt64),
		latencies:  make([]time.Duration, 0, 1024),
		hist:       NewHistogram(),
	}
}

func (s *Stats) AddSuccess(latency time.Duration) {
	s.TotalRequests++
	s.SuccessfulRequests++
	s.latencies = append(s.latencies, latency)
	s.sum += latency
	s.sorted = nil
	s.hist.Record(latency)

	if latency < s.minLatency {
		s.minLatency = latency
	}
	if latency > s.maxLatency {
		s.maxLatency = latency
	}
}

func (s *Stats) AddFailure() {
	s.TotalRequests++
	s.FailedRequests++
}

// Add routes an outcome to AddSuccess or AddFailure.
func (s *Stats) Add(o Outcome) {
	if o.OK() {
		s.AddSuccess(o.Latency)
		return
	}
	s.AddFailure()
}

// Finalize records the run's wall time. Only the first call has an effect.
func (s *Stats) Finalize(total time.Duration) {
	if s.final {
		return
	}
	s.TotalDuration = total
	s.final = true
}

func (s *Stats) Finalized() bool {
	return s.final
}

// MinLatency is undefined (ok == false) until a success has been recorded.
func (s *Stats) MinLatency() (time.Duration, bool) {
	if s.SuccessfulRequests == 0 {
		return 0, false
	}
	return s.minLatency, true
}

// MaxLatency is undefined (ok == false) until a success has been recorded.
func (s *Stats) MaxLatency() (time.Duration, bool) {
	if s.SuccessfulRequests == 0 {
		return 0, false
	}
	return s.maxLatency, true
}

// AverageLatency is the truncated mean of successful latencies, or zero.
func (s *Stats) AverageLatency() time.Duration {
	if len(s.latencies) == 0 {
		return 0
	}
	return s.sum / time.Duration(len(s.latencies))
}

// Percentile returns the nearest-rank percentile of successful latencies:
// the value at index ceil(n*p/100)-1 of the sorted set, without interpolation.
func (s *Stats) Percentile(p float64) time.Duration {
	n := len(s.latencies)
	if n == 0 {
		return 0
	}
	if s.sorted == nil {
		s.sorted = slices.Clone(s.latencies)
		slices.Sort(s.sorted)
	}

	idx := int(math.Ceil(float64(n)*p/100.0)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s.sorted[idx]
}

// Latencies returns the successful latencies in completion order.
func (s *Stats) Latencies() []time.Duration {
	return slices.Clone(s.latencies)
}

func (s *Stats) ThroughputRPS() float64 {
	secs := s.TotalDuration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.TotalRequests) / secs
}

// Snapshot is a value copy of the running counters, safe to hand to another goroutine.
type Snapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Elapsed  time.Duration

	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
	Max time.Duration

	LastError string
	Done      bool
}

func (s *Stats) Snapshot(elapsed time.Duration) Snapshot {
	snap := Snapshot{
		Requests: s.TotalRequests,
		Success:  s.SuccessfulRequests,
		Fail:     s.FailedRequests,
		Elapsed:  elapsed,
		Done:     s.final,
	}
	if s.hist.Count() > 0 {
		snap.P50 = s.hist.Quantile(50)
		snap.P90 = s.hist.Quantile(90)
		snap.P99 = s.hist.Quantile(99)
		snap.Max = s.maxLatency
	}
	return snap
}

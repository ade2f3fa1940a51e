package bench

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram is an approximate latency distribution used for live readouts,
// where sorting every recorded latency on each update would be too slow.
// Final percentiles come from Stats.Percentile, not from here.
type Histogram struct {
	hist *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	// 1us to 10min, 3 significant figures
	h := hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3)
	return &Histogram{hist: h}
}

// Record adds d; values beyond the trackable range are clamped to it.
func (h *Histogram) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if hi := h.hist.HighestTrackableValue(); us > hi {
		us = hi
	}
	_ = h.hist.RecordValue(us)
}

func (h *Histogram) Quantile(q float64) time.Duration {
	return time.Duration(h.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (h *Histogram) Count() int64 {
	return h.hist.TotalCount()
}

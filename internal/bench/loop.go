package bench

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// ProgressEvery is the number of completed attempts between progress callbacks.
const ProgressEvery = 100

// Loop issues requests one after another until its policy or ctx says stop.
type Loop struct {
	Requester Requester
	Spec      *RequestSpec
	Policy    Policy
	Logger    *slog.Logger

	// Progress is called with a snapshot after every ProgressEvery attempts.
	Progress func(Snapshot)
	// OnOutcome sees every outcome, in order, after it has been counted.
	OnOutcome func(Outcome)
	// Updates, if set, receives a snapshot after every attempt. Sends never
	// block; a full channel drops the update.
	Updates chan<- Snapshot

	now func() time.Time
}

// Run blocks until the run stops and returns the finalized stats.
func (l *Loop) Run(ctx context.Context) *Stats {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := l.now
	if now == nil {
		now = time.Now
	}

	stats := NewStats()
	start := now()
	var lastErr string
	logger.Debug("Benchmark started", "policy", l.Policy.String())

	for ctx.Err() == nil && l.Policy.Continue(now().Sub(start), stats.TotalRequests) {
		o := l.Requester.Execute(ctx, l.Spec)
		if !o.OK() && ctx.Err() != nil {
			// cut short by the stop itself; not a result
			logger.Debug("Attempt abandoned on stop", "err", o.Err)
			break
		}
		stats.Add(o)

		if !o.OK() {
			lastErr = o.Err.Error()
			logger.Error("Request failed", "attempt", stats.TotalRequests, "err", o.Err)
		}
		if l.OnOutcome != nil {
			l.OnOutcome(o)
		}
		if l.Progress != nil && stats.TotalRequests%ProgressEvery == 0 {
			snap := stats.Snapshot(now().Sub(start))
			snap.LastError = lastErr
			l.Progress(snap)
		}
		if l.Updates != nil {
			snap := stats.Snapshot(now().Sub(start))
			snap.LastError = lastErr
			l.send(snap)
		}
	}

	stats.Finalize(now().Sub(start))
	if l.Updates != nil {
		final := stats.Snapshot(stats.TotalDuration)
		final.LastError = lastErr
		l.send(final)
	}
	logger.Debug("Benchmark stopped",
		"requests", stats.TotalRequests,
		"duration", stats.TotalDuration,
		"cancelled", ctx.Err() != nil,
	)
	return stats
}

func (l *Loop) send(snap Snapshot) {
	select {
	case l.Updates <- snap:
	default:
	}
}

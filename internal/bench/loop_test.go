package bench

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/internal/transport"
)

func alwaysOK(n int) Outcome {
	return Outcome{Latency: time.Duration(n) * time.Microsecond}
}

func alwaysFail(int) Outcome {
	return Outcome{Err: &TransportError{Op: "connect", Err: errors.New("connection refused")}}
}

func TestLoopStopsAtRequestLimit(t *testing.T) {
	req := &scriptedRequester{fn: alwaysOK}
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Policy:    Policy{}.WithTimeLimit(time.Hour).WithRequestLimit(5),
	}

	stats := loop.Run(context.Background())
	assert.Equal(t, 5, req.calls)
	assert.Equal(t, uint64(5), stats.TotalRequests)
	assert.Equal(t, uint64(5), stats.SuccessfulRequests)
	assert.True(t, stats.Finalized())
}

func TestLoopStopsAtTimeLimit(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	req := &scriptedRequester{fn: alwaysOK}
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Policy:    Policy{}.WithTimeLimit(time.Second),
		now:       clock.now,
	}

	stats := loop.Run(context.Background())
	assert.Greater(t, req.calls, 0)
	assert.Equal(t, uint64(req.calls), stats.TotalRequests)
	assert.GreaterOrEqual(t, stats.TotalDuration, time.Second)
}

func TestLoopAlwaysFailingTransport(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0), step: time.Millisecond}
	var logs bytes.Buffer
	loop := &Loop{
		Requester: &scriptedRequester{fn: alwaysFail},
		Spec:      testSpec(),
		Policy:    Policy{}.WithTimeLimit(time.Second),
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		now:       clock.now,
	}

	stats := loop.Run(context.Background())
	assert.Greater(t, stats.FailedRequests, uint64(0))
	assert.Equal(t, uint64(0), stats.SuccessfulRequests)
	assert.Equal(t, stats.TotalRequests, stats.FailedRequests)
	assert.Empty(t, stats.Latencies())
	assert.Contains(t, logs.String(), "Request failed")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestLoopFailuresDoNotStopRun(t *testing.T) {
	req := &scriptedRequester{fn: func(n int) Outcome {
		if n%2 == 0 {
			return alwaysFail(n)
		}
		return alwaysOK(n)
	}}
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Policy:    Policy{}.WithRequestLimit(10),
	}

	stats := loop.Run(context.Background())
	assert.Equal(t, uint64(10), stats.TotalRequests)
	assert.Equal(t, uint64(5), stats.SuccessfulRequests)
	assert.Equal(t, uint64(5), stats.FailedRequests)
}

func TestLoopProgressCountsAllAttempts(t *testing.T) {
	req := &scriptedRequester{fn: func(n int) Outcome {
		if n%3 == 0 {
			return alwaysFail(n)
		}
		return alwaysOK(n)
	}}
	var seen []uint64
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Policy:    Policy{}.WithRequestLimit(350),
		Progress: func(s Snapshot) {
			seen = append(seen, s.Requests)
			assert.Equal(t, s.Requests, s.Success+s.Fail)
		},
	}

	loop.Run(context.Background())
	assert.Equal(t, []uint64{100, 200, 300}, seen)
}

func TestLoopZeroTimeLimitRunsNothing(t *testing.T) {
	req := &scriptedRequester{fn: alwaysOK}
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Policy:    Policy{}.WithTimeLimit(0),
	}

	stats := loop.Run(context.Background())
	assert.Equal(t, 0, req.calls)
	assert.Equal(t, uint64(0), stats.TotalRequests)
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := &scriptedRequester{}
	req.fn = func(n int) Outcome {
		if n == 7 {
			cancel()
		}
		return alwaysOK(n)
	}
	loop := &Loop{Requester: req, Spec: testSpec()}

	stats := loop.Run(ctx)
	assert.Equal(t, 7, req.calls)
	assert.Equal(t, uint64(7), stats.TotalRequests)
	assert.True(t, stats.Finalized())
}

func TestLoopStopDoesNotCountAbortedAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := &scriptedRequester{}
	req.fn = func(n int) Outcome {
		if n == 3 {
			cancel()
			return Outcome{Err: &TransportError{Op: "read response header", Err: context.Canceled}}
		}
		return alwaysOK(n)
	}

	var logs bytes.Buffer
	var outcomes []Outcome
	loop := &Loop{
		Requester: req,
		Spec:      testSpec(),
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		OnOutcome: func(o Outcome) { outcomes = append(outcomes, o) },
	}

	stats := loop.Run(ctx)
	assert.Equal(t, 3, req.calls)
	assert.Equal(t, uint64(2), stats.TotalRequests)
	assert.Equal(t, uint64(0), stats.FailedRequests)
	assert.Len(t, outcomes, 2)
	assert.NotContains(t, logs.String(), "Request failed")
}

func TestLoopStopMidRequestAgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	spec := specFor(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	loop := &Loop{
		Requester: NewExecutor(transport.NewHTTPConnector(spec.Peer), 0),
		Spec:      spec,
		Policy:    Policy{}.WithTimeLimit(10 * time.Second),
	}

	stats := loop.Run(ctx)
	assert.Equal(t, uint64(0), stats.FailedRequests)
	assert.Equal(t, stats.TotalRequests, stats.SuccessfulRequests)
	assert.GreaterOrEqual(t, stats.TotalRequests, uint64(1))
}

func TestLoopOutcomesAndUpdates(t *testing.T) {
	updates := make(chan Snapshot, 16)
	var outcomes []Outcome
	loop := &Loop{
		Requester: &scriptedRequester{fn: alwaysOK},
		Spec:      testSpec(),
		Policy:    Policy{}.WithRequestLimit(3),
		OnOutcome: func(o Outcome) { outcomes = append(outcomes, o) },
		Updates:   updates,
	}

	loop.Run(context.Background())
	require.Len(t, outcomes, 3)
	assert.Equal(t, 3*time.Microsecond, outcomes[2].Latency)

	close(updates)
	var last Snapshot
	count := 0
	for s := range updates {
		last = s
		count++
	}
	assert.Equal(t, 4, count)
	assert.True(t, last.Done)
	assert.Equal(t, uint64(3), last.Requests)
}

func TestPolicy(t *testing.T) {
	p := Policy{}
	assert.True(t, p.Continue(time.Hour, 1<<40))
	assert.Equal(t, "unbounded", p.String())

	p = p.WithRequestLimit(0)
	assert.False(t, p.Continue(0, 0))

	p = Policy{}.WithTimeLimit(time.Second).WithRequestLimit(2)
	assert.True(t, p.Continue(500*time.Millisecond, 1))
	assert.False(t, p.Continue(time.Second, 1))
	assert.False(t, p.Continue(0, 2))

	d, ok := p.TimeLimit()
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
	n, ok := p.RequestLimit()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), n)
}

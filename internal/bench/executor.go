package bench

import (
	"context"
	"errors"
	"io"
	"time"

	"seqbench/internal/transport"
)

// Outcome is the result of one execution attempt. Err == nil means success.
type Outcome struct {
	Start   time.Time
	Latency time.Duration
	Status  int
	Bytes   int64
	Err     error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Response is what the diagnostic path shows for a single request.
type Response struct {
	Status  int
	Reason  string
	Headers []transport.HeaderField
	Body    []byte
	Latency time.Duration
}

// Requester runs one measured request. The loop depends on this, not on Executor.
type Requester interface {
	Execute(ctx context.Context, spec *RequestSpec) Outcome
}

// Diagnoser runs one request and returns the full response.
type Diagnoser interface {
	ExecuteDiagnostic(ctx context.Context, spec *RequestSpec) (*Response, error)
}

// Executor drives a transport session through one full request/response cycle.
type Executor struct {
	Connector transport.Connector

	// Timeout bounds a single attempt, connect through drained body. Zero disables it.
	Timeout time.Duration

	now func() time.Time
}

func NewExecutor(c transport.Connector, timeout time.Duration) *Executor {
	return &Executor{Connector: c, Timeout: timeout, now: time.Now}
}

func (e *Executor) Execute(ctx context.Context, spec *RequestSpec) Outcome {
	start := e.clock()
	status, n, err := e.roundTrip(ctx, spec, nil, nil)
	return Outcome{
		Start:   start,
		Latency: e.clock().Sub(start),
		Status:  status,
		Bytes:   n,
		Err:     err,
	}
}

func (e *Executor) ExecuteDiagnostic(ctx context.Context, spec *RequestSpec) (*Response, error) {
	resp := &Response{}
	start := e.clock()
	_, _, err := e.roundTrip(ctx, spec,
		func(h *transport.ResponseHeader) {
			resp.Status = h.Status
			resp.Reason = h.Reason
			resp.Headers = h.Fields
		},
		func(chunk []byte) {
			resp.Body = append(resp.Body, chunk...)
		},
	)
	if err != nil {
		return nil, err
	}
	resp.Latency = e.clock().Sub(start)
	return resp, nil
}

// roundTrip always drains the response body, even when nobody looks at it,
// so the transport can hand the connection to the next attempt.
func (e *Executor) roundTrip(ctx context.Context, spec *RequestSpec, onHeader func(*transport.ResponseHeader), onChunk func([]byte)) (status int, n int64, err error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	sess, err := e.Connector.Connect(ctx, spec.Peer)
	if err != nil {
		return 0, 0, &TransportError{Op: "connect", Err: err}
	}
	defer sess.Close()

	hdr, err := BuildHeader(spec)
	if err != nil {
		var hErr *HeaderError
		if errors.As(err, &hErr) {
			return 0, 0, err
		}
		return 0, 0, &TransportError{Op: "build request", Err: err}
	}

	if err := sess.WriteRequestHeader(hdr); err != nil {
		return 0, 0, &TransportError{Op: "write request header", Err: err}
	}
	if spec.HasBody {
		err = sess.WriteRequestBody(spec.Body, true)
	} else {
		err = sess.FinishRequestBody()
	}
	if err != nil {
		return 0, 0, &TransportError{Op: "write request body", Err: err}
	}

	resp, err := sess.ReadResponseHeader()
	if err != nil {
		return 0, 0, &TransportError{Op: "read response header", Err: err}
	}
	if onHeader != nil {
		onHeader(resp)
	}

	for {
		chunk, err := sess.ReadResponseBody()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return resp.Status, n, &TransportError{Op: "read response body", Err: err}
		}
		n += int64(len(chunk))
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return resp.Status, n, nil
}

func (e *Executor) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

package bench

import (
	"context"
	"errors"
	"io"
	"time"

	"seqbench/internal/transport"
)

// fakeConnector serves a canned response from memory and records what was sent.
type fakeConnector struct {
	connectErr error
	headerErr  error
	bodyErr    error

	status  int
	reason  string
	headers []transport.HeaderField
	chunks  [][]byte

	sessions []*fakeSession
}

func (c *fakeConnector) Connect(_ context.Context, _ transport.Peer) (transport.Session, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	s := &fakeSession{c: c}
	c.sessions = append(c.sessions, s)
	return s, nil
}

func (c *fakeConnector) last() *fakeSession {
	return c.sessions[len(c.sessions)-1]
}

type fakeSession struct {
	c *fakeConnector

	header   *transport.RequestHeader
	body     []byte
	finished bool

	chunksRead int
	drained    bool
	closed     bool
}

func (s *fakeSession) WriteRequestHeader(h *transport.RequestHeader) error {
	s.header = h
	return nil
}

func (s *fakeSession) WriteRequestBody(p []byte, end bool) error {
	s.body = append(s.body, p...)
	s.finished = end
	return nil
}

func (s *fakeSession) FinishRequestBody() error {
	s.finished = true
	return nil
}

func (s *fakeSession) ReadResponseHeader() (*transport.ResponseHeader, error) {
	if !s.finished {
		return nil, errors.New("body not finished")
	}
	if s.c.headerErr != nil {
		return nil, s.c.headerErr
	}
	return &transport.ResponseHeader{Status: s.c.status, Reason: s.c.reason, Fields: s.c.headers}, nil
}

func (s *fakeSession) ReadResponseBody() ([]byte, error) {
	if s.chunksRead < len(s.c.chunks) {
		chunk := s.c.chunks[s.chunksRead]
		s.chunksRead++
		return chunk, nil
	}
	if s.c.bodyErr != nil {
		return nil, s.c.bodyErr
	}
	s.drained = true
	return nil, io.EOF
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// stepClock advances by step on every reading.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

// scriptedRequester returns outcomes from fn and counts calls.
type scriptedRequester struct {
	calls int
	fn    func(n int) Outcome
}

func (r *scriptedRequester) Execute(_ context.Context, _ *RequestSpec) Outcome {
	r.calls++
	return r.fn(r.calls)
}

func testSpec() *RequestSpec {
	return &RequestSpec{
		Method: "GET",
		Peer:   transport.Peer{Host: "example.test", Port: 80},
		Path:   "/",
		Host:   "example.test",
	}
}

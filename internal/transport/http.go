package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

const chunkSize = 32 * 1024

var (
	ErrHeaderNotWritten = errors.New("request header not written")
	ErrBodyFinished     = errors.New("request body already finished")
	ErrNoResponse       = errors.New("response header not read")
)

// HTTPConnector issues requests through a single pooled http.Transport that
// always dials the same peer, so idle connections are reused between calls.
type HTTPConnector struct {
	peer      Peer
	transport *http.Transport
}

func NewHTTPConnector(peer Peer) *HTTPConnector {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 1
	t.MaxIdleConnsPerHost = 1
	t.MaxConnsPerHost = 1
	t.DisableCompression = true
	t.Proxy = nil
	t.ForceAttemptHTTP2 = false
	t.TLSClientConfig = &tls.Config{
		ServerName:         peer.SNI,
		InsecureSkipVerify: peer.Insecure,
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	addr := peer.Addr()
	t.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, addr)
	}

	return &HTTPConnector{peer: peer, transport: t}
}

// Connect returns a session for peer. The connector is bound to the peer it
// was built for; asking for another one is an error.
func (c *HTTPConnector) Connect(ctx context.Context, peer Peer) (Session, error) {
	if peer.Addr() != c.peer.Addr() || peer.TLS != c.peer.TLS {
		return nil, fmt.Errorf("connector bound to %s, got %s", c.peer.Addr(), peer.Addr())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpSession{ctx: ctx, connector: c}, nil
}

// CloseIdle drops pooled connections.
func (c *HTTPConnector) CloseIdle() {
	c.transport.CloseIdleConnections()
}

func (c *HTTPConnector) baseURL() string {
	scheme := "http"
	if c.peer.TLS {
		scheme = "https"
	}
	return scheme + "://" + c.peer.Addr()
}

type httpSession struct {
	ctx       context.Context
	connector *HTTPConnector

	header   *RequestHeader
	body     bytes.Buffer
	finished bool

	resp *http.Response
	buf  []byte
}

func (s *httpSession) WriteRequestHeader(h *RequestHeader) error {
	if s.header != nil {
		return errors.New("request header already written")
	}
	s.header = h
	return nil
}

func (s *httpSession) WriteRequestBody(p []byte, end bool) error {
	if s.header == nil {
		return ErrHeaderNotWritten
	}
	if s.finished {
		return ErrBodyFinished
	}
	s.body.Write(p)
	s.finished = end
	return nil
}

func (s *httpSession) FinishRequestBody() error {
	return s.WriteRequestBody(nil, true)
}

// ReadResponseHeader sends the request and waits for the status line and headers.
func (s *httpSession) ReadResponseHeader() (*ResponseHeader, error) {
	if s.header == nil {
		return nil, ErrHeaderNotWritten
	}
	if !s.finished {
		return nil, errors.New("request body not finished")
	}

	req, err := s.buildRequest()
	if err != nil {
		return nil, err
	}

	resp, err := s.connector.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	s.resp = resp

	return &ResponseHeader{
		Status: resp.StatusCode,
		Reason: strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		Fields: sortedFields(resp.Header),
	}, nil
}

func (s *httpSession) ReadResponseBody() ([]byte, error) {
	if s.resp == nil {
		return nil, ErrNoResponse
	}
	if s.buf == nil {
		s.buf = make([]byte, chunkSize)
	}
	for {
		n, err := s.resp.Body.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *httpSession) Close() error {
	if s.resp == nil {
		return nil
	}
	return s.resp.Body.Close()
}

// buildRequest maps the header onto an http.Request. net/http writes header
// fields sorted by canonical name, so the order in RequestHeader does not
// survive onto the wire; the set of fields and their values does.
func (s *httpSession) buildRequest() (*http.Request, error) {
	var body io.Reader = http.NoBody
	if s.body.Len() > 0 {
		body = bytes.NewReader(s.body.Bytes())
	}

	req, err := http.NewRequestWithContext(s.ctx, s.header.Method, s.connector.baseURL()+s.header.Path, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(s.body.Len())

	for _, f := range s.header.Fields {
		switch {
		case strings.EqualFold(f.Name, "Host"):
			req.Host = f.Value
		case strings.EqualFold(f.Name, "Content-Length"):
			// derived from the buffered body
		default:
			req.Header.Set(f.Name, f.Value)
		}
	}
	return req, nil
}

// sortedFields flattens h sorted by name, lowercased. Wire order is not
// available from net/http.
func sortedFields(h http.Header) []HeaderField {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]HeaderField, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			fields = append(fields, HeaderField{Name: strings.ToLower(name), Value: v})
		}
	}
	return fields
}

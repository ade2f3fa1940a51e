// Package transport is the connection layer the benchmark drives one request
// at a time. A Connector hands out sessions bound to a fixed peer; a session
// carries exactly one request/response exchange and is strictly sequential:
// header, body, response header, then body chunks until io.EOF.
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Peer identifies the server every session of a run talks to.
type Peer struct {
	Host string
	Port int
	TLS  bool
	SNI  string

	// Insecure skips certificate and hostname verification.
	Insecure bool
}

func (p Peer) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// HeaderField is a single name/value pair. Order is preserved.
type HeaderField struct {
	Name  string
	Value string
}

type RequestHeader struct {
	Method string
	Path   string
	Fields []HeaderField
}

// NewRequestHeader builds a request header, rejecting an invalid method token.
func NewRequestHeader(method, path string, fields []HeaderField) (*RequestHeader, error) {
	if !ValidToken(method) {
		return nil, fmt.Errorf("invalid method %q", method)
	}
	if path == "" {
		path = "/"
	}
	return &RequestHeader{Method: method, Path: path, Fields: fields}, nil
}

// Set replaces the first field with the same (case-insensitive) name, or appends.
func (h *RequestHeader) Set(name, value string) {
	for i := range h.Fields {
		if strings.EqualFold(h.Fields[i].Name, name) {
			h.Fields[i].Value = value
			return
		}
	}
	h.Fields = append(h.Fields, HeaderField{Name: name, Value: value})
}

type ResponseHeader struct {
	Status int
	Reason string
	Fields []HeaderField
}

// Connector produces sessions to a peer. Connection reuse is its concern.
type Connector interface {
	Connect(ctx context.Context, peer Peer) (Session, error)
}

// Session is one request/response exchange.
type Session interface {
	WriteRequestHeader(h *RequestHeader) error
	// WriteRequestBody sends p; end marks the final body write.
	WriteRequestBody(p []byte, end bool) error
	// FinishRequestBody signals that the request carries no (more) body.
	FinishRequestBody() error
	ReadResponseHeader() (*ResponseHeader, error)
	// ReadResponseBody returns the next body chunk, or io.EOF once drained.
	ReadResponseBody() ([]byte, error)
	Close() error
}

// ValidToken reports whether s is a valid HTTP token (method or header name).
func ValidToken(s string) bool {
	return httpguts.ValidHeaderFieldName(s)
}

// ValidValue reports whether s may be used as a header field value.
func ValidValue(s string) bool {
	return httpguts.ValidHeaderFieldValue(s)
}

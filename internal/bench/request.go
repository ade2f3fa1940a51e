package bench

import (
	"strconv"
	"strings"

	"seqbench/internal/transport"
)

const (
	ClientID           = "seqbench/0.1.0"
	DefaultContentType = "application/json"
)

// RequestSpec describes the request sent on every iteration. It is built once
// and never modified; the same body is resent each time.
type RequestSpec struct {
	Method string
	Peer   transport.Peer
	Path   string
	Host   string

	// Headers are raw "Name: Value" lines, applied in order.
	Headers []string

	Body        []byte
	HasBody     bool
	ContentType string
}

// ParseHeader splits a "Name: Value" line on the first colon. ok is false when
// the line has no separator; such lines are skipped without error.
func ParseHeader(raw string) (field transport.HeaderField, ok bool, err error) {
	name, value, found := strings.Cut(raw, ":")
	if !found {
		return transport.HeaderField{}, false, nil
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if !transport.ValidToken(name) {
		return transport.HeaderField{}, true, &HeaderError{Raw: raw, Reason: "invalid header name"}
	}
	if !transport.ValidValue(value) {
		return transport.HeaderField{}, true, &HeaderError{Raw: raw, Reason: "invalid header value"}
	}
	return transport.HeaderField{Name: name, Value: value}, true, nil
}

// DroppedHeaders returns the raw lines ParseHeader would silently skip.
func DroppedHeaders(lines []string) []string {
	var dropped []string
	for _, l := range lines {
		if !strings.Contains(l, ":") {
			dropped = append(dropped, l)
		}
	}
	return dropped
}

// BuildHeader assembles the request header for spec: Host and the client
// identifier first, user headers next, then the body headers.
func BuildHeader(spec *RequestSpec) (*transport.RequestHeader, error) {
	hdr, err := transport.NewRequestHeader(spec.Method, spec.Path, make([]transport.HeaderField, 0, len(spec.Headers)+4))
	if err != nil {
		return nil, err
	}
	hdr.Set("Host", spec.Host)
	hdr.Set("User-Agent", ClientID)

	for _, raw := range spec.Headers {
		f, ok, err := ParseHeader(raw)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		hdr.Set(f.Name, f.Value)
	}

	if spec.HasBody {
		ct := spec.ContentType
		if ct == "" {
			ct = DefaultContentType
		}
		hdr.Set("Content-Length", strconv.Itoa(len(spec.Body)))
		hdr.Set("Content-Type", ct)
	}
	return hdr, nil
}

package target

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ConfigError is a fatal setup problem detected before any request is sent.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Target is the fixed peer every request of a run is sent to.
type Target struct {
	URL  string
	Host string
	Port int
	TLS  bool

	// Path holds the escaped path plus the raw query, if any.
	Path string
	SNI  string
}

var knownPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
	"ftp":   21,
}

// Parse validates raw and derives the peer address, TLS flag and request path.
func Parse(raw string) (*Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Msg: "invalid URL", Err: err}
	}
	if u.Scheme == "" {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid URL %q: missing scheme", raw)}
	}

	host := u.Hostname()
	if host == "" {
		return nil, &ConfigError{Msg: "URL must have a host"}
	}

	port, ok := knownPorts[u.Scheme]
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, &ConfigError{Msg: fmt.Sprintf("invalid port %q", p), Err: err}
		}
		port, ok = n, true
	}
	if !ok {
		return nil, &ConfigError{Msg: "could not determine port"}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return &Target{
		URL:  raw,
		Host: host,
		Port: port,
		TLS:  u.Scheme == "https",
		Path: path,
		SNI:  host,
	}, nil
}

// Addr is the dialable host:port of the peer.
func (t *Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// HostHeader returns the Host header value, omitting the scheme's default port.
func (t *Target) HostHeader() string {
	if (t.TLS && t.Port == 443) || (!t.TLS && t.Port == 80) {
		if ip := net.ParseIP(t.Host); ip != nil && ip.To4() == nil {
			return "[" + t.Host + "]"
		}
		return t.Host
	}
	return t.Addr()
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"seqbench/internal/bench"
	"seqbench/internal/target"
	"seqbench/internal/transport"
)

// Options is everything a run can be configured with, from flags, the config
// file or SEQBENCH_* environment variables.
type Options struct {
	URL         string
	Method      string
	Body        string
	HasBody     bool
	ContentType string
	Insecure    bool

	// Duration in seconds; 0 selects a single diagnostic request.
	Duration int
	// Requests caps the run; 0 means no cap.
	Requests uint64
	Headers  []string
	// Timeout per request in seconds; 0 disables it.
	Timeout int

	OutPrefix string
	TUI       bool
	Verbose   bool
}

// Load reads Options from v. Keys match the long flag names.
func Load(v *viper.Viper) Options {
	return Options{
		URL:         v.GetString("url"),
		Method:      v.GetString("method"),
		Body:        v.GetString("body"),
		HasBody:     v.IsSet("body"),
		ContentType: v.GetString("content-type"),
		Insecure:    v.GetBool("insecure"),
		Duration:    v.GetInt("duration"),
		Requests:    v.GetUint64("requests"),
		Headers:     headerLines(v),
		Timeout:     v.GetInt("timeout"),
		OutPrefix:   v.GetString("out"),
		TUI:         v.GetBool("tui"),
		Verbose:     v.GetBool("verbose"),
	}
}

// headerLines reads the header list. A plain string, as SEQBENCH_HEADER or a
// scalar in the config file gives it, holds one header per line; header
// values may contain spaces and commas, so it is never split on those.
func headerLines(v *viper.Viper) []string {
	raw, ok := v.Get("header").(string)
	if !ok {
		return v.GetStringSlice("header")
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Mode is the kind of run a Plan describes.
type Mode int

const (
	ModeSingle Mode = iota
	ModeBenchmark
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "benchmark"
}

// Plan is a validated, ready-to-run configuration.
type Plan struct {
	Mode    Mode
	Target  *target.Target
	Spec    *bench.RequestSpec
	Policy  bench.Policy
	Timeout time.Duration

	// Dropped lists header lines without a separator; they are ignored.
	Dropped []string
}

// Plan validates o and builds the request spec and termination policy.
// Every returned error is a *target.ConfigError.
func (o Options) Plan() (*Plan, error) {
	if o.URL == "" {
		return nil, &target.ConfigError{Msg: "--url is required"}
	}
	tgt, err := target.Parse(o.URL)
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(o.Method)
	if method == "" {
		method = "GET"
	}
	if !transport.ValidToken(method) {
		return nil, &target.ConfigError{Msg: fmt.Sprintf("invalid method %q", o.Method)}
	}
	if o.Duration < 0 {
		return nil, &target.ConfigError{Msg: fmt.Sprintf("duration must not be negative, got %d", o.Duration)}
	}
	if o.Timeout < 0 {
		return nil, &target.ConfigError{Msg: fmt.Sprintf("timeout must not be negative, got %d", o.Timeout)}
	}

	contentType := o.ContentType
	if contentType == "" {
		contentType = bench.DefaultContentType
	}

	spec := &bench.RequestSpec{
		Method: method,
		Peer: transport.Peer{
			Host:     tgt.Host,
			Port:     tgt.Port,
			TLS:      tgt.TLS,
			SNI:      tgt.SNI,
			Insecure: tgt.TLS && o.Insecure,
		},
		Path:        tgt.Path,
		Host:        tgt.HostHeader(),
		Headers:     append([]string(nil), o.Headers...),
		HasBody:     o.HasBody,
		ContentType: contentType,
	}
	if o.HasBody {
		spec.Body = []byte(o.Body)
	}

	p := &Plan{
		Mode:    ModeSingle,
		Target:  tgt,
		Spec:    spec,
		Timeout: time.Duration(o.Timeout) * time.Second,
		Dropped: bench.DroppedHeaders(o.Headers),
	}
	if o.Duration > 0 {
		p.Mode = ModeBenchmark
		p.Policy = bench.Policy{}.WithTimeLimit(time.Duration(o.Duration) * time.Second)
		if o.Requests > 0 {
			p.Policy = p.Policy.WithRequestLimit(o.Requests)
		}
	}
	return p, nil
}

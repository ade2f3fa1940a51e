package bench

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// BinaryMarker replaces header values that are not printable text.
const BinaryMarker = "<binary>"

// RunSingle performs one diagnostic request and dumps status, headers, body
// and elapsed time to w. A failed request is returned to the caller.
func RunSingle(ctx context.Context, d Diagnoser, spec *RequestSpec, w io.Writer) error {
	resp, err := d.ExecuteDiagnostic(ctx, spec)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Response Status:", statusLine(resp))
	fmt.Fprintln(w, "Response Headers:")
	for _, h := range resp.Headers {
		fmt.Fprintf(w, "  %s: %s\n", h.Name, printableValue(h.Value))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Response Body:")
	fmt.Fprint(w, strings.ToValidUTF8(string(resp.Body), "\uFFFD"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Request completed in: %.3fs (%dms)\n",
		resp.Latency.Seconds(),
		resp.Latency.Milliseconds(),
	)
	return nil
}

// statusLine is the code followed by the reason phrase, when there is one.
func statusLine(resp *Response) string {
	if resp.Reason == "" {
		return strconv.Itoa(resp.Status)
	}
	return strconv.Itoa(resp.Status) + " " + resp.Reason
}

// printableValue returns v if it is visible ASCII (plus space and tab),
// otherwise BinaryMarker.
func printableValue(v string) string {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\t' || (c >= 0x20 && c < 0x7f) {
			continue
		}
		return BinaryMarker
	}
	return v
}

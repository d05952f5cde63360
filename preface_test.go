package http2

import (
	"bufio"
	"bytes"
	"testing"
)

// The client connection preface is a fixed byte string (RFC 7540 Section
// 3.5); servers rely on matching it exactly before any framing begins.
func TestWritePrefaceBytes(t *testing.T) {
	want := "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := WritePreface(bw); err != nil {
		t.Fatal(err)
	}
	bw.Flush()

	if buf.String() != want {
		t.Fatalf("preface mismatch:\ngot:  %q\nwant: %q", buf.String(), want)
	}
}

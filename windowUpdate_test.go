package http2

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWindowUpdateRoundTrip(t *testing.T) {
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(12345)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(7)
	fr.SetBody(wu)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	fr.WriteTo(bw)
	bw.Flush()

	br := bufio.NewReader(&buf)
	got, err := ReadFrameFrom(br)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleaseFrameHeader(got)

	if got.Stream() != 7 {
		t.Fatalf("unexpected stream id: %d", got.Stream())
	}
	if inc := got.Body().(*WindowUpdate).Increment(); inc != 12345 {
		t.Fatalf("unexpected increment: %d", inc)
	}
}

// A zero increment is a framing-level PROTOCOL_ERROR on the stream (or
// connection, when stream 0) that received it (RFC 7540 Section 6.9). The
// frame itself deserializes fine; it's FlowController.ApplyWindowUpdate
// that rejects it, exercised in flowcontrol_test.go.
func TestWindowUpdateZeroIncrementDeserializes(t *testing.T) {
	wu := &WindowUpdate{}
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.payload = append(fr.payload[:0], 0, 0, 0, 0)

	if err := wu.Deserialize(fr); err != nil {
		t.Fatal(err)
	}
	if wu.Increment() != 0 {
		t.Fatalf("expected a zero increment, got %d", wu.Increment())
	}
}

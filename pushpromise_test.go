package http2

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestPushPromiseDeserialize(t *testing.T) {
	pp := &PushPromise{}
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(1) // parent stream; the promised id lives in the payload
	fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	fr.payload = append(fr.payload[:0], 0, 0, 0, 2) // promised stream 2
	fr.payload = append(fr.payload, "hpack-bytes"...)
	fr.length = len(fr.payload)

	if err := pp.Deserialize(fr); err != nil {
		t.Fatal(err)
	}

	if !pp.ended {
		t.Fatal("expected ended to reflect END_HEADERS")
	}
	if pp.Stream() != 2 {
		t.Fatalf("unexpected promised stream id: %d", pp.Stream())
	}
	if string(pp.header) != "hpack-bytes" {
		t.Fatalf("unexpected header fragment: %q", pp.header)
	}
}

// A promised stream ID must be non-zero and even (RFC 7540 Section 5.1.1:
// only the server opens even-numbered streams).
func TestPushPromiseDeserializeRejectsOddPromisedStream(t *testing.T) {
	pp := &PushPromise{}
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(1)
	fr.payload = append(fr.payload[:0], 0, 0, 0, 3) // odd: invalid
	fr.length = len(fr.payload)

	err := pp.Deserialize(fr)
	var connErr *ConnError
	if !errors.As(err, &connErr) || connErr.Code != ProtocolError {
		t.Fatalf("expected a PROTOCOL_ERROR connection error, got %v", err)
	}
}

func TestPushPromiseRoundTripViaFrameHeader(t *testing.T) {
	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetStream(2)
	pp.SetHeader([]byte("fragment"))

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(1)
	fr.SetBody(pp)

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

	if got.Type() != FramePushPromise {
		t.Fatalf("unexpected frame type: %s", got.Type())
	}

	gotPP := got.Body().(*PushPromise)
	if gotPP.Stream() != 2 {
		t.Fatalf("unexpected promised stream id: %d", gotPP.Stream())
	}
	if string(gotPP.header) != "fragment" {
		t.Fatalf("unexpected header fragment: %q", gotPP.header)
	}
}

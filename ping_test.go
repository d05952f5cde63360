package http2

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

func TestPingRoundTripAndAck(t *testing.T) {
	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetCurrentTime()
	ping.SetAck(false)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetBody(ping)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if _, err := fr.WriteTo(bw); err != nil {
		t.Fatal(err)
	}
	bw.Flush()

	if buf.Len() != 9+8 {
		t.Fatalf("unexpected PING frame size: %d", buf.Len())
	}

	br := bufio.NewReader(&buf)
	got, err := ReadFrameFrom(br)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleaseFrameHeader(got)

	gotPing := got.Body().(*Ping)
	if gotPing.IsAck() {
		t.Fatal("expected a non-ack PING")
	}

	time.Sleep(time.Millisecond)
	if elapsed := gotPing.Elapsed(); elapsed <= 0 {
		t.Fatalf("expected a positive elapsed time, got %s", elapsed)
	}
}

func TestPingAckFlagRoundTrips(t *testing.T) {
	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetAck(true)
	ping.SetData([]byte("12345678"))

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetBody(ping)

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

	gotPing := got.Body().(*Ping)
	if !gotPing.IsAck() {
		t.Fatal("expected an ack PING")
	}
	if string(gotPing.Data()) != "12345678" {
		t.Fatalf("unexpected ping payload: %q", gotPing.Data())
	}
}

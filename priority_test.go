package http2

import (
	"bufio"
	"bytes"
	"testing"
)

func TestPriorityRoundTrip(t *testing.T) {
	pry := AcquireFrame(FramePriority).(*Priority)
	pry.SetStream(3)
	pry.SetWeight(200)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(5)
	fr.SetBody(pry)

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

	gotPry := got.Body().(*Priority)
	if gotPry.Stream() != 3 {
		t.Fatalf("unexpected dependency stream id: %d", gotPry.Stream())
	}
	if gotPry.Weight() != 200 {
		t.Fatalf("unexpected weight: %d", gotPry.Weight())
	}
}

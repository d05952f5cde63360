package http2

import (
	"errors"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
)

// newTestConn builds a Conn wired to one end of an in-memory pipe, with the
// other end drained in the background so writeRequest's flush never blocks.
func newTestConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	c := NewConn(client, ConnOpts{})
	c.serverS.SetMaxStreams(2)
	c.serverS.SetMaxWindowSize(1 << 20)
	return c, server
}

func newTestRequest(host, path string) *Ctx {
	req := fasthttp.AcquireRequest()
	req.SetRequestURI(path)
	req.URI().SetHost(host)
	req.URI().SetScheme("https")
	req.Header.SetMethod("GET")

	res := fasthttp.AcquireResponse()
	return AcquireCtx(req, res)
}

func TestWriteRequestAssignsMonotonicOddStreamIDs(t *testing.T) {
	c, _ := newTestConn(t)

	r1 := newTestRequest("example.com", "/one")
	id1, err := c.writeRequest(r1)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != 1 {
		t.Fatalf("expected the first client stream id to be 1, got %d", id1)
	}

	r2 := newTestRequest("example.com", "/two")
	id2, err := c.writeRequest(r2)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != 3 {
		t.Fatalf("expected the second client stream id to be 3, got %d", id2)
	}
}

func TestCanOpenStreamRespectsMaxConcurrentStreams(t *testing.T) {
	c, _ := newTestConn(t)

	for i := 0; i < 2; i++ {
		if !c.CanOpenStream() {
			t.Fatalf("expected to be able to open stream %d of 2", i+1)
		}
		if _, err := c.writeRequest(newTestRequest("example.com", "/")); err != nil {
			t.Fatal(err)
		}
	}

	if c.CanOpenStream() {
		t.Fatal("expected CanOpenStream to be false once at the concurrency limit")
	}
	if _, err := c.writeRequest(newTestRequest("example.com", "/")); err != ErrNotAvailableStreams {
		t.Fatalf("expected ErrNotAvailableStreams, got %v", err)
	}
}

func TestReadStreamWindowUpdateZeroIncrementIsStreamError(t *testing.T) {
	c, _ := newTestConn(t)
	r := newTestRequest("example.com", "/")
	id, err := c.writeRequest(r)
	if err != nil {
		t.Fatal(err)
	}

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(0)
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(id)
	fr.SetBody(wu)

	err = c.readStream(fr, r)

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected a *StreamError, got %v (%T)", err, err)
	}
	if streamErr.Code != ProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", streamErr.Code)
	}

	// The connection itself must stay up: this is scoped to the stream.
	if c.streams.Get(id) == nil {
		t.Fatal("a stream-scoped error must not remove the stream from readStream alone")
	}
}

func TestReadStreamWindowUpdateAppliesIncrement(t *testing.T) {
	c, _ := newTestConn(t)
	r := newTestRequest("example.com", "/")
	id, err := c.writeRequest(r)
	if err != nil {
		t.Fatal(err)
	}

	stream := c.streams.Get(id)
	stream.ConsumeSendWindow(100)
	before := stream.SendWindow()

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(100)
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(id)
	fr.SetBody(wu)

	if err := c.readStream(fr, r); err != nil {
		t.Fatal(err)
	}
	if after := stream.SendWindow(); after != before+100 {
		t.Fatalf("expected the stream's send window to grow by 100: before=%d after=%d", before, after)
	}
}

func TestWriteDataParksRemainderWhenBlockedOnConnectionWindow(t *testing.T) {
	c, _ := newTestConn(t)
	// One full MAX_FRAME_SIZE chunk fits; the window is then exhausted,
	// so the trailing 50 bytes (a second, smaller chunk) must park.
	c.connFlow = NewFlowController(defaultMaxFrameSize)

	stream := NewStream(1, 1<<20, nil)
	c.streams.Insert(stream)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(1)

	body := make([]byte, defaultMaxFrameSize+50)
	if err := c.writeData(fr, stream, body); err != nil {
		t.Fatal(err)
	}

	if len(stream.pendingBody) != 50 {
		t.Fatalf("expected 50 bytes parked, got %d", len(stream.pendingBody))
	}
	if c.connFlow.SendWindow() != 0 {
		t.Fatalf("expected the connection window to be fully consumed, got %d", c.connFlow.SendWindow())
	}

	// A WINDOW_UPDATE frees enough room for the rest.
	if err := c.connFlow.ApplyWindowUpdate(50); err != nil {
		t.Fatal(err)
	}
	c.resumeParkedBodies()

	if len(stream.pendingBody) != 0 {
		t.Fatalf("expected the parked remainder to drain, got %d bytes left", len(stream.pendingBody))
	}
	if c.connFlow.SendWindow() != 0 {
		t.Fatalf("expected the replenished window to be fully consumed again, got %d", c.connFlow.SendWindow())
	}
}

func TestHandleGoAwayRefusesStreamsAboveLastID(t *testing.T) {
	c, _ := newTestConn(t)
	c.serverS.SetMaxStreams(10)

	var ids []uint32
	reqs := map[uint32]*Ctx{}
	for i := 0; i < 4; i++ {
		r := newTestRequest("example.com", "/")
		id, err := c.writeRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		c.reqQueued.Store(id, r)
		reqs[id] = r
		ids = append(ids, id)
	}
	// ids are 1, 3, 5, 7.

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(5)
	ga.SetCode(NoError)
	c.handleGoAway(ga)

	if !c.sawGoAway() {
		t.Fatal("expected the connection to record the GOAWAY")
	}

	for _, id := range []uint32{1, 3, 5} {
		if c.streams.Get(id) == nil {
			t.Fatalf("stream %d at or below last_stream_id must survive", id)
		}
	}

	if c.streams.Get(7) != nil {
		t.Fatal("stream 7 above last_stream_id must be removed")
	}
	select {
	case err := <-reqs[7].Err:
		var streamErr *StreamError
		if !errors.As(err, &streamErr) || streamErr.Code != RefusedStream {
			t.Fatalf("expected stream 7 to fail with REFUSED_STREAM, got %v", err)
		}
	default:
		t.Fatal("expected stream 7's Ctx.Err to be resolved")
	}

	// flushPending is where GOAWAY awareness actually lives (writeRequest
	// itself doesn't check it): a request queued after GOAWAY must sit
	// forever, never reaching the wire.
	blocked := newTestRequest("example.com", "/")
	c.pending = append(c.pending, blocked)
	if err := c.flushPending(); err != nil {
		t.Fatal(err)
	}
	if len(c.pending) != 1 {
		t.Fatalf("expected the post-GOAWAY request to stay queued, got %d pending", len(c.pending))
	}
}

func TestCheckHeaderBlockBusyRejectsInterleavedStream(t *testing.T) {
	c, _ := newTestConn(t)
	c.headerBlockStream = 1

	other := AcquireFrameHeader()
	defer ReleaseFrameHeader(other)
	other.SetStream(3)

	var connErr *ConnError
	if err := c.checkHeaderBlockBusy(other); !errors.As(err, &connErr) {
		t.Fatalf("expected a *ConnError for a frame on a different stream, got %v", err)
	}

	same := AcquireFrameHeader()
	defer ReleaseFrameHeader(same)
	same.SetStream(1)
	if err := c.checkHeaderBlockBusy(same); err != nil {
		t.Fatalf("a frame on the open header block's own stream must pass: %v", err)
	}

	c.headerBlockStream = 0
	if err := c.checkHeaderBlockBusy(other); err != nil {
		t.Fatalf("no header block open means nothing is busy: %v", err)
	}
}

func TestApplyServerSettingsResizesOpenStreamWindows(t *testing.T) {
	c, _ := newTestConn(t)

	_, err := c.writeRequest(newTestRequest("example.com", "/"))
	if err != nil {
		t.Fatal(err)
	}

	st := &Stream{}
	c.streams.Each(func(s *Stream) { st = s })
	before := st.SendWindow()

	update := &Settings{}
	update.SetMaxWindowSize(uint32(before) + 500)
	c.applyServerSettings(update)

	if after := st.SendWindow(); after != before+500 {
		t.Fatalf("expected the open stream's window to shift by the delta: before=%d after=%d", before, after)
	}
}

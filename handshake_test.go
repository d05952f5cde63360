package http2

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"
)

// TestHandshakeExchangesPrefaceAndSettings drives Conn.Handshake against an
// in-memory pipe standing in for the TLS connection Dialer.tryDial would
// otherwise produce, and plays the server side of RFC 7540 Section 3.5's
// preface/SETTINGS exchange by hand.
func TestHandshakeExchangesPrefaceAndSettings(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- serveHandshake(server)
	}()

	c := NewConn(client, ConnOpts{DisablePingChecking: true})
	if err := c.Handshake(); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	defer c.Close()

	select {
	case err := <-serverDone:
		if err != nil {
			t.Fatalf("fake server side failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the fake server side")
	}

	if c.serverS.MaxStreams() != 42 {
		t.Fatalf("expected the negotiated MAX_CONCURRENT_STREAMS to be 42, got %d", c.serverS.MaxStreams())
	}
}

// serveHandshake plays the server half of the handshake: read the preface,
// read the client's SETTINGS and WINDOW_UPDATE, send our own SETTINGS, and
// read the client's SETTINGS ACK.
func serveHandshake(conn net.Conn) error {
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	preface := make([]byte, len(ClientPreface))
	if _, err := io.ReadFull(br, preface); err != nil {
		return err
	}
	if string(preface) != string(ClientPreface) {
		return errPrefaceMismatch
	}

	fr, err := ReadFrameFrom(br)
	if err != nil {
		return err
	}
	if fr.Type() != FrameSettings {
		return errUnexpectedFrame
	}
	ReleaseFrameHeader(fr)

	fr, err = ReadFrameFrom(br)
	if err != nil {
		return err
	}
	if fr.Type() != FrameWindowUpdate {
		return errUnexpectedFrame
	}
	ReleaseFrameHeader(fr)

	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetMaxStreams(42)
	st.SetMaxWindowSize(1 << 20)

	respFr := AcquireFrameHeader()
	respFr.SetBody(st)
	if _, err := respFr.WriteTo(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	ReleaseFrameHeader(respFr)

	fr, err = ReadFrameFrom(br)
	if err != nil {
		return err
	}
	defer ReleaseFrameHeader(fr)
	if fr.Type() != FrameSettings || !fr.Body().(*Settings).IsAck() {
		return errUnexpectedFrame
	}

	return nil
}

type handshakeTestErr string

func (e handshakeTestErr) Error() string { return string(e) }

const (
	errPrefaceMismatch = handshakeTestErr("preface mismatch")
	errUnexpectedFrame = handshakeTestErr("unexpected frame in handshake")
)

package http2

import "time"

// Event is a connection-scoped notification that doesn't belong to any
// single pending request: a server push offer, a GOAWAY, a PING
// round-trip, or the connection finally going away. Per-stream
// HEADERS/DATA instead complete or fail the Ctx.Err channel Conn.Write
// handed back, matching how the teacher's request/response plumbing
// already works.
type Event interface {
	isEvent()
}

// PushPromiseEvent reports a server-initiated stream. The client may
// either read it like any other response (it will arrive via a Ctx it
// registers with AdoptPush) or cancel it immediately with Conn.Cancel.
type PushPromiseEvent struct {
	ParentStreamID   uint32
	PromisedStreamID uint32
	Headers          []*HeaderField
}

func (PushPromiseEvent) isEvent() {}

// GoAwayEvent reports that the peer is shutting the connection down.
// Streams at or below LastStreamID completed or are still in flight and
// may finish; everything above it was never processed and is safe to
// retry on a new connection.
type GoAwayEvent struct {
	LastStreamID uint32
	Code         ErrorCode
	Debug        []byte
}

func (GoAwayEvent) isEvent() {}

// PingAckEvent reports a completed PING round trip.
type PingAckEvent struct {
	RTT time.Duration
}

func (PingAckEvent) isEvent() {}

// ConnectionClosedEvent is the last event sent on a Conn's event channel,
// which is then closed. Like every event, it is dropped if the channel is
// full when it is sent.
type ConnectionClosedEvent struct {
	Err error
}

func (ConnectionClosedEvent) isEvent() {}

package http2

// StreamState is a stream's position in the RFC 7540 Section 5.1 state
// machine. The client only ever drives streams it opened, or that the
// server pushes (idle -> reserved(remote)).
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReservedLocal
	StreamStateReservedRemote
	StreamStateOpen
	StreamStateHalfClosedLocal
	StreamStateHalfClosedRemote
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "idle"
	case StreamStateReservedLocal:
		return "reserved(local)"
	case StreamStateReservedRemote:
		return "reserved(remote)"
	case StreamStateOpen:
		return "open"
	case StreamStateHalfClosedLocal:
		return "half_closed(local)"
	case StreamStateHalfClosedRemote:
		return "half_closed(remote)"
	case StreamStateClosed:
		return "closed"
	}

	return "unknown"
}

// Stream tracks everything the connection engine needs to know about one
// HTTP/2 stream: its state, its own flow-control window, and the exchange
// it belongs to.
type Stream struct {
	id    uint32
	state StreamState

	flow *FlowController

	// endHeadersSeen/endStreamSeen track the two independent
	// end-of-stream signals carried on HEADERS/CONTINUATION and DATA.
	endHeadersSeen bool
	endStreamSeen  bool

	// headerFrag accumulates HPACK bytes across a HEADERS frame and any
	// CONTINUATION frames that follow it, since a single header block can
	// be split arbitrarily (RFC 7540 Section 4.3).
	headerFrag []byte

	// parent is the stream ID this one was PUSH_PROMISEd on, or 0.
	parent uint32

	// adopted marks a pushed stream whose promise has been claimed via
	// Conn.AdoptPush. Until then, frames still flow into a placeholder
	// Ctx so the shared HPACK decoder stays in sync regardless of how
	// long the caller takes to accept or cancel the offer.
	adopted bool

	// pendingBody holds request DATA bytes not yet admitted by flow
	// control. writeData parks the unsent remainder here when the
	// connection or stream send window is exhausted; the write loop
	// resumes draining it as WINDOW_UPDATEs arrive (RFC 7540 Section
	// 6.9's "overflow queue").
	pendingBody []byte

	ctx *Ctx
}

// NewStream creates an idle Stream with the given flow-control window.
func NewStream(id uint32, window int32, ctx *Ctx) *Stream {
	return &Stream{
		id:    id,
		state: StreamStateIdle,
		flow:  NewFlowController(window),
		ctx:   ctx,
	}
}

func (s *Stream) ID() uint32 {
	return s.id
}

func (s *Stream) State() StreamState {
	return s.state
}

func (s *Stream) SetState(state StreamState) {
	s.state = state
}

// Closed reports whether the stream can be forgotten: nothing more will
// arrive or be sent on it.
func (s *Stream) Closed() bool {
	return s.state == StreamStateClosed
}

// AdvanceSendEndStream drives the RFC 7540 Section 5.1 transition that
// follows this endpoint sending a frame with END_STREAM set: open ->
// half_closed(local); half_closed(remote) -> closed. A promised
// (reserved_remote/reserved_local) stream never sends, so this is a no-op
// there.
func (s *Stream) AdvanceSendEndStream() {
	switch s.state {
	case StreamStateOpen:
		s.state = StreamStateHalfClosedLocal
	case StreamStateHalfClosedRemote:
		s.state = StreamStateClosed
	}
}

// AdvanceRecvHeaders drives the transition that follows a HEADERS frame
// arriving from the peer: idle -> open; reserved(remote) ->
// half_closed(local), since a client can only ever receive on a stream the
// server pushed, never send on it (RFC 7540 Section 8.2.1).
func (s *Stream) AdvanceRecvHeaders() {
	switch s.state {
	case StreamStateIdle:
		s.state = StreamStateOpen
	case StreamStateReservedRemote:
		s.state = StreamStateHalfClosedLocal
	}
}

// AdvanceRecvEndStream drives the transition that follows a frame with
// END_STREAM arriving from the peer: open -> half_closed(remote);
// half_closed(local) -> closed.
func (s *Stream) AdvanceRecvEndStream() {
	switch s.state {
	case StreamStateOpen:
		s.state = StreamStateHalfClosedRemote
	case StreamStateHalfClosedLocal:
		s.state = StreamStateClosed
	}
}

// FlowController returns the stream's own send/receive window tracker.
func (s *Stream) FlowController() *FlowController {
	return s.flow
}

func (s *Stream) SendWindow() int32 {
	return s.flow.SendWindow()
}

// ApplySendWindowCheck reports whether n bytes currently fit in the
// stream's send window.
func (s *Stream) ApplySendWindowCheck(n int32) bool {
	return s.flow.CanSend(n)
}

// ApplySendDelta adjusts the send window in response to a peer
// SETTINGS_INITIAL_WINDOW_SIZE change. It can legally go negative (RFC
// 7540 Section 6.9.2). WINDOW_UPDATE increments go through
// FlowController.ApplySendIncrement instead.
func (s *Stream) ApplySendDelta(delta int32) error {
	return s.flow.ApplyInitialWindowDelta(delta)
}

func (s *Stream) ConsumeSendWindow(n int32) {
	s.flow.ConsumeSend(n)
}

func (s *Stream) ConsumeRecvWindow(n int32) {
	s.flow.ConsumeRecv(n)
}

func (s *Stream) ReplenishRecvWindow(n int32) {
	s.flow.Replenish(n)
}

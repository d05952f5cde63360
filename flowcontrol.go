package http2

// FlowController tracks one side of RFC 7540 Section 6.9's flow-control
// windows, at either connection or stream scope: a send window that
// bounds how many DATA bytes may go out before a WINDOW_UPDATE arrives,
// and a receive window that bounds how many DATA bytes the peer may send
// us before we must reply with our own WINDOW_UPDATE.
type FlowController struct {
	initial int32

	sendWindow int32
	recvWindow int32
}

// NewFlowController builds a FlowController whose windows both start at
// initial, the SETTINGS_INITIAL_WINDOW_SIZE in effect when the stream (or
// connection) was created.
func NewFlowController(initial int32) *FlowController {
	return &FlowController{
		initial:    initial,
		sendWindow: initial,
		recvWindow: initial,
	}
}

// CanSend reports whether n bytes of DATA currently fit in the send
// window.
func (fc *FlowController) CanSend(n int32) bool {
	return n <= fc.sendWindow
}

// SendWindow returns the remaining send window.
func (fc *FlowController) SendWindow() int32 {
	return fc.sendWindow
}

// ConsumeSend records that n bytes of DATA were just written.
func (fc *FlowController) ConsumeSend(n int32) {
	fc.sendWindow -= n
}

// ApplyWindowUpdate applies an incoming connection-scoped WINDOW_UPDATE
// increment. A zero increment is a PROTOCOL_ERROR (RFC 7540 Section 6.9);
// overflowing past 2^31-1 is a FLOW_CONTROL_ERROR. Stream-scoped
// WINDOW_UPDATEs use ApplySendIncrement instead, since a malformed one is
// scoped to the stream rather than the whole connection.
func (fc *FlowController) ApplyWindowUpdate(increment int32) error {
	if increment == 0 {
		return NewConnError(ProtocolError, "WINDOW_UPDATE with a zero increment")
	}

	if !fc.ApplySendIncrement(increment) {
		return NewConnError(FlowControlError, "WINDOW_UPDATE overflowed the flow-control window")
	}

	return nil
}

// ApplySendIncrement adds increment to the send window, reporting false if
// doing so would overflow past 2^31-1. It performs no zero-increment check;
// callers that need RFC 7540 Section 6.9's "increment of 0 is an error"
// behavior check that themselves, since the scope of that error (stream vs
// connection) depends on where the WINDOW_UPDATE landed.
func (fc *FlowController) ApplySendIncrement(increment int32) bool {
	next := int64(fc.sendWindow) + int64(increment)
	if next > maxWindowSize {
		return false
	}
	fc.sendWindow = int32(next)
	return true
}

// ApplyInitialWindowDelta shifts the send window by delta, applied when a
// SETTINGS_INITIAL_WINDOW_SIZE change retroactively resizes every open
// stream's window (RFC 7540 Section 6.9.2).
func (fc *FlowController) ApplyInitialWindowDelta(delta int32) error {
	next := int64(fc.sendWindow) + int64(delta)
	if next > maxWindowSize || next < -maxWindowSize {
		return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE change overflowed a stream window")
	}
	fc.sendWindow = int32(next)
	return nil
}

// ConsumeRecv records that n bytes of DATA just arrived.
func (fc *FlowController) ConsumeRecv(n int32) {
	fc.recvWindow -= n
}

// NeedsReplenish reports whether the receive window has drained past half
// of its initial size and, if so, how large a WINDOW_UPDATE to send to
// bring it back to full.
func (fc *FlowController) NeedsReplenish() (increment int32, need bool) {
	if fc.recvWindow >= fc.initial/2 {
		return 0, false
	}
	return fc.initial - fc.recvWindow, true
}

// Replenish applies a WINDOW_UPDATE we just sent to our own bookkeeping.
func (fc *FlowController) Replenish(n int32) {
	fc.recvWindow += n
}

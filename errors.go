package http2

import (
	"errors"
	"fmt"
)

// ErrorCode is one of the HTTP/2 error codes defined by RFC 7540 Section 7.
//
// ErrorCode values travel on the wire inside RST_STREAM and GOAWAY frames.
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	SettingsTimeout    ErrorCode = 0x4
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStream      ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
	ConnectError       ErrorCode = 0xa
	EnhanceYourCalm    ErrorCode = 0xb
	InadequateSecurity ErrorCode = 0xc
	HTTP11Required     ErrorCode = 0xd
)

var errorCodeStrings = [...]string{
	NoError:            "NO_ERROR",
	ProtocolError:      "PROTOCOL_ERROR",
	InternalError:      "INTERNAL_ERROR",
	FlowControlError:   "FLOW_CONTROL_ERROR",
	SettingsTimeout:    "SETTINGS_TIMEOUT",
	StreamClosedError:  "STREAM_CLOSED",
	FrameSizeError:     "FRAME_SIZE_ERROR",
	RefusedStream:      "REFUSED_STREAM",
	CancelError:        "CANCEL",
	CompressionError:   "COMPRESSION_ERROR",
	ConnectError:       "CONNECT_ERROR",
	EnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	InadequateSecurity: "INADEQUATE_SECURITY",
	HTTP11Required:     "HTTP_1_1_REQUIRED",
}

// String returns the RFC 7540 mnemonic for the error code, or a numeric
// fallback for values outside the registry (extension codes are legal on
// the wire and MUST NOT be treated as a parse failure).
func (c ErrorCode) String() string {
	if int(c) < len(errorCodeStrings) && errorCodeStrings[c] != "" {
		return errorCodeStrings[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(0x%x)", uint32(c))
}

// StreamError reports a failure scoped to a single stream. The stream is
// reset with Code; the rest of the connection is unaffected.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Msg      string
}

func (e *StreamError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("stream %d: %s: %s", e.StreamID, e.Code, e.Msg)
	}
	return fmt.Sprintf("stream %d: %s", e.StreamID, e.Code)
}

// NewStreamError builds a StreamError for the given stream and code.
func NewStreamError(streamID uint32, code ErrorCode, msg string) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Msg: msg}
}

// ConnError reports a failure that invalidates the whole connection. The
// caller MUST send GOAWAY with Code and close the transport.
type ConnError struct {
	Code ErrorCode
	Msg  string
}

func (e *ConnError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("connection error: %s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("connection error: %s", e.Code)
}

// NewConnError builds a ConnError for code.
func NewConnError(code ErrorCode, msg string) *ConnError {
	return &ConnError{Code: code, Msg: msg}
}

// NewError keeps parity with the teacher's plain-error constructor for
// callers that only need an error value, not the scope it carries.
func NewError(code ErrorCode, msg string) error {
	return &ConnError{Code: code, Msg: msg}
}

// Sentinel errors surfaced synchronously to local callers (programming
// errors and framing violations that never reach the wire as a typed
// StreamError/ConnError).
var (
	ErrMissingBytes     = errors.New("http2: frame is missing required bytes")
	ErrPayloadExceeds   = errors.New("http2: frame payload exceeds the negotiated maximum size")
	ErrUnknowFrameType  = errors.New("http2: unknown frame type") // not an error per RFC 7540 §4.1, but signals "ignore me" to the caller
	ErrBitOverflow      = errors.New("http2: hpack integer overflow")
	ErrBadPreface       = errors.New("http2: server replied with an unexpected preface")
	ErrClosed           = errors.New("http2: connection is closed")
	ErrHeaderBlockBusy  = errors.New("http2: another stream's header block is still open")
	ErrHeaderListTooBig = errors.New("http2: decoded header list exceeds MAX_HEADER_LIST_SIZE")
	ErrUnknownPush      = errors.New("http2: no offered push stream with that ID is waiting to be adopted")
)

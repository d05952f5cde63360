package http2

import (
	"github.com/flowmux/h2c/http2utils"
)

const FramePushPromise FrameType = 0x5

var _ Frame = &PushPromise{}

// PushPromise https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	pad    bool
	ended  bool
	stream uint32
	header []byte // header block fragment
}

func (pp *PushPromise) Type() FrameType {
	return FramePushPromise
}

func (pp *PushPromise) Reset() {
	pp.pad = false
	pp.ended = false
	pp.stream = 0
	pp.header = pp.header[:0]
}

// Stream returns the promised stream ID carried in the payload (not the
// frame header's own stream ID, which is the parent request's).
func (pp *PushPromise) Stream() uint32 {
	return pp.stream
}

// SetStream sets the promised stream ID this PUSH_PROMISE offers.
func (pp *PushPromise) SetStream(stream uint32) {
	pp.stream = stream & (1<<31 - 1)
}

func (pp *PushPromise) SetHeader(h []byte) {
	pp.header = append(pp.header[:0], h...)
}

func (pp *PushPromise) Write(b []byte) (int, error) {
	n := len(b)
	pp.header = append(pp.header, b...)
	return n, nil
}

func (pp *PushPromise) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		// RFC 7540 Section 6.6: PUSH_PROMISE always rides on the stream
		// it's offered in response to.
		return NewConnError(ProtocolError, "PUSH_PROMISE frame with stream identifier 0")
	}

	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return NewConnError(ProtocolError, err.Error())
		}
	}

	if len(payload) < 4 {
		return NewConnError(FrameSizeError, "PUSH_PROMISE frame too short to carry a promised stream ID")
	}

	pp.stream = http2utils.BytesToUint32(payload) & (1<<31 - 1)
	if pp.stream == 0 || pp.stream%2 != 0 {
		// RFC 7540 Section 5.1.1: only the server opens even-numbered
		// streams, and a promised stream is always server-initiated.
		return NewConnError(ProtocolError, "PUSH_PROMISE promised a non-even stream ID")
	}

	pp.header = append(pp.header, payload[4:]...)
	pp.ended = fr.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(fr *FrameHeader) {
	if pp.ended {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}

	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], pp.stream)
	fr.payload = append(fr.payload, pp.header...)
}

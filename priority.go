package http2

import (
	"github.com/flowmux/h2c/http2utils"
)

const FramePriority FrameType = 0x2

var _ Frame = &Priority{}

// Priority represents the Priority frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	stream uint32
	weight byte
}

func (pry *Priority) Type() FrameType {
	return FramePriority
}

// Reset resets priority fields.
func (pry *Priority) Reset() {
	pry.stream = 0
	pry.weight = 0
}

func (pry *Priority) CopyTo(p *Priority) {
	p.stream = pry.stream
	p.weight = pry.weight
}

// Stream returns the Priority frame stream.
func (pry *Priority) Stream() uint32 {
	return pry.stream
}

// SetStream sets the Priority frame stream.
func (pry *Priority) SetStream(stream uint32) {
	pry.stream = stream & (1<<31 - 1)
}

// Weight returns the Priority frame weight.
func (pry *Priority) Weight() byte {
	return pry.weight
}

// SetWeight sets the Priority frame weight.
func (pry *Priority) SetWeight(w byte) {
	pry.weight = w
}

func (pry *Priority) Deserialize(fr *FrameHeader) (err error) {
	if fr.Stream() == 0 {
		// RFC 7540 Section 6.3: PRIORITY always belongs to a stream.
		return NewConnError(ProtocolError, "PRIORITY frame with stream identifier 0")
	}

	if len(fr.payload) != 5 {
		// A fixed-length frame: PRIORITY doesn't carry a header block or
		// touch connection-wide state, so a bad length is scoped to the
		// stream alone, not the whole connection (RFC 7540 Section 4.2).
		return NewStreamError(fr.Stream(), FrameSizeError, "PRIORITY frame payload must be 5 octets")
	}

	pry.stream = http2utils.BytesToUint32(fr.payload) & (1<<31 - 1)
	pry.weight = fr.payload[4]

	return nil
}

func (pry *Priority) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], pry.stream)
	fr.payload = append(fr.payload, pry.weight)
}

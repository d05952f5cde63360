package http2

import (
	"github.com/flowmux/h2c/http2utils"
)

const FrameSettings FrameType = 0x4

var _ Frame = &Settings{}

// Setting identifiers, RFC 7540 Section 6.5.2.
const (
	settingHeaderTableSize      uint16 = 0x1
	settingEnablePush           uint16 = 0x2
	settingMaxConcurrentStreams uint16 = 0x3
	settingInitialWindowSize    uint16 = 0x4
	settingMaxFrameSize         uint16 = 0x5
	settingMaxHeaderListSize    uint16 = 0x6
)

// Defaults from RFC 7540 Section 6.5.2 / 11.3.
const (
	defaultHeaderTableSize   = 4096
	defaultConcurrentStreams = 100
	defaultWindowSize        = 1<<16 - 1
	defaultMaxFrameSize      = 1 << 14

	maxWindowSize = 1<<31 - 1
	maxFrameSize  = 1<<24 - 1
)

// present bits, tracking which settings a given SETTINGS frame actually
// carried: RFC 7540 only lets the parameters that are present change
// state, everything else must be left untouched.
const (
	presentHeaderTableSize = 1 << iota
	presentEnablePush
	presentMaxConcurrentStreams
	presentInitialWindowSize
	presentMaxFrameSize
	presentMaxHeaderListSize
)

// Settings represents a SETTINGS frame (RFC 7540 Section 6.5) plus the
// client/server state it negotiates.
type Settings struct {
	ack     bool
	present uint8

	headerTableSize   uint32
	enablePush        bool
	maxStreams        uint32
	maxWindow         uint32
	maxFrameSz        uint32
	maxHeaderListSize uint32
}

func (st *Settings) Type() FrameType {
	return FrameSettings
}

func (st *Settings) Reset() {
	st.ack = false
	st.present = 0
	st.headerTableSize = 0
	st.enablePush = false
	st.maxStreams = 0
	st.maxWindow = 0
	st.maxFrameSz = 0
	st.maxHeaderListSize = 0
}

// CopyTo copies every field, including the present bitmask, to st2.
func (st *Settings) CopyTo(st2 *Settings) {
	*st2 = *st
}

// Apply merges only the parameters present on st into dst, leaving the
// rest of dst untouched, per RFC 7540 Section 6.5.3.
func (st *Settings) Apply(dst *Settings) {
	if st.present&presentHeaderTableSize != 0 {
		dst.headerTableSize = st.headerTableSize
	}
	if st.present&presentEnablePush != 0 {
		dst.enablePush = st.enablePush
	}
	if st.present&presentMaxConcurrentStreams != 0 {
		dst.maxStreams = st.maxStreams
	}
	if st.present&presentInitialWindowSize != 0 {
		dst.maxWindow = st.maxWindow
	}
	if st.present&presentMaxFrameSize != 0 {
		dst.maxFrameSz = st.maxFrameSz
	}
	if st.present&presentMaxHeaderListSize != 0 {
		dst.maxHeaderListSize = st.maxHeaderListSize
	}
}

func (st *Settings) IsAck() bool {
	return st.ack
}

func (st *Settings) SetAck(ack bool) {
	st.ack = ack
}

func (st *Settings) HeaderTableSize() uint32 {
	if st.headerTableSize == 0 && st.present&presentHeaderTableSize == 0 {
		return defaultHeaderTableSize
	}
	return st.headerTableSize
}

func (st *Settings) SetHeaderTableSize(n uint32) {
	st.headerTableSize = n
	st.present |= presentHeaderTableSize
}

func (st *Settings) Push() bool {
	return st.enablePush
}

func (st *Settings) SetPush(enable bool) {
	st.enablePush = enable
	st.present |= presentEnablePush
}

func (st *Settings) MaxStreams() uint32 {
	if st.maxStreams == 0 && st.present&presentMaxConcurrentStreams == 0 {
		return defaultConcurrentStreams
	}
	return st.maxStreams
}

func (st *Settings) SetMaxStreams(n uint32) {
	st.maxStreams = n
	st.present |= presentMaxConcurrentStreams
}

// MaxWindowSize returns the negotiated SETTINGS_INITIAL_WINDOW_SIZE.
func (st *Settings) MaxWindowSize() uint32 {
	if st.maxWindow == 0 && st.present&presentInitialWindowSize == 0 {
		return defaultWindowSize
	}
	return st.maxWindow
}

func (st *Settings) SetMaxWindowSize(n uint32) {
	if n > maxWindowSize {
		n = maxWindowSize
	}
	st.maxWindow = n
	st.present |= presentInitialWindowSize
}

func (st *Settings) MaxFrameSize() uint32 {
	if st.maxFrameSz == 0 && st.present&presentMaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return st.maxFrameSz
}

func (st *Settings) SetMaxFrameSize(n uint32) {
	st.maxFrameSz = n
	st.present |= presentMaxFrameSize
}

// MaxHeaderListSize returns the advertised SETTINGS_MAX_HEADER_LIST_SIZE,
// or 0 if the peer never sent one (meaning "unbounded").
func (st *Settings) MaxHeaderListSize() uint32 {
	return st.maxHeaderListSize
}

func (st *Settings) SetMaxHeaderListSize(n uint32) {
	st.maxHeaderListSize = n
	st.present |= presentMaxHeaderListSize
}

func (st *Settings) Deserialize(frh *FrameHeader) error {
	if frh.Flags().Has(FlagAck) {
		st.ack = true
		return nil
	}

	payload := frh.payload
	if len(payload)%6 != 0 {
		return ErrMissingBytes
	}

	for len(payload) > 0 {
		id := uint16(payload[0])<<8 | uint16(payload[1])
		val := http2utils.BytesToUint32(payload[2:6])
		payload = payload[6:]

		switch id {
		case settingHeaderTableSize:
			st.SetHeaderTableSize(val)
		case settingEnablePush:
			st.SetPush(val == 1)
		case settingMaxConcurrentStreams:
			st.SetMaxStreams(val)
		case settingInitialWindowSize:
			if val > maxWindowSize {
				return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE too large")
			}
			st.SetMaxWindowSize(val)
		case settingMaxFrameSize:
			if val < defaultMaxFrameSize || val > maxFrameSize {
				return NewConnError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
			}
			st.SetMaxFrameSize(val)
		case settingMaxHeaderListSize:
			st.SetMaxHeaderListSize(val)
		default:
			// unknown settings are ignored, RFC 7540 Section 6.5.2
		}
	}

	return nil
}

func (st *Settings) Serialize(frh *FrameHeader) {
	if st.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
		frh.payload = frh.payload[:0]
		return
	}

	payload := frh.payload[:0]
	if st.present&presentHeaderTableSize != 0 {
		payload = appendSetting(payload, settingHeaderTableSize, st.headerTableSize)
	}
	if st.present&presentEnablePush != 0 {
		v := uint32(0)
		if st.enablePush {
			v = 1
		}
		payload = appendSetting(payload, settingEnablePush, v)
	}
	if st.present&presentMaxConcurrentStreams != 0 {
		payload = appendSetting(payload, settingMaxConcurrentStreams, st.maxStreams)
	}
	if st.present&presentInitialWindowSize != 0 {
		payload = appendSetting(payload, settingInitialWindowSize, st.maxWindow)
	}
	if st.present&presentMaxFrameSize != 0 {
		payload = appendSetting(payload, settingMaxFrameSize, st.maxFrameSz)
	}
	if st.present&presentMaxHeaderListSize != 0 {
		payload = appendSetting(payload, settingMaxHeaderListSize, st.maxHeaderListSize)
	}

	frh.payload = payload
}

func appendSetting(dst []byte, id uint16, val uint32) []byte {
	dst = append(dst, byte(id>>8), byte(id))
	return http2utils.AppendUint32Bytes(dst, val)
}

package http2

import "sync"

// FrameType identifies an HTTP/2 frame's wire type (RFC 7540 Section 6).
// The individual Frame* constants live alongside their concrete type
// (FrameData in data.go, FrameHeaders in headers.go, and so on).
type FrameType uint8

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "Data"
	case FrameHeaders:
		return "Headers"
	case FramePriority:
		return "Priority"
	case FrameResetStream:
		return "RstStream"
	case FrameSettings:
		return "Settings"
	case FramePushPromise:
		return "PushPromise"
	case FramePing:
		return "Ping"
	case FrameGoAway:
		return "GoAway"
	case FrameWindowUpdate:
		return "WindowUpdate"
	case FrameContinuation:
		return "Continuation"
	default:
		return "Unknown"
	}
}

// FrameFlags holds the one-byte flag field carried by every frame header.
// Concrete meaning depends on the frame type; see the Flag* constants in
// frameHeader.go.
type FrameFlags uint8

// Has reports whether f is set.
func (flags FrameFlags) Has(f FrameFlags) bool {
	return flags&f == f
}

// Add returns flags with f set.
func (flags FrameFlags) Add(f FrameFlags) FrameFlags {
	return flags | f
}

// Del returns flags with f cleared.
func (flags FrameFlags) Del(f FrameFlags) FrameFlags {
	return flags &^ f
}

// Frame is implemented by every HTTP/2 frame payload type. FrameHeader
// drives Serialize/Deserialize against its own raw header fields, so a
// Frame implementation only needs to encode/decode its payload.
type Frame interface {
	Type() FrameType
	Reset()
	Serialize(frh *FrameHeader)
	Deserialize(frh *FrameHeader) error
}

var (
	dataPool         = sync.Pool{New: func() interface{} { return &Data{} }}
	headersPool      = sync.Pool{New: func() interface{} { return &Headers{} }}
	priorityPool     = sync.Pool{New: func() interface{} { return &Priority{} }}
	rstStreamPool    = sync.Pool{New: func() interface{} { return &RstStream{} }}
	settingsPool     = sync.Pool{New: func() interface{} { return &Settings{} }}
	pushPromisePool  = sync.Pool{New: func() interface{} { return &PushPromise{} }}
	pingPool         = sync.Pool{New: func() interface{} { return &Ping{} }}
	goAwayPool       = sync.Pool{New: func() interface{} { return &GoAway{} }}
	windowUpdatePool = sync.Pool{New: func() interface{} { return &WindowUpdate{} }}
	continuationPool = sync.Pool{New: func() interface{} { return &Continuation{} }}
)

// AcquireFrame returns a pooled, zeroed Frame implementation for kind.
// Unrecognized kinds return nil; callers must check frh.kind against
// FrameContinuation (the highest type this package understands) first,
// as frameHeader.go's readFrom does.
func AcquireFrame(kind FrameType) Frame {
	switch kind {
	case FrameData:
		return dataPool.Get().(*Data)
	case FrameHeaders:
		return headersPool.Get().(*Headers)
	case FramePriority:
		return priorityPool.Get().(*Priority)
	case FrameResetStream:
		return rstStreamPool.Get().(*RstStream)
	case FrameSettings:
		return settingsPool.Get().(*Settings)
	case FramePushPromise:
		return pushPromisePool.Get().(*PushPromise)
	case FramePing:
		return pingPool.Get().(*Ping)
	case FrameGoAway:
		return goAwayPool.Get().(*GoAway)
	case FrameWindowUpdate:
		return windowUpdatePool.Get().(*WindowUpdate)
	case FrameContinuation:
		return continuationPool.Get().(*Continuation)
	default:
		return nil
	}
}

// ReleaseFrame resets fr and returns it to its type's pool. fr may be nil,
// which happens when a FrameHeader was acquired but never given a body.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}

	fr.Reset()

	switch f := fr.(type) {
	case *Data:
		dataPool.Put(f)
	case *Headers:
		headersPool.Put(f)
	case *Priority:
		priorityPool.Put(f)
	case *RstStream:
		rstStreamPool.Put(f)
	case *Settings:
		settingsPool.Put(f)
	case *PushPromise:
		pushPromisePool.Put(f)
	case *Ping:
		pingPool.Put(f)
	case *GoAway:
		goAwayPool.Put(f)
	case *WindowUpdate:
		windowUpdatePool.Put(f)
	case *Continuation:
		continuationPool.Put(f)
	}
}

package http2

import "github.com/valyala/bytebufferpool"

// payloadPool backs FrameHeader's payload scratch buffer: every frame read
// or written borrows a pooled byte slice instead of growing one tied to a
// single *FrameHeader's lifetime. The teacher pools whole frame/field
// values with sync.Pool everywhere; this generalizes the same discipline to
// bytebufferpool's size-bucketed reuse, which is the better fit for a
// buffer that ranges from a few bytes (RST_STREAM) to SETTINGS_MAX_FRAME_SIZE
// (DATA).
var payloadPool bytebufferpool.Pool

// acquirePayloadBuf returns a pooled scratch buffer, truncated to zero
// length and ready to be grown by the caller.
func acquirePayloadBuf() *bytebufferpool.ByteBuffer {
	return payloadPool.Get()
}

// releasePayloadBuf syncs buf's backing slice with whatever the FrameHeader
// grew payload to (so the pool keeps the larger capacity around for reuse)
// and returns it to the pool.
func releasePayloadBuf(buf *bytebufferpool.ByteBuffer, payload []byte) {
	buf.B = payload
	payloadPool.Put(buf)
}

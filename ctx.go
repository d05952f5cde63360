package http2

import (
	"github.com/valyala/fasthttp"
)

// Ctx carries one request/response exchange across the write and read
// loops of a Conn. The caller that calls Conn.Write blocks on Err.
type Ctx struct {
	streamID uint32

	Request  *fasthttp.Request
	Response *fasthttp.Response

	// Err receives exactly one value: nil on success, or the error that
	// aborted the stream. It is closed right after.
	Err chan error
}

// AcquireCtx returns a ready-to-use Ctx. The caller owns req/res for the
// lifetime of the exchange; Conn never frees them.
func AcquireCtx(req *fasthttp.Request, res *fasthttp.Response) *Ctx {
	return &Ctx{
		Request:  req,
		Response: res,
		Err:      make(chan error, 1),
	}
}

func (ctx *Ctx) SetStream(sid uint32) {
	ctx.streamID = sid
}

func (ctx *Ctx) Stream() uint32 {
	return ctx.streamID
}

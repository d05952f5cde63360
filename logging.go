package http2

import (
	"io"
	"os"
)

// logWriter is where the connection writes diagnostic lines it has no
// better way to surface: decode failures on frames nobody is waiting on,
// dropped events, and the like. Request-scoped errors always go back
// through a Ctx's Err channel instead.
var logWriter io.Writer = os.Stderr

package http2

import (
	"bufio"
	"time"
)

// ClientPreface is the connection preface a client must send before any
// other bytes, RFC 7540 Section 3.5.
var ClientPreface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// DefaultPingInterval is used when ConnOpts.PingInterval is zero.
const DefaultPingInterval = 15 * time.Second

// maxUnackedPings is how many outstanding, un-acked PINGs the client
// tolerates before assuming the peer is gone.
const maxUnackedPings = 3

// defaultSettingsAckTimeout bounds how long the client waits for the peer
// to acknowledge the initial SETTINGS frame (RFC 7540 Section 6.5.3)
// before giving up on the connection.
const defaultSettingsAckTimeout = 10 * time.Second

// WritePreface writes the client connection preface to bw. It does not
// flush.
func WritePreface(bw *bufio.Writer) error {
	_, err := bw.Write(ClientPreface)
	return err
}

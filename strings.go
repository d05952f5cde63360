package http2

// Pseudo-header and common request-header names the write path builds
// requests out of, kept as package vars (not consts) so they can be passed
// directly to []byte-taking HeaderField setters without an allocation at
// each call site.
var (
	StringPath          = []byte(":path")
	StringStatus        = []byte(":status")
	StringAuthority     = []byte(":authority")
	StringScheme        = []byte(":scheme")
	StringMethod        = []byte(":method")
	StringContentLength = []byte("content-length")
	StringContentType   = []byte("content-type")
	StringUserAgent     = []byte("user-agent")
	StringGET           = []byte("GET")
)

// ToLower lowercases b in place using HPACK's required lowercase header
// names (RFC 7540 Section 8.1.2) and returns it.
func ToLower(b []byte) []byte {
	for i := range b {
		b[i] |= 32
	}

	return b
}

// H2TLSProto is the protocol ID negotiated via ALPN (RFC 7540 Section 3.3).
// Cleartext "prior knowledge" and h2c upgrade are not supported by this
// client, so there is no corresponding "h2c" constant here.
const H2TLSProto = "h2"

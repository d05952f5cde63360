package http2

import (
	"crypto/tls"
	"errors"
	"net"
	"time"
)

// ErrServerSupport indicates the server's TLS handshake didn't negotiate h2.
var ErrServerSupport = errors.New("server doesn't support HTTP/2")

// ErrNotAvailableStreams indicates the connection has hit
// SETTINGS_MAX_CONCURRENT_STREAMS and cannot open a new one right now.
var ErrNotAvailableStreams = errors.New("ran out of available streams")

// ClientOpts configures a Client.
type ClientOpts struct {
	// OnRTT is called after every PING round trip measurement.
	OnRTT func(time.Duration)
	// PingInterval overrides DefaultPingInterval.
	PingInterval time.Duration
	// MaxHeaderListSize bounds decoded header block size; 0 is unbounded.
	MaxHeaderListSize uint32
}

// configureDialer fills in a TLS config that advertises h2 over ALPN,
// deriving the SNI server name from Addr when the caller didn't set one.
func configureDialer(d *Dialer) {
	if d.TLSConfig == nil {
		d.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		}
	}

	tlsConfig := d.TLSConfig

	if len(tlsConfig.ServerName) == 0 {
		host, _, err := net.SplitHostPort(d.Addr)
		if err != nil {
			host = d.Addr
		}
		tlsConfig.ServerName = host
	}

	for _, proto := range tlsConfig.NextProtos {
		if proto == H2TLSProto {
			return
		}
	}
	tlsConfig.NextProtos = append(tlsConfig.NextProtos, H2TLSProto)
}

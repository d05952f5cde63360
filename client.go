package http2

import (
	"sync"

	"github.com/valyala/fasthttp"
)

// Client is a reconnecting HTTP/2 client bound to a single address. It is
// the package's main external entry point: Dial/Conn give low-level
// access to one connection, Client adds the reconnect-on-disconnect
// policy a long-lived fasthttp-style client needs.
type Client struct {
	dialer *Dialer
	opts   ConnOpts

	mu   sync.Mutex
	conn *Conn
}

// NewClient returns a Client that dials addr on demand.
func NewClient(addr string, opts ClientOpts) *Client {
	connOpts := ConnOpts{
		PingInterval:      opts.PingInterval,
		OnRTT:             opts.OnRTT,
		MaxHeaderListSize: opts.MaxHeaderListSize,
	}

	cl := &Client{
		dialer: &Dialer{Addr: addr, PingInterval: opts.PingInterval},
		opts:   connOpts,
	}
	cl.opts.OnDisconnect = func(c *Conn) {
		cl.mu.Lock()
		if cl.conn == c {
			cl.conn = nil
		}
		cl.mu.Unlock()
	}

	return cl
}

func (cl *Client) getConn() (*Conn, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.conn != nil && !cl.conn.Closed() {
		return cl.conn, nil
	}

	c, err := cl.dialer.Dial(cl.opts)
	if err != nil {
		return nil, err
	}

	cl.conn = c
	return c, nil
}

// Do sends req and blocks until res is fully populated or an error occurs.
func (cl *Client) Do(req *fasthttp.Request, res *fasthttp.Response) error {
	conn, err := cl.getConn()
	if err != nil {
		return err
	}

	ctx := AcquireCtx(req, res)
	conn.Write(ctx)

	return <-ctx.Err
}

// Close closes the underlying connection, if any.
func (cl *Client) Close() error {
	cl.mu.Lock()
	c := cl.conn
	cl.conn = nil
	cl.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

package http2

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// ConnOpts defines the connection options.
type ConnOpts struct {
	// PingInterval defines the interval in which the client will ping the server.
	//
	// An interval of 0 will make the library use DefaultPingInterval. Ping
	// intervals can't be disabled, only the disconnect-on-timeout check can.
	PingInterval time.Duration
	// DisablePingChecking disables closing the connection when too many
	// PINGs go unacknowledged.
	DisablePingChecking bool
	// OnDisconnect is a callback that fires when the Conn disconnects.
	OnDisconnect func(c *Conn)
	// OnRTT is called after every PING round trip completes.
	OnRTT func(time.Duration)
	// MaxHeaderListSize bounds the total decoded size (RFC 7541 Section
	// 4.1) of any single header block. Zero means unbounded.
	MaxHeaderListSize uint32
}

// Handshake performs an HTTP/2 handshake: it writes the client preface (if
// preface is true), a SETTINGS frame, and, when maxWin is positive, a
// connection-level WINDOW_UPDATE whose increment is maxWin.
func Handshake(preface bool, bw *bufio.Writer, st *Settings, maxWin int32) error {
	if preface {
		if err := WritePreface(bw); err != nil {
			return err
		}
	}

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	st2 := &Settings{}
	st.CopyTo(st2)

	fr.SetBody(st2)

	_, err := fr.WriteTo(bw)
	if err != nil {
		return err
	}

	if maxWin > 0 {
		fr = AcquireFrameHeader()
		wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
		wu.SetIncrement(int(maxWin))

		fr.SetBody(wu)

		if _, err = fr.WriteTo(bw); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Conn represents a raw HTTP/2 connection over TLS + TCP.
type Conn struct {
	c net.Conn

	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACK
	dec *HPACK

	nextID uint32

	connFlow *FlowController
	streams  *StreamTable

	current Settings
	serverS Settings

	maxHeaderListSize uint32

	reqQueued sync.Map

	// pending is the FIFO of requests blocked on admission: either
	// SETTINGS_MAX_CONCURRENT_STREAMS was reached, or the connection has
	// received a GOAWAY. Only the write loop touches it.
	pending []*Ctx

	// drainPending is signaled (non-blocking) whenever a stream closes or
	// a WINDOW_UPDATE lands, so the write loop knows to retry admitting
	// pending requests and resuming any parked request bodies.
	drainPending chan struct{}

	// goawayReceived and goawayLastID record a GOAWAY from the peer
	// (RFC 7540 Section 6.8); both goroutines read goawayReceived, so it
	// is accessed atomically.
	goawayReceived uint64
	goawayLastID   uint32

	// headerBlockStream is the stream whose HEADERS/PUSH_PROMISE is still
	// awaiting its terminating CONTINUATION (END_HEADERS), or 0 if none.
	// RFC 7540 Section 4.3 forbids any other stream's frames from
	// appearing on the wire while one is open.
	headerBlockStream uint32

	in     chan *Ctx
	out    chan *FrameHeader
	events chan Event

	pingInterval time.Duration

	unacks      int
	disableAcks bool
	settingsAck bool

	// settingsAckDeadline is set once, right after the initial SETTINGS
	// frame is flushed in Handshake, and never touched again: writeLoop
	// only reads it to detect a peer that never acknowledges.
	settingsAckDeadline time.Time

	lastErr      error
	onDisconnect func(*Conn)
	onRTT        func(time.Duration)

	closed uint64
}

// NewConn returns a new HTTP/2 connection. Call Handshake before using it.
func NewConn(c net.Conn, opts ConnOpts) *Conn {
	nc := &Conn{
		c:                 c,
		br:                bufio.NewReaderSize(c, 4096),
		bw:                bufio.NewWriterSize(c, defaultMaxFrameSize),
		enc:               AcquireHPACK(),
		dec:               AcquireHPACK(),
		nextID:            1,
		connFlow:          NewFlowController(1 << 20),
		streams:           NewStreamTable(),
		in:                make(chan *Ctx, 128),
		out:               make(chan *FrameHeader, 128),
		events:            make(chan Event, 64),
		drainPending:      make(chan struct{}, 1),
		pingInterval:      opts.PingInterval,
		disableAcks:       opts.DisablePingChecking,
		onDisconnect:      opts.OnDisconnect,
		onRTT:             opts.OnRTT,
		maxHeaderListSize: opts.MaxHeaderListSize,
	}

	nc.current.SetMaxWindowSize(1 << 20)
	nc.current.SetPush(false)
	if opts.MaxHeaderListSize > 0 {
		// 0 means "unbounded" and must stay absent from the outgoing
		// SETTINGS frame: advertising SETTINGS_MAX_HEADER_LIST_SIZE=0
		// would tell the server we can't accept any response headers.
		nc.current.SetMaxHeaderListSize(opts.MaxHeaderListSize)
	}

	nc.dec.SetMaxHeaderListSize(opts.MaxHeaderListSize)

	return nc
}

// Events returns the channel of connection-scoped notifications (server
// push offers, GOAWAY, PING round trips). Once the connection is torn
// down a final ConnectionClosedEvent is sent and the channel is closed.
// Sends never block: an event that finds the channel full, including the
// final one, is dropped and logged.
func (c *Conn) Events() <-chan Event {
	return c.events
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		fmt.Fprintf(logWriter, "http2: dropping event, channel full: %T\n", ev)
	}
}

// signalDrain wakes the write loop to retry admitting queued requests and
// resuming any flow-control-parked request bodies. Safe to call from
// either goroutine; never blocks.
func (c *Conn) signalDrain() {
	select {
	case c.drainPending <- struct{}{}:
	default:
	}
}

// sawGoAway reports whether the peer has sent GOAWAY.
func (c *Conn) sawGoAway() bool {
	return atomic.LoadUint64(&c.goawayReceived) == 1
}

// Dialer allows creating HTTP/2 connections by specifying an address and tls configuration.
type Dialer struct {
	// Addr is the server's address in the form: `host:port`.
	Addr string

	// TLSConfig is the tls configuration. If nil, a default one is built on Dial.
	TLSConfig *tls.Config

	// PingInterval defines the interval in which the client will ping the server.
	PingInterval time.Duration
}

func (d *Dialer) tryDial() (net.Conn, error) {
	negotiatesH2 := false
	if d.TLSConfig != nil {
		for _, proto := range d.TLSConfig.NextProtos {
			if proto == H2TLSProto {
				negotiatesH2 = true
				break
			}
		}
	}
	if !negotiatesH2 {
		configureDialer(d)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", d.Addr)
	if err != nil {
		return nil, err
	}

	c, err := net.DialTCP("tcp", nil, tcpAddr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(c, d.TLSConfig)

	if err := tlsConn.Handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}

	if tlsConn.ConnectionState().NegotiatedProtocol != H2TLSProto {
		_ = tlsConn.Close()
		return nil, ErrServerSupport
	}

	return tlsConn, nil
}

// Dial creates an HTTP/2 connection or returns an error.
//
// An expected error is ErrServerSupport.
func (d *Dialer) Dial(opts ConnOpts) (*Conn, error) {
	c, err := d.tryDial()
	if err != nil {
		return nil, err
	}

	if opts.PingInterval == 0 {
		opts.PingInterval = d.PingInterval
	}

	nc := NewConn(c, opts)

	if err = nc.Handshake(); err != nil {
		return nil, err
	}

	return nc, nil
}

// SetOnDisconnect sets the callback that will fire when the HTTP/2 connection is closed.
func (c *Conn) SetOnDisconnect(cb func(*Conn)) {
	c.onDisconnect = cb
}

// LastErr returns the last registered error in case the connection was closed by the server.
func (c *Conn) LastErr() error {
	return c.lastErr
}

// Handshake performs the client side of the HTTP/2 preface/SETTINGS
// exchange (RFC 7540 Section 3.5/6.5) and starts the connection's event
// loops.
func (c *Conn) Handshake() error {
	if err := Handshake(true, c.bw, &c.current, (1<<20)-defaultWindowSize); err != nil {
		_ = c.c.Close()
		return err
	}
	c.settingsAckDeadline = time.Now().Add(defaultSettingsAckTimeout)

	fr, err := ReadFrameFrom(c.br)
	if err != nil {
		_ = c.c.Close()
		return err
	}
	defer ReleaseFrameHeader(fr)

	if fr.Type() != FrameSettings {
		_ = c.c.Close()
		return fmt.Errorf("http2: expected a SETTINGS frame first, got %s", fr.Type())
	}

	st := fr.Body().(*Settings)
	if st.IsAck() {
		_ = c.c.Close()
		return errors.New("http2: server acked settings it was never sent")
	}

	c.applyServerSettings(st)

	ackFr := AcquireFrameHeader()
	stRes := AcquireFrame(FrameSettings).(*Settings)
	stRes.SetAck(true)
	ackFr.SetBody(stRes)

	if _, err = ackFr.WriteTo(c.bw); err == nil {
		err = c.bw.Flush()
	}
	ReleaseFrameHeader(ackFr)

	if err != nil {
		_ = c.Close()
		return err
	}

	go c.writeLoop()
	go c.readLoop()

	return nil
}

func (c *Conn) applyServerSettings(st *Settings) {
	prevWindow := int32(c.serverS.MaxWindowSize())
	st.Apply(&c.serverS)

	if st.present&presentInitialWindowSize != 0 {
		delta := int32(c.serverS.MaxWindowSize()) - prevWindow
		c.streams.Each(func(s *Stream) { s.ApplySendDelta(delta) })
	}
	if st.present&presentHeaderTableSize != 0 {
		c.enc.SetMaxTableSize(int(c.serverS.HeaderTableSize()))
	}
}

// CanOpenStream returns whether the client will be able to open a new stream or not.
func (c *Conn) CanOpenStream() bool {
	return c.streams.CountOpen() < int(c.serverS.MaxStreams())
}

// Closed indicates whether the connection is closed or not.
func (c *Conn) Closed() bool {
	return atomic.LoadUint64(&c.closed) == 1
}

// Close closes the connection gracefully, sending a GOAWAY and then
// closing the underlying TCP connection.
func (c *Conn) Close() error {
	return c.closeWithCode(NoError)
}

// closeCodeFor picks the GOAWAY error code a terminal loop error should be
// reported with: a *ConnError carries its own code (RFC 7540 Section 6.8);
// anything else (EOF, a write-side I/O failure, a local timeout) isn't a
// protocol violation the peer caused, so it closes clean.
func closeCodeFor(err error) ErrorCode {
	var connErr *ConnError
	if errors.As(err, &connErr) {
		return connErr.Code
	}
	return NoError
}

func (c *Conn) closeWithCode(code ErrorCode) error {
	if !atomic.CompareAndSwapUint64(&c.closed, 0, 1) {
		return io.EOF
	}

	close(c.in)

	fr := AcquireFrameHeader()
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(0)
	ga.SetCode(code)
	fr.SetBody(ga)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}
	ReleaseFrameHeader(fr)

	_ = c.c.Close()

	if c.onDisconnect != nil {
		c.onDisconnect(c)
	}

	c.emit(ConnectionClosedEvent{Err: c.lastErr})
	close(c.events)

	return err
}

// Write queues the request to be sent to the server. Check Closed before
// calling this.
func (c *Conn) Write(r *Ctx) {
	c.in <- r
}

// Cancel aborts an in-flight stream with RST_STREAM(CANCEL).
func (c *Conn) Cancel(streamID uint32) {
	c.sendRstStream(streamID, CancelError)
}

// sendRstStream queues an outbound RST_STREAM for streamID with the given
// code. Used both for user-initiated cancellation and for local detection
// of a stream-scoped protocol violation (RFC 7540 Section 5.4.2).
func (c *Conn) sendRstStream(streamID uint32, code ErrorCode) {
	fr := AcquireFrameHeader()
	fr.SetStream(streamID)
	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(code)
	fr.SetBody(rst)
	c.out <- fr
}

// WriteError wraps a fatal write-loop error so callers can still use
// errors.Is/As against the underlying cause.
type WriteError struct {
	err error
}

func (we WriteError) Error() string {
	return fmt.Sprintf("writing error: %s", we.err)
}

func (we WriteError) Unwrap() error {
	return we.err
}

func (we WriteError) Is(target error) bool {
	return errors.Is(we.err, target)
}

func (we WriteError) As(target interface{}) bool {
	return errors.As(we.err, target)
}

func (c *Conn) writeLoop() {
	defer func() { _ = c.closeWithCode(closeCodeFor(c.lastErr)) }()

	if c.pingInterval <= 0 {
		c.pingInterval = DefaultPingInterval
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	var lastErr error

loop:
	for {
		select {
		case r, ok := <-c.in:
			if !ok {
				break loop
			}

			if c.sawGoAway() {
				r.Err <- NewConnError(RefusedStream, "connection received GOAWAY; refusing new streams")
				close(r.Err)
				continue
			}

			// Queue strictly FIFO (RFC 7540 Section 6.9.2's overflow
			// queue, generalized to admission): a request arriving while
			// earlier ones are still parked waits behind them rather than
			// jumping ahead just because a slot happens to be free.
			c.pending = append(c.pending, r)
			if err := c.flushPending(); err != nil {
				lastErr = WriteError{err}
				break loop
			}
		case <-c.drainPending:
			if err := c.flushPending(); err != nil {
				lastErr = WriteError{err}
				break loop
			}
			c.resumeParkedBodies()
		case fr := <-c.out:
			if _, err := fr.WriteTo(c.bw); err == nil {
				if err = c.bw.Flush(); err != nil {
					lastErr = WriteError{err}
					ReleaseFrameHeader(fr)
					break loop
				}
			} else {
				lastErr = WriteError{err}
				ReleaseFrameHeader(fr)
				break loop
			}

			ReleaseFrameHeader(fr)
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				lastErr = WriteError{err}
				break loop
			}
		}

		if !c.disableAcks && c.unacks >= maxUnackedPings {
			lastErr = ErrPingTimeout
			break loop
		}

		if !c.settingsAck && !c.settingsAckDeadline.IsZero() && time.Now().After(c.settingsAckDeadline) {
			lastErr = NewConnError(SettingsTimeout, "peer never acknowledged our SETTINGS frame")
			break loop
		}
	}

	if lastErr == nil {
		lastErr = io.EOF
	}
	c.lastErr = lastErr

	c.reqQueued.Range(func(k, v interface{}) bool {
		r := v.(*Ctx)
		r.Err <- lastErr
		close(r.Err)
		c.reqQueued.Delete(k)
		return true
	})

	for _, r := range c.pending {
		r.Err <- lastErr
		close(r.Err)
	}
	c.pending = nil
}

// flushPending admits as many queued requests as SETTINGS_MAX_CONCURRENT_STREAMS
// currently allows, in FIFO order, stopping as soon as the head of the
// queue can't be admitted (RFC 7540 Section 6.9.2's "next head-of-queue
// cannot be admitted" rule generalizes to admission, not just bytes).
func (c *Conn) flushPending() error {
	for len(c.pending) > 0 && !c.sawGoAway() && c.CanOpenStream() {
		r := c.pending[0]
		c.pending = c.pending[1:]

		uid, err := c.writeRequest(r)
		if err != nil {
			if errors.Is(err, ErrNotAvailableStreams) {
				// CanOpenStream and writeRequest raced against a
				// concurrent stream open; put it back and stop.
				c.pending = append([]*Ctx{r}, c.pending...)
				return nil
			}

			r.Err <- err
			close(r.Err)

			return err
		}

		c.reqQueued.Store(uid, r)
	}

	return nil
}

// resumeParkedBodies retries DATA for every stream whose body was parked
// by writeData after a flow-control block, now that a WINDOW_UPDATE may
// have arrived. A stream closing also wakes it, though closing a stream
// frees no window.
func (c *Conn) resumeParkedBodies() {
	var parked []*Stream
	c.streams.Each(func(s *Stream) {
		if len(s.pendingBody) > 0 {
			parked = append(parked, s)
		}
	})

	for _, stream := range parked {
		fr := AcquireFrameHeader()
		fr.SetStream(stream.id)

		body := stream.pendingBody
		stream.pendingBody = nil

		err := c.writeData(fr, stream, body)
		ReleaseFrameHeader(fr)
		if err != nil {
			c.lastErr = err
			return
		}
	}
}

func (c *Conn) finish(r *Ctx, stream uint32, err error) {
	if s := c.streams.Del(stream); s != nil {
		s.SetState(StreamStateClosed)
	}

	r.Err <- err
	close(r.Err)

	c.reqQueued.Delete(stream)

	// A stream just vacated a concurrency slot: wake the write loop so it
	// can admit anything waiting in the pending FIFO.
	c.signalDrain()

	if c.sawGoAway() && c.streams.Len() == 0 {
		// The peer asked us to wind down and every stream it still
		// intended to process has now terminated (RFC 7540 Section 6.8).
		_ = c.Close()
	}
}

// handleGoAway applies a received GOAWAY (RFC 7540 Section 6.8): streams
// above the peer's last_stream_id were never processed and are failed
// locally with REFUSED_STREAM so the caller can safely retry them on a new
// connection; streams at or below it are left to finish normally. No new
// streams are admitted once this returns.
func (c *Conn) handleGoAway(ga *GoAway) {
	atomic.StoreUint64(&c.goawayReceived, 1)
	c.goawayLastID = ga.Stream()

	c.emit(GoAwayEvent{LastStreamID: ga.Stream(), Code: ga.Code(), Debug: append([]byte(nil), ga.Data()...)})

	for _, id := range c.streams.IDsAbove(ga.Stream()) {
		if ri, ok := c.reqQueued.Load(id); ok {
			r := ri.(*Ctx)
			c.finish(r, id, NewStreamError(id, RefusedStream, "GOAWAY: never processed by the peer"))
		} else {
			c.streams.Del(id)
		}
	}

	c.signalDrain()
}

// checkHeaderBlockBusy enforces RFC 7540 Section 4.3: between a HEADERS or
// PUSH_PROMISE without END_HEADERS and its terminating CONTINUATION, no
// frame on any other stream may appear. fr itself is always let through
// when it belongs to the open block (including its own CONTINUATIONs).
func (c *Conn) checkHeaderBlockBusy(fr *FrameHeader) error {
	if c.headerBlockStream != 0 && c.headerBlockStream != fr.Stream() {
		return NewConnError(ProtocolError, ErrHeaderBlockBusy.Error())
	}
	return nil
}

func (c *Conn) readLoop() {
	defer func() { _ = c.closeWithCode(closeCodeFor(c.lastErr)) }()

	for {
		fr, err := c.readNext()
		if err != nil {
			c.lastErr = err
			break
		}
		if fr == nil {
			continue
		}

		if err := c.checkHeaderBlockBusy(fr); err != nil {
			c.lastErr = err
			ReleaseFrameHeader(fr)
			break
		}

		if ri, ok := c.reqQueued.Load(fr.Stream()); ok {
			r := ri.(*Ctx)

			err := c.readStream(fr, r)
			if err != nil {
				var connErr *ConnError
				if errors.As(err, &connErr) {
					c.finish(r, fr.Stream(), err)
					fmt.Fprintf(logWriter, "http2: stream %d: %s\n", fr.Stream(), err)
					ReleaseFrameHeader(fr)
					break
				}

				var streamErr *StreamError
				if errors.As(err, &streamErr) && fr.Type() != FrameResetStream {
					// Don't echo an RST_STREAM back for one the peer just
					// sent us; otherwise, notify it of the local failure.
					c.sendRstStream(fr.Stream(), streamErr.Code)
				}

				c.finish(r, fr.Stream(), err)
				fmt.Fprintf(logWriter, "http2: stream %d: %s\n", fr.Stream(), err)
			} else if s := c.streams.Get(fr.Stream()); s != nil && s.endStreamSeen {
				c.finish(r, fr.Stream(), nil)
			}
		}

		ReleaseFrameHeader(fr)
	}
}

func (c *Conn) writeRequest(r *Ctx) (uint32, error) {
	if !c.CanOpenStream() {
		return 0, ErrNotAvailableStreams
	}

	req := r.Request
	hasBody := len(req.Body()) != 0

	enc := c.enc

	id := c.nextID
	c.nextID += 2

	stream := NewStream(id, int32(c.serverS.MaxWindowSize()), r)
	stream.SetState(StreamStateOpen)
	c.streams.Insert(stream)
	r.SetStream(id)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(id)

	h := AcquireFrame(FrameHeaders).(*Headers)
	fr.SetBody(h)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.SetBytes(StringAuthority, req.URI().Host())
	enc.AppendHeaderField(h, hf, true)

	hf.SetBytes(StringMethod, req.Header.Method())
	enc.AppendHeaderField(h, hf, true)

	hf.SetBytes(StringPath, req.URI().RequestURI())
	enc.AppendHeaderField(h, hf, true)

	hf.SetBytes(StringScheme, req.URI().Scheme())
	enc.AppendHeaderField(h, hf, true)

	hf.SetBytes(StringUserAgent, req.Header.UserAgent())
	enc.AppendHeaderField(h, hf, true)

	req.Header.VisitAll(func(k, v []byte) {
		if bytes.EqualFold(k, StringUserAgent) {
			return
		}

		hf.SetBytes(ToLower(append([]byte(nil), k...)), v)
		enc.AppendHeaderField(h, hf, false)
	})

	h.SetPadding(false)
	h.SetEndStream(!hasBody)
	h.SetEndHeaders(true)

	_, err := fr.WriteTo(c.bw)
	if err == nil && hasBody {
		ReleaseFrame(h)
		err = c.writeData(fr, stream, req.Body())
	} else if err == nil {
		// The HEADERS frame itself carried END_STREAM.
		stream.AdvanceSendEndStream()
	}

	if err == nil {
		err = c.bw.Flush()
	}

	if err != nil {
		c.lastErr = err
		c.streams.Del(id)
	}

	return id, err
}

// writeData chunks body into DATA frames of at most the peer's
// MAX_FRAME_SIZE, stopping as soon as either the connection or the
// stream's send window can't admit the next chunk. Any unsent remainder
// is parked on stream.pendingBody rather than treated as an error: the
// write loop resumes it once a WINDOW_UPDATE (or a stream closing, which
// frees no window but may still prompt a retry) signals drainPending
// (RFC 7540 Section 6.9's blocked-sender behavior).
func (c *Conn) writeData(fh *FrameHeader, stream *Stream, body []byte) (err error) {
	step := defaultMaxFrameSize

	data := AcquireFrame(FrameData).(*Data)
	fh.SetBody(data)

	i := 0
	for ; i < len(body); i += step {
		n := step
		if i+n > len(body) {
			n = len(body) - i
		}

		if !c.connFlow.CanSend(int32(n)) || !stream.ApplySendWindowCheck(int32(n)) {
			break
		}

		data.SetEndStream(i+n == len(body))
		data.SetPadding(false)
		data.SetData(body[i : i+n])

		if _, err = fh.WriteTo(c.bw); err != nil {
			break
		}

		c.connFlow.ConsumeSend(int32(n))
		stream.ConsumeSendWindow(int32(n))
	}

	if err != nil {
		return err
	}

	if i < len(body) {
		stream.pendingBody = append(stream.pendingBody[:0], body[i:]...)
	} else {
		stream.pendingBody = nil
		// The last DATA frame written carried END_STREAM.
		stream.AdvanceSendEndStream()
	}

	return nil
}

func (c *Conn) readNext() (fr *FrameHeader, err error) {
	for {
		fr, err = ReadFrameFrom(c.br)
		if err == ErrUnknowFrameType {
			// RFC 7540 Section 4.1: frames of an unknown type are
			// discarded (readFrom already skipped the payload).
			continue
		}
		if err != nil {
			return nil, err
		}

		if fr.Stream() != 0 {
			return fr, nil
		}

		switch fr.Type() {
		case FrameSettings:
			st := fr.Body().(*Settings)
			if st.IsAck() {
				c.settingsAck = true
			} else {
				c.applyServerSettings(st)
				c.ackSettings()
			}
		case FrameWindowUpdate:
			wu := fr.Body().(*WindowUpdate)
			if uerr := c.connFlow.ApplyWindowUpdate(int32(wu.Increment())); uerr != nil {
				ReleaseFrameHeader(fr)
				return nil, uerr
			}
			// Capacity may have freed: wake the write loop to retry
			// anything parked in the pending FIFO or on a stream's
			// pendingBody.
			c.signalDrain()
		case FramePing:
			ping := fr.Body().(*Ping)
			if ping.IsAck() {
				c.unacks--
				if c.onRTT != nil {
					c.onRTT(ping.Elapsed())
				}
				c.emit(PingAckEvent{RTT: ping.Elapsed()})
			} else {
				c.handlePing(ping)
			}
		case FrameGoAway:
			ga := fr.Body().(*GoAway)
			c.handleGoAway(ga)
			if c.streams.Len() == 0 {
				// Nothing left to drain: close now rather than wait for
				// a stream event that will never come.
				ReleaseFrameHeader(fr)
				return nil, ga
			}
		}

		ReleaseFrameHeader(fr)
	}
}

// ErrPingTimeout indicates the server stopped answering keepalive pings.
var ErrPingTimeout = errors.New("http2: server is not replying to pings")

func (c *Conn) writePing() error {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetCurrentTime()

	fr.SetBody(ping)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
		if err == nil {
			c.unacks++
		}
	}

	return err
}

func (c *Conn) ackSettings() {
	fr := AcquireFrameHeader()
	stRes := AcquireFrame(FrameSettings).(*Settings)
	stRes.SetAck(true)
	fr.SetBody(stRes)
	c.out <- fr
}

func (c *Conn) handlePing(ping *Ping) {
	fr := AcquireFrameHeader()
	ping.SetAck(true)
	fr.SetBody(ping)
	c.out <- fr
}

// handlePushPromise decodes a PUSH_PROMISE's header block and offers it to
// the user via a PushPromiseEvent. The promised stream is reserved in the
// table immediately (RFC 7540 Section 8.2.1) and its frames are buffered
// into a placeholder response until the caller adopts it with AdoptPush or
// declines it with Cancel.
//
// A header-block decode failure here shares the connection's single HPACK
// decoder with every other stream, so it can't be scoped to just this
// stream (RFC 7540 Section 4.3): it comes back as a *ConnError, same as
// readHeader's. The exception, also as in readHeader, is
// ErrHeaderListTooBig, which comes back as a *StreamError scoped to the
// promised stream.
func (c *Conn) handlePushPromise(parentStream uint32, pp *PushPromise) error {
	promised := pp.stream

	// Register the stream and a placeholder Ctx before the caller ever
	// sees the event: the promised response's HEADERS/DATA can arrive on
	// the wire at any time afterward, and readLoop only dispatches frames
	// for streams present in reqQueued. Buffering into a throwaway
	// response here keeps the shared HPACK decoder advancing in lockstep
	// with the peer no matter how long AdoptPush takes to be called.
	placeholder := AcquireCtx(nil, &fasthttp.Response{})
	placeholder.SetStream(promised)

	stream := NewStream(promised, int32(c.serverS.MaxWindowSize()), placeholder)
	stream.SetState(StreamStateReservedRemote)
	stream.parent = parentStream
	c.streams.Insert(stream)
	c.reqQueued.Store(promised, placeholder)

	fields, err := c.dec.DecodeFull(pp.header)
	if err != nil {
		c.streams.Del(promised)
		c.reqQueued.Delete(promised)
		if errors.Is(err, ErrHeaderListTooBig) {
			return NewStreamError(promised, EnhanceYourCalm, err.Error())
		}
		return NewConnError(CompressionError, err.Error())
	}

	c.emit(PushPromiseEvent{
		ParentStreamID:   parentStream,
		PromisedStreamID: promised,
		Headers:          fields,
	})

	return nil
}

// AdoptPush claims a stream the server offered via PUSH_PROMISE (reported
// on Events() as a PushPromiseEvent carrying PromisedStreamID), copying
// over whatever HEADERS/DATA already arrived on it and routing everything
// from here on into res. Safe to call at any point before the stream
// closes, not just synchronously inside the event handler: the promise's
// response is buffered into a placeholder from the moment the PUSH_PROMISE
// itself is processed. Returns ErrUnknownPush if the ID wasn't offered,
// was already adopted, or the stream has already been removed from the
// table (for example because the peer reset it).
//
// To decline a push instead, call Cancel(promisedStreamID). Cancel only
// sends RST_STREAM; the stream stays registered, so frames the peer has
// already sent on it are still decoded into the placeholder.
func (c *Conn) AdoptPush(promisedStreamID uint32, res *fasthttp.Response) (*Ctx, error) {
	stream := c.streams.Get(promisedStreamID)
	if stream == nil || stream.parent == 0 || stream.adopted {
		return nil, ErrUnknownPush
	}

	stream.adopted = true
	stream.ctx.Response.CopyTo(res)
	stream.ctx.Response = res

	return stream.ctx, nil
}

func (c *Conn) readStream(fr *FrameHeader, r *Ctx) (err error) {
	stream := c.streams.Get(fr.Stream())
	if stream == nil {
		return NewStreamError(fr.Stream(), StreamClosedError, "frame for unknown stream")
	}

	switch fr.Type() {
	case FrameHeaders, FrameContinuation:
		// A header block can be split across a HEADERS frame and any
		// number of CONTINUATION frames (RFC 7540 Section 4.3); HPACK
		// state only advances once the full block is decoded, so the
		// fragments are buffered until END_HEADERS arrives.
		h := fr.Body().(FrameWithHeaders)
		stream.headerFrag = append(stream.headerFrag, h.Headers()...)

		endHeaders := false
		if hh, ok := fr.Body().(*Headers); ok {
			endHeaders = hh.EndHeaders()
		} else if cc, ok := fr.Body().(*Continuation); ok {
			endHeaders = cc.EndHeaders()
		}

		if endHeaders {
			err = c.readHeader(fr.Stream(), stream.headerFrag, r.Response)
			stream.headerFrag = stream.headerFrag[:0]
			stream.endHeadersSeen = true
			c.headerBlockStream = 0
			if err == nil {
				stream.AdvanceRecvHeaders()
			}
		} else {
			c.headerBlockStream = fr.Stream()
		}
		if err == nil && fr.Flags().Has(FlagEndStream) {
			stream.endStreamSeen = true
			stream.AdvanceRecvEndStream()
		}
	case FrameData:
		n := int32(fr.Len())
		stream.ConsumeRecvWindow(n)
		c.connFlow.ConsumeRecv(n)

		data := fr.Body().(*Data)
		if data.Len() != 0 {
			r.Response.AppendBody(data.Data())
		}

		if inc, need := stream.FlowController().NeedsReplenish(); need {
			c.updateWindow(fr.Stream(), inc)
			stream.ReplenishRecvWindow(inc)
		}
		if inc, need := c.connFlow.NeedsReplenish(); need {
			c.updateWindow(0, inc)
			c.connFlow.Replenish(inc)
		}

		if data.EndStream() {
			stream.endStreamSeen = true
			stream.AdvanceRecvEndStream()
		}
	case FrameWindowUpdate:
		wu := fr.Body().(*WindowUpdate)
		inc := int32(wu.Increment())
		if inc == 0 {
			// RFC 7540 Section 6.9: a zero increment is a PROTOCOL_ERROR,
			// scoped to this stream alone.
			err = NewStreamError(fr.Stream(), ProtocolError, "WINDOW_UPDATE with a zero increment")
			break
		}
		if !stream.FlowController().ApplySendIncrement(inc) {
			err = NewStreamError(fr.Stream(), FlowControlError, "stream send window overflowed")
			break
		}
		c.signalDrain()
	case FrameResetStream:
		rst := fr.Body().(*RstStream)
		err = NewStreamError(fr.Stream(), rst.Code(), "peer reset the stream")
	case FramePushPromise:
		pp := fr.Body().(*PushPromise)
		if !pp.ended {
			c.headerBlockStream = fr.Stream()
		}
		if perr := c.handlePushPromise(fr.Stream(), pp); perr != nil {
			// A StreamError here is scoped to the promised stream, not
			// fr.Stream() (the parent): reset the promised stream
			// ourselves rather than returning it, since the caller
			// only knows how to scope a returned error to fr.Stream().
			var streamErr *StreamError
			if errors.As(perr, &streamErr) {
				c.sendRstStream(streamErr.StreamID, streamErr.Code)
				c.streams.Del(streamErr.StreamID)
			} else {
				err = perr
			}
		}
	}

	return
}

func (c *Conn) updateWindow(streamID uint32, size int32) {
	fr := AcquireFrameHeader()
	fr.SetStream(streamID)

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(int(size))

	fr.SetBody(wu)

	c.out <- fr
}

// readHeader decodes a reassembled header block and copies it into res. A
// decode failure desyncs the connection's single HPACK decoder for every
// other stream still open on it (RFC 7540 Section 4.3), so it is never
// stream-local: ErrHeaderListTooBig still only cost this one stream its
// response and comes back scoped to streamID, but any other decode error
// invalidates the whole connection.
func (c *Conn) readHeader(streamID uint32, b []byte, res *fasthttp.Response) error {
	fields, err := c.dec.DecodeFull(b)
	if err != nil {
		if errors.Is(err, ErrHeaderListTooBig) {
			return NewStreamError(streamID, EnhanceYourCalm, err.Error())
		}
		return NewConnError(CompressionError, err.Error())
	}

	for _, hf := range fields {
		if hf.IsPseudo() {
			if len(hf.KeyBytes()) > 1 && hf.KeyBytes()[1] == 's' { // :status
				n, err := strconv.ParseInt(hf.Value(), 10, 64)
				if err != nil {
					return NewConnError(ProtocolError, err.Error())
				}
				res.SetStatusCode(int(n))
			}
			continue
		}

		if bytes.Equal(hf.KeyBytes(), StringContentLength) {
			n, _ := strconv.Atoi(hf.Value())
			res.Header.SetContentLength(n)
		} else {
			res.Header.AddBytesKV(hf.KeyBytes(), hf.ValueBytes())
		}
	}

	return nil
}

package http2

import "sync"

// StreamTable is the connection's map from stream ID to Stream record.
// Frame writes stay single-owner (only the write loop ever touches
// c.bw/c.enc), but the table itself is consulted by both the read loop
// (GOAWAY fan-out, stream teardown on RST_STREAM/END_STREAM) and the write
// loop (new-stream admission), so it carries its own lock rather than
// assuming one goroutine.
type StreamTable struct {
	mu      sync.Mutex
	streams map[uint32]*Stream
}

// NewStreamTable returns an empty StreamTable.
func NewStreamTable() *StreamTable {
	return &StreamTable{streams: make(map[uint32]*Stream)}
}

// Insert adds or replaces s in the table.
func (t *StreamTable) Insert(s *Stream) {
	t.mu.Lock()
	t.streams[s.id] = s
	t.mu.Unlock()
}

// Get returns the stream for id, or nil if unknown.
func (t *StreamTable) Get(id uint32) *Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[id]
}

// Del removes and returns the stream for id, or nil if it wasn't present.
func (t *StreamTable) Del(id uint32) *Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.streams[id]
	if !ok {
		return nil
	}
	delete(t.streams, id)
	return s
}

// Len returns the number of streams currently tracked, open or otherwise.
func (t *StreamTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// CountOpen returns the number of streams in a state that counts against
// SETTINGS_MAX_CONCURRENT_STREAMS (RFC 7540 Section 5.1.2): open or
// half-closed in exactly one direction.
func (t *StreamTable) CountOpen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.streams {
		switch s.state {
		case StreamStateOpen, StreamStateHalfClosedLocal, StreamStateHalfClosedRemote:
			n++
		}
	}
	return n
}

// Each calls fn for every tracked stream, holding the table lock for the
// duration. fn must not call back into the StreamTable or block.
func (t *StreamTable) Each(fn func(*Stream)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.streams {
		fn(s)
	}
}

// IDsAbove returns the IDs of every tracked stream greater than id, used
// to find streams a GOAWAY's last_stream_id declares unprocessed (RFC
// 7540 Section 6.8).
func (t *StreamTable) IDsAbove(id uint32) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []uint32
	for sid := range t.streams {
		if sid > id {
			ids = append(ids, sid)
		}
	}
	return ids
}

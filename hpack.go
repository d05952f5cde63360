package http2

import (
	"bytes"
	"sync"

	"golang.org/x/net/http2/hpack"
)

// HPACK wraps golang.org/x/net/http2/hpack's Encoder/Decoder behind the
// pooled HeaderField API the rest of this package uses. Using the real
// HPACK implementation instead of a bespoke one gets RFC 7541 dynamic
// table size update emission (Section 6.3) for free: x/net's Encoder
// prepends the update the next time WriteField is called after
// SetMaxTableSize changes the table size.
type HPACK struct {
	enc    *hpack.Encoder
	encBuf bytes.Buffer

	dec *hpack.Decoder

	fields        []*HeaderField
	headerListLen uint32
	maxHeaderList uint32
	listErr       error
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		hp := &HPACK{}
		hp.enc = hpack.NewEncoder(&hp.encBuf)
		hp.dec = hpack.NewDecoder(defaultHeaderTableSize, nil)
		hp.dec.SetEmitFunc(hp.onField)
		return hp
	},
}

// AcquireHPACK returns a pooled HPACK codec. It is safe to use for both
// encoding and decoding, but not concurrently from multiple goroutines,
// matching the rest of this package's pooled types.
func AcquireHPACK() *HPACK {
	return hpackPool.Get().(*HPACK)
}

// ReleaseHPACK resets hp and returns it to the pool.
func ReleaseHPACK(hp *HPACK) {
	hp.Reset()
	hpackPool.Put(hp)
}

// Reset releases any decoded fields and forgets accumulated state. It does
// NOT reset the dynamic table, since that lives for the life of the HTTP/2
// connection, not a single header block.
func (hp *HPACK) Reset() {
	for _, f := range hp.fields {
		ReleaseHeaderField(f)
	}
	hp.fields = hp.fields[:0]
	hp.headerListLen = 0
	hp.listErr = nil
}

// SetMaxTableSize sets the encoder's dynamic table size. The client's
// encoder table size is bounded by what the server advertised in its
// SETTINGS_HEADER_TABLE_SIZE. The decoder side is set separately with
// SetMaxDecoderTableSize.
func (hp *HPACK) SetMaxTableSize(n int) {
	hp.enc.SetMaxDynamicTableSize(uint32(n))
}

// SetMaxDecoderTableSize bounds the size of the dynamic table used while
// decoding peer-sent header blocks.
func (hp *HPACK) SetMaxDecoderTableSize(n uint32) {
	hp.dec.SetMaxDynamicTableSize(n)
}

// SetMaxHeaderListSize enforces RFC 7540's SETTINGS_MAX_HEADER_LIST_SIZE:
// once the running total of decoded field sizes (RFC 7541 Section 4.1)
// exceeds n, DecodeFull reports ErrHeaderListTooBig. n == 0 disables the
// check (the default, meaning "no limit advertised").
func (hp *HPACK) SetMaxHeaderListSize(n uint32) {
	hp.maxHeaderList = n
}

func (hp *HPACK) onField(f hpack.HeaderField) {
	hf := AcquireHeaderField()
	hf.SetKey(f.Name)
	hf.SetValue(f.Value)
	hf.sensitive = f.Sensitive

	hp.headerListLen += uint32(hf.Size())
	if hp.maxHeaderList > 0 && hp.headerListLen > hp.maxHeaderList {
		hp.listErr = ErrHeaderListTooBig
		ReleaseHeaderField(hf)
		return
	}

	hp.fields = append(hp.fields, hf)
}

// DecodeFull decodes an entire HPACK header block, returning the ordered
// list of fields it contains. The returned slice is owned by hp and is
// only valid until the next call to DecodeFull or Reset.
func (hp *HPACK) DecodeFull(block []byte) ([]*HeaderField, error) {
	hp.fields = hp.fields[:0]
	hp.headerListLen = 0
	hp.listErr = nil

	if _, err := hp.dec.Write(block); err != nil {
		return nil, err
	}
	if hp.listErr != nil {
		return nil, hp.listErr
	}

	return hp.fields, nil
}

// AppendHeader HPACK-encodes hf and appends the wire bytes to dst,
// returning the extended slice. store controls whether the field may be
// entered into the dynamic table for reuse by later header blocks on the
// same connection: non-indexed fields (store == false) are encoded as
// HPACK "sensitive"/never-indexed literals.
func (hp *HPACK) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	hp.encBuf.Reset()

	_ = hp.enc.WriteField(hpack.HeaderField{
		Name:      hf.Key(),
		Value:     hf.Value(),
		Sensitive: hf.sensitive || !store,
	})

	return append(dst, hp.encBuf.Bytes()...)
}

// AppendHeaderField encodes hf and appends it directly to h's raw header
// block.
func (hp *HPACK) AppendHeaderField(h *Headers, hf *HeaderField, store bool) {
	h.rawHeaders = hp.AppendHeader(h.rawHeaders, hf, store)
}

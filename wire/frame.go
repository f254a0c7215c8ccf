package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single envelope on the wire. Frames declaring more
// are a protocol violation; the reader skips the payload without buffering it.
const MaxFrameSize = 1 << 20

// FrameHeaderSize is the big-endian length prefix in front of each envelope.
const FrameHeaderSize = 4

// ErrFrameTooLarge reports a length prefix above MaxFrameSize.
var ErrFrameTooLarge = fmt.Errorf("wire: frame exceeds %d bytes", MaxFrameSize)

// EncodeFrame marshals the envelope and prepends the length header.
func EncodeFrame(e *Envelope) ([]byte, error) {
	body, err := Marshal(e)
	if err != nil {
		return nil, err
	}
	if len(body) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, FrameHeaderSize+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[FrameHeaderSize:], body)
	return out, nil
}

// ReadFrame reads one length-prefixed envelope from r. Used by the client,
// where a blocking reader per connection is fine; the server decodes frames
// incrementally off its input buffer instead.
func ReadFrame(r io.Reader) (*Envelope, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return Unmarshal(body)
}

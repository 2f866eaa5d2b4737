// Package wire splits capture frames into datagrams and reassembles them.
//
// Each datagram carries a fixed 32-byte big-endian header followed by a slice
// of the frame's pixel data:
//
//	0   magic     uint16  "FC"
//	2   version   uint8
//	3   format    uint8   capture.PixelFormat
//	4   seq       uint64
//	12  index     uint16  chunk index
//	14  count     uint16  chunks in this frame
//	16  width     uint32
//	20  height    uint32
//	24  timestamp int64   nanoseconds since capture epoch
//
// All chunks but the last carry ceil(size/count) bytes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/junsooki/framecap/internal/capture"
)

const (
	Magic      uint16 = 0x4643
	Version    uint8  = 1
	HeaderSize        = 32

	// MaxFrameBytes bounds the buffer a reassembler will allocate.
	MaxFrameBytes = 256 << 20
)

var (
	ErrMalformed = errors.New("malformed datagram")
	ErrTooLarge  = errors.New("frame too large")
)

type header struct {
	format    capture.PixelFormat
	seq       uint64
	index     uint16
	count     uint16
	width     uint32
	height    uint32
	timestamp int64
}

func (h *header) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:], Magic)
	b[2] = Version
	b[3] = byte(h.format)
	binary.BigEndian.PutUint64(b[4:], h.seq)
	binary.BigEndian.PutUint16(b[12:], h.index)
	binary.BigEndian.PutUint16(b[14:], h.count)
	binary.BigEndian.PutUint32(b[16:], h.width)
	binary.BigEndian.PutUint32(b[20:], h.height)
	binary.BigEndian.PutUint64(b[24:], uint64(h.timestamp))
}

func parseHeader(b []byte) (header, error) {
	if len(b) < HeaderSize {
		return header{}, fmt.Errorf("%w: %d bytes is shorter than header", ErrMalformed, len(b))
	}
	if m := binary.BigEndian.Uint16(b[0:]); m != Magic {
		return header{}, fmt.Errorf("%w: bad magic %#04x", ErrMalformed, m)
	}
	if v := b[2]; v != Version {
		return header{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	h := header{
		format:    capture.PixelFormat(b[3]),
		seq:       binary.BigEndian.Uint64(b[4:]),
		index:     binary.BigEndian.Uint16(b[12:]),
		count:     binary.BigEndian.Uint16(b[14:]),
		width:     binary.BigEndian.Uint32(b[16:]),
		height:    binary.BigEndian.Uint32(b[20:]),
		timestamp: int64(binary.BigEndian.Uint64(b[24:])),
	}
	if h.format != capture.PixelFormatRGBA {
		return header{}, fmt.Errorf("%w: unknown pixel format %d", ErrMalformed, h.format)
	}
	if h.count == 0 || h.index >= h.count {
		return header{}, fmt.Errorf("%w: chunk %d of %d", ErrMalformed, h.index, h.count)
	}
	if h.width == 0 || h.height == 0 {
		return header{}, fmt.Errorf("%w: empty frame %dx%d", ErrMalformed, h.width, h.height)
	}
	return h, nil
}

func (h header) frameSize() (int, error) {
	size := uint64(h.width) * uint64(h.height) * capture.BytesPerPixel
	if size > MaxFrameBytes {
		return 0, fmt.Errorf("%w: %dx%d", ErrTooLarge, h.width, h.height)
	}
	return int(size), nil
}

// chunkLen returns the payload size of chunk i for a frame of size bytes.
func chunkLen(size, count, i int) (per, n int) {
	per = (size + count - 1) / count
	if i == count-1 {
		return per, size - per*(count-1)
	}
	return per, per
}

// Chunk splits f into datagrams whose payloads are at most maxPayload bytes.
func Chunk(f capture.Frame, maxPayload int) ([][]byte, error) {
	if maxPayload <= 0 {
		return nil, fmt.Errorf("max payload %d must be positive", maxPayload)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if uint64(f.Width)*uint64(f.Height)*capture.BytesPerPixel > MaxFrameBytes {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, f.Width, f.Height)
	}
	size := f.Width * f.Height * capture.BytesPerPixel
	if len(f.Data) != size {
		return nil, fmt.Errorf("frame data is %d bytes, want %d for %dx%d", len(f.Data), size, f.Width, f.Height)
	}

	count := (size + maxPayload - 1) / maxPayload
	if count > math.MaxUint16 {
		return nil, fmt.Errorf("%w: needs %d chunks of %d bytes", ErrTooLarge, count, maxPayload)
	}

	h := header{
		format:    f.Format,
		seq:       f.Seq,
		count:     uint16(count),
		width:     uint32(f.Width),
		height:    uint32(f.Height),
		timestamp: int64(f.Timestamp),
	}
	out := make([][]byte, count)
	for i := range count {
		per, n := chunkLen(size, count, i)
		off := i * per
		dg := make([]byte, HeaderSize+n)
		h.index = uint16(i)
		h.put(dg)
		copy(dg[HeaderSize:], f.Data[off:off+n])
		out[i] = dg
	}
	return out, nil
}

// Reassembler rebuilds frames from datagrams that may arrive out of order,
// duplicated or not at all. Only one frame is assembled at a time: a chunk
// from a newer frame abandons the partial one.
type Reassembler struct {
	active   bool
	cur      header
	size     int
	buf      []byte
	got      []bool
	received int

	done     bool
	lastSeq  uint64
	abandons uint64
}

// Add consumes one datagram. It returns the frame and true when the datagram
// completes a frame. Late chunks of older frames and duplicates are ignored.
func (r *Reassembler) Add(dg []byte) (capture.Frame, bool, error) {
	h, err := parseHeader(dg)
	if err != nil {
		return capture.Frame{}, false, err
	}
	if r.done && h.seq <= r.lastSeq {
		return capture.Frame{}, false, nil
	}
	if r.active && h.seq < r.cur.seq {
		return capture.Frame{}, false, nil
	}

	if !r.active || h.seq > r.cur.seq {
		size, err := h.frameSize()
		if err != nil {
			return capture.Frame{}, false, err
		}
		if per, _ := chunkLen(size, int(h.count), 0); per*(int(h.count)-1) >= size {
			return capture.Frame{}, false, fmt.Errorf("%w: %d chunks for %d bytes", ErrMalformed, h.count, size)
		}
		if r.active {
			r.abandons++
		}
		r.active = true
		r.cur = h
		r.size = size
		r.buf = make([]byte, size)
		r.got = make([]bool, h.count)
		r.received = 0
	} else if h.count != r.cur.count || h.width != r.cur.width || h.height != r.cur.height || h.format != r.cur.format {
		return capture.Frame{}, false, fmt.Errorf("%w: chunk geometry differs within frame %d", ErrMalformed, h.seq)
	}

	per, n := chunkLen(r.size, int(h.count), int(h.index))
	payload := dg[HeaderSize:]
	if len(payload) != n {
		return capture.Frame{}, false, fmt.Errorf("%w: chunk %d carries %d bytes, want %d", ErrMalformed, h.index, len(payload), n)
	}
	if r.got[h.index] {
		return capture.Frame{}, false, nil
	}
	copy(r.buf[int(h.index)*per:], payload)
	r.got[h.index] = true
	r.received++

	if r.received < int(h.count) {
		return capture.Frame{}, false, nil
	}

	f := capture.Frame{
		Seq:       r.cur.seq,
		Format:    r.cur.format,
		Width:     int(r.cur.width),
		Height:    int(r.cur.height),
		Data:      r.buf,
		Timestamp: time.Duration(r.cur.timestamp),
	}
	r.active = false
	r.buf = nil
	r.got = nil
	r.done = true
	r.lastSeq = f.Seq
	return f, true, nil
}

// Abandoned reports how many partial frames were discarded.
func (r *Reassembler) Abandoned() uint64 { return r.abandons }

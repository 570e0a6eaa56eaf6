package wire

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a message ends before a field it
// declared (via a length prefix) can be fully read.
var ErrTruncated = errors.New("wire: truncated message")

// writer accumulates a message's payload bytes. It never errors; all
// writes are either fixed-width or length-prefixed, so there is nothing
// a writer can fail to encode.
type writer struct {
	buf []byte
}

func (w *writer) u8(v byte) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) i32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) i64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) fixed32(v [32]byte) { w.buf = append(w.buf, v[:]...) }

// blob writes a length-prefixed byte slice: [uint32 len][bytes].
func (w *writer) blob(v []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(v)))
	w.buf = append(w.buf, tmp[:]...)
	w.buf = append(w.buf, v...)
}

func (w *writer) bytes() []byte { return w.buf }

// reader walks a message's payload bytes with bounds checking.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) u8() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, ErrTruncated
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) i32() (int32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrTruncated
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4
	return v, nil
}

func (r *reader) i64() (int64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrTruncated
	}
	v := int64(binary.BigEndian.Uint64(r.data[r.pos : r.pos+8]))
	r.pos += 8
	return v, nil
}

func (r *reader) fixed32() ([32]byte, error) {
	var out [32]byte
	if r.pos+32 > len(r.data) {
		return out, ErrTruncated
	}
	copy(out[:], r.data[r.pos:r.pos+32])
	r.pos += 32
	return out, nil
}

// blob reads a length-prefixed byte slice, capped at the remaining
// buffer so a corrupt length prefix cannot force an over-large alloc.
func (r *reader) blob() ([]byte, error) {
	n, err := r.i32()
	if err != nil {
		return nil, err
	}
	if n < 0 || r.pos+int(n) > len(r.data) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *reader) done() bool { return r.pos >= len(r.data) }

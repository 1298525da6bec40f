package wire

import (
	"encoding/binary"
	"math"
	"time"
)

// Envelope is an open record or list on the read side.
type Envelope struct {
	Start int
	Tail  int
}

// Reader decodes little-endian CtrlCmd values from a byte slice.
type Reader struct {
	buf     []byte
	off     int
	version uint16
	loc     *time.Location
}

// NewReader returns a reader over buf that decodes times as local wall
// clock. version gates optional record fields.
func NewReader(buf []byte, version uint16) *Reader {
	return NewReaderIn(buf, version, time.Local)
}

// NewReaderIn is NewReader for a server whose wall clock runs in loc.
func NewReaderIn(buf []byte, version uint16, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.Local
	}
	return &Reader{buf: buf, version: version, loc: loc}
}

func (r *Reader) Version() uint16          { return r.version }
func (r *Reader) Location() *time.Location { return r.loc }
func (r *Reader) Offset() int              { return r.off }
func (r *Reader) Remaining() int           { return len(r.buf) - r.off }

func (r *Reader) fail(at int, err error) error {
	return &FramingError{Offset: at, Err: err}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, r.fail(r.off, ErrEndOfStream)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadTime decodes the 16-byte date/time layout as a wall-clock time in
// the reader's location. The day-of-week slot is ignored. An all-zero date decodes to the zero time. Out-of-range
// components fail with ErrInvalidTime after all 16 bytes were consumed.
func (r *Reader) ReadTime() (time.Time, error) {
	start := r.off
	b, err := r.take(16)
	if err != nil {
		return time.Time{}, err
	}
	var f [8]int
	for i := range f {
		f[i] = int(binary.LittleEndian.Uint16(b[i*2:]))
	}
	year, month, day := f[0], f[1], f[3]
	hour, minute, sec, msec := f[4], f[5], f[6], f[7]

	if year == 0 && month == 0 && day == 0 {
		return time.Time{}, nil
	}
	if year < 1 || month < 1 || month > 12 || day < 1 || day > daysIn(year, month) ||
		hour > 23 || minute > 59 || sec > 59 || msec > 999 {
		return time.Time{}, r.fail(start, ErrInvalidTime)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, msec*int(time.Millisecond), r.loc), nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// sizeField reads an int32 size and checks it against the envelope minimum
// and the bytes left in the buffer.
func (r *Reader) sizeField() (start, size int, err error) {
	start = r.off
	v, err := r.ReadInt32()
	if err != nil {
		return start, 0, err
	}
	size = int(v)
	if size < 4 || r.Remaining() < size-4 {
		r.off = start + 4
		return start, 0, r.fail(start, ErrBadSize)
	}
	return start, size, nil
}

// ReadString decodes a size-prefixed, NUL-terminated UTF-16LE string.
// size 4 carries no payload, size 6 carries only the terminator.
func (r *Reader) ReadString() (string, error) {
	_, size, err := r.sizeField()
	if err != nil {
		return "", err
	}
	if size == emptyEnvelope {
		return "", nil
	}
	b, _ := r.take(size - 4)
	if size <= stringOverhead {
		return "", nil
	}
	return decodeUTF16(b[:size-stringOverhead]), nil
}

// Begin opens a record envelope.
func (r *Reader) Begin() (Envelope, error) {
	start, size, err := r.sizeField()
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Start: start, Tail: start + size}, nil
}

// End closes a record envelope, failing if the record read past its
// declared size and skipping any bytes it did not consume.
func (r *Reader) End(env Envelope) error {
	if r.off > env.Tail {
		return r.fail(r.off, ErrTailOverrun)
	}
	r.off = env.Tail
	return nil
}

// RemainIn returns the unread bytes left inside env.
func (r *Reader) RemainIn(env Envelope) int {
	return env.Tail - r.off
}

// ProbeAbsent peeks at the next size field. An empty envelope (size 4)
// is consumed and reported as absent; anything else is left unread.
func (r *Reader) ProbeAbsent() (bool, error) {
	start := r.off
	v, err := r.ReadInt32()
	if err != nil {
		return false, err
	}
	if v == emptyEnvelope {
		return true, nil
	}
	r.off = start
	return false, nil
}

// ReadBytes returns the next n bytes without copying.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

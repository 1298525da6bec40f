package wire

import (
	"encoding/binary"
	"math"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const (
	// emptyEnvelope is the size of an envelope that holds only its size field.
	emptyEnvelope = 4
	// stringOverhead is the size field plus the UTF-16 terminator.
	stringOverhead = 6
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Mark is an open envelope on the write side.
type Mark int

// Writer encodes little-endian CtrlCmd values into a growing buffer.
type Writer struct {
	buf     []byte
	version uint16
	loc     *time.Location
}

// NewWriter returns an empty writer that encodes times as local wall clock.
// version gates optional record fields.
func NewWriter(version uint16) *Writer {
	return NewWriterIn(version, time.Local)
}

// NewWriterIn is NewWriter for a server whose wall clock runs in loc.
func NewWriterIn(version uint16, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{buf: make([]byte, 0, 256), version: version, loc: loc}
}

func (w *Writer) Version() uint16          { return w.version }
func (w *Writer) Location() *time.Location { return w.loc }
func (w *Writer) Bytes() []byte            { return w.buf }
func (w *Writer) Len() int                 { return len(w.buf) }

func (w *Writer) WriteUint8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteTime encodes t, converted to the writer's location, as year, month,
// day-of-week, day, hour, minute, second and millisecond. The zero time is
// written as all zeros.
func (w *Writer) WriteTime(t time.Time) {
	if t.IsZero() {
		w.buf = append(w.buf, make([]byte, 16)...)
		return
	}
	t = t.In(w.loc)
	w.WriteUint16(uint16(t.Year()))
	w.WriteUint16(uint16(t.Month()))
	w.WriteUint16(uint16(t.Weekday()))
	w.WriteUint16(uint16(t.Day()))
	w.WriteUint16(uint16(t.Hour()))
	w.WriteUint16(uint16(t.Minute()))
	w.WriteUint16(uint16(t.Second()))
	w.WriteUint16(uint16(t.Nanosecond() / int(time.Millisecond)))
}

// WriteString encodes s as UTF-16LE with a size prefix and a NUL terminator.
func (w *Writer) WriteString(s string) {
	b := encodeUTF16(s)
	w.WriteInt32(int32(len(b) + stringOverhead))
	w.buf = append(w.buf, b...)
	w.WriteUint16(0)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteAbsent writes an empty envelope, the wire form of a missing record.
func (w *Writer) WriteAbsent() {
	w.WriteInt32(emptyEnvelope)
}

// Begin opens an envelope by reserving its size field.
func (w *Writer) Begin() Mark {
	m := Mark(len(w.buf))
	w.WriteInt32(0)
	return m
}

// End backpatches the size of the envelope opened at m. The size counts
// the size field itself.
func (w *Writer) End(m Mark) {
	binary.LittleEndian.PutUint32(w.buf[m:], uint32(len(w.buf)-int(m)))
}

func encodeUTF16(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// invalid UTF-8 is replaced, not reported
		panic("wire: utf-16 encode: " + err.Error())
	}
	return b
}

func decodeUTF16(b []byte) string {
	// unpaired surrogates and a dangling odd byte decode to U+FFFD
	s, _ := utf16le.NewDecoder().Bytes(b)
	return string(s)
}

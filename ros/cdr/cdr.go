// Package cdr implements the plain CDR (XCDR1) encoding ROS 2 uses for message payloads.
//
// A payload starts with a four byte encapsulation header naming the byte order, followed by the
// message fields in declaration order. Primitives are aligned to their own size relative to the
// end of the encapsulation header; strings and sequences carry a uint32 length prefix.
package cdr

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// HeaderLen is the length of the encapsulation header preceding every payload.
const HeaderLen = 4

// MaxSequenceLength bounds the element count of strings and sequences read from a payload.
const MaxSequenceLength = 1 << 24

// Encapsulation kinds understood by the decoder. The encoder always writes little endian.
const (
	EncapsulationBE uint16 = 0x0000
	EncapsulationLE uint16 = 0x0001
)

var (
	// ErrTruncated is returned when a payload ends before a value it declares.
	ErrTruncated = errors.New("cdr: payload truncated")
	// ErrUnsupportedEncapsulation is returned for payloads not in plain CDR.
	ErrUnsupportedEncapsulation = errors.New("cdr: unsupported encapsulation")
)

// Message is a record that knows how to write itself to and read itself from CDR.
type Message interface {
	// TypeName is the fully qualified interface name, e.g. "geometry_msgs/msg/Pose2D".
	TypeName() string
	MarshalCDR(e *Encoder)
	UnmarshalCDR(d *Decoder) error
}

// Marshal serializes m including the encapsulation header.
func Marshal(m Message) []byte {
	e := NewEncoder()
	m.MarshalCDR(e)
	return e.Bytes()
}

// Unmarshal deserializes data into m. Up to three bytes of trailing padding are accepted as RTPS
// pads payloads to a multiple of four.
func Unmarshal(data []byte, m Message) error {
	d, err := NewDecoder(data)
	if err != nil {
		return err
	}
	if err := m.UnmarshalCDR(d); err != nil {
		return errors.Wrapf(err, "failed to decode %s", m.TypeName())
	}
	if rem := d.Remaining(); rem >= 4 {
		return errors.Errorf("cdr: %d trailing bytes after %s", rem, m.TypeName())
	}
	return nil
}

// Encoder appends CDR encoded values to a buffer. The zero value is not usable; use NewEncoder.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder that has written the little endian encapsulation header.
func NewEncoder() *Encoder {
	e := &Encoder{buf: make([]byte, HeaderLen, 64)}
	binary.BigEndian.PutUint16(e.buf, EncapsulationLE)
	return e
}

// Bytes returns the encoded payload. The slice aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written after the encapsulation header.
func (e *Encoder) Len() int {
	return len(e.buf) - HeaderLen
}

func (e *Encoder) align(n int) {
	for e.Len()%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

// Bool writes a boolean as a single byte.
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

// Uint8 writes an unsigned byte.
func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

// Int8 writes a signed byte.
func (e *Encoder) Int8(v int8) {
	e.buf = append(e.buf, byte(v))
}

// Uint16 writes an aligned uint16.
func (e *Encoder) Uint16(v uint16) {
	e.align(2)
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// Int16 writes an aligned int16.
func (e *Encoder) Int16(v int16) {
	e.Uint16(uint16(v))
}

// Uint32 writes an aligned uint32.
func (e *Encoder) Uint32(v uint32) {
	e.align(4)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// Int32 writes an aligned int32.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Uint64 writes an aligned uint64.
func (e *Encoder) Uint64(v uint64) {
	e.align(8)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// Int64 writes an aligned int64.
func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

// Float32 writes an aligned IEEE 754 single.
func (e *Encoder) Float32(v float32) {
	e.Uint32(math.Float32bits(v))
}

// Float64 writes an aligned IEEE 754 double.
func (e *Encoder) Float64(v float64) {
	e.Uint64(math.Float64bits(v))
}

// String writes a length prefixed, NUL terminated string.
func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// SequenceLength writes the element count preceding a sequence.
func (e *Encoder) SequenceLength(n int) {
	e.Uint32(uint32(n))
}

// Float64Seq writes a sequence of doubles.
func (e *Encoder) Float64Seq(vs []float64) {
	e.SequenceLength(len(vs))
	for _, v := range vs {
		e.Float64(v)
	}
}

// Float32Seq writes a sequence of singles.
func (e *Encoder) Float32Seq(vs []float32) {
	e.SequenceLength(len(vs))
	for _, v := range vs {
		e.Float32(v)
	}
}

// Int32Seq writes a sequence of int32s.
func (e *Encoder) Int32Seq(vs []int32) {
	e.SequenceLength(len(vs))
	for _, v := range vs {
		e.Int32(v)
	}
}

// Decoder reads CDR encoded values. The first failure is sticky: every later read returns a zero
// value and Err reports the failure, so message decoders only check once at the end.
type Decoder struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

// NewDecoder checks the encapsulation header of data and returns a decoder positioned after it.
func NewDecoder(data []byte) (*Decoder, error) {
	if len(data) < HeaderLen {
		return nil, errors.Wrap(ErrTruncated, "missing encapsulation header")
	}
	d := &Decoder{data: data[HeaderLen:]}
	switch kind := binary.BigEndian.Uint16(data); kind {
	case EncapsulationLE:
		d.order = binary.LittleEndian
	case EncapsulationBE:
		d.order = binary.BigEndian
	default:
		return nil, errors.Wrapf(ErrUnsupportedEncapsulation, "kind 0x%04x", kind)
	}
	return d, nil
}

// Err returns the first error the decoder encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// next aligns to size and returns the following size bytes, or nil once the decoder has failed.
func (d *Decoder) next(size, alignment int) []byte {
	if d.err != nil {
		return nil
	}
	pos := d.pos
	if rem := pos % alignment; rem != 0 {
		pos += alignment - rem
	}
	if pos+size > len(d.data) {
		d.fail(errors.Wrapf(ErrTruncated, "reading %d bytes at offset %d of %d", size, pos, len(d.data)))
		return nil
	}
	d.pos = pos + size
	return d.data[pos:d.pos]
}

// Bool reads a single byte boolean. Values other than 0 and 1 are an error.
func (d *Decoder) Bool() bool {
	b := d.next(1, 1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(errors.Errorf("cdr: invalid boolean value %d at offset %d", b[0], d.pos-1))
		return false
	}
}

// Uint8 reads an unsigned byte.
func (d *Decoder) Uint8() uint8 {
	if b := d.next(1, 1); b != nil {
		return b[0]
	}
	return 0
}

// Int8 reads a signed byte.
func (d *Decoder) Int8() int8 {
	return int8(d.Uint8())
}

// Uint16 reads an aligned uint16.
func (d *Decoder) Uint16() uint16 {
	if b := d.next(2, 2); b != nil {
		return d.order.Uint16(b)
	}
	return 0
}

// Int16 reads an aligned int16.
func (d *Decoder) Int16() int16 {
	return int16(d.Uint16())
}

// Uint32 reads an aligned uint32.
func (d *Decoder) Uint32() uint32 {
	if b := d.next(4, 4); b != nil {
		return d.order.Uint32(b)
	}
	return 0
}

// Int32 reads an aligned int32.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// Uint64 reads an aligned uint64.
func (d *Decoder) Uint64() uint64 {
	if b := d.next(8, 8); b != nil {
		return d.order.Uint64(b)
	}
	return 0
}

// Int64 reads an aligned int64.
func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

// Float32 reads an aligned IEEE 754 single.
func (d *Decoder) Float32() float32 {
	return math.Float32frombits(d.Uint32())
}

// Float64 reads an aligned IEEE 754 double.
func (d *Decoder) Float64() float64 {
	return math.Float64frombits(d.Uint64())
}

// String reads a length prefixed string. A zero length is read as the empty string; any other
// length must include the NUL terminator.
func (d *Decoder) String() string {
	n := d.Uint32()
	if d.err != nil || n == 0 {
		return ""
	}
	if n > MaxSequenceLength {
		d.fail(errors.Errorf("cdr: string length %d exceeds limit", n))
		return ""
	}
	b := d.next(int(n), 1)
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		d.fail(errors.Errorf("cdr: string at offset %d is not NUL terminated", d.pos-int(n)))
		return ""
	}
	return string(b[:n-1])
}

// SequenceLength reads the element count of a sequence whose elements occupy at least minSize
// bytes each, rejecting counts the remaining payload cannot hold.
func (d *Decoder) SequenceLength(minSize int) int {
	n := d.Uint32()
	if d.err != nil {
		return 0
	}
	if minSize < 1 {
		minSize = 1
	}
	if n > MaxSequenceLength || int(n)*minSize > d.Remaining() {
		d.fail(errors.Wrapf(ErrTruncated, "sequence of %d elements with %d bytes left", n, d.Remaining()))
		return 0
	}
	return int(n)
}

// Float64Seq reads a sequence of doubles. An empty sequence decodes as an empty, non-nil slice.
func (d *Decoder) Float64Seq() []float64 {
	n := d.SequenceLength(8)
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = d.Float64()
	}
	return vs
}

// Float32Seq reads a sequence of singles.
func (d *Decoder) Float32Seq() []float32 {
	n := d.SequenceLength(4)
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = d.Float32()
	}
	return vs
}

// Int32Seq reads a sequence of int32s.
func (d *Decoder) Int32Seq() []int32 {
	n := d.SequenceLength(4)
	vs := make([]int32, n)
	for i := range vs {
		vs[i] = d.Int32()
	}
	return vs
}
